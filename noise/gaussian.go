package noise

import (
	"fmt"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/rand"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// factor is cov square root used to draw samples
	factor *mat.Dense
	// rnd is the source of randomness
	rnd *exprand.Rand
}

// NewGaussian creates new Gaussian noise with given mean and covariance drawing
// samples from a source seeded with seed.
// It returns error if mean and cov dimensions differ or if cov fails to be factorized.
func NewGaussian(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if cov == nil || len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid Gaussian noise dimensions: %w", assimilate.ErrDimensionMismatch)
	}

	factor, err := rand.Factor(cov)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gaussian noise: %w", err)
	}

	m := make([]float64, len(mean))
	copy(m, mean)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &Gaussian{
		mean:   m,
		cov:    c,
		factor: factor,
		rnd:    exprand.New(exprand.NewSource(seed)),
	}, nil
}

// NewBiased creates new Gaussian noise with covariance cov whose mean equals bias everywhere.
func NewBiased(bias float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if cov == nil {
		return nil, fmt.Errorf("invalid Gaussian noise covariance: %w", assimilate.ErrDimensionMismatch)
	}

	mean := make([]float64, cov.SymmetricDim())
	for i := range mean {
		mean[i] = bias
	}

	return NewGaussian(mean, cov, seed)
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	// factor and sample count are both valid so this never fails
	s, _ := rand.WithFactorN(g.factor, 1, g.rnd)
	sample := mat.NewVecDense(len(g.mean), nil)
	sample.AddVec(s.ColView(0), mat.NewVecDense(len(g.mean), g.mean))

	return sample
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	mean := make([]float64, len(g.mean))
	copy(mean, g.mean)

	return mean
}

// Reset reseeds Gaussian noise source.
func (g *Gaussian) Reset(seed uint64) {
	g.rnd.Seed(seed)
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
