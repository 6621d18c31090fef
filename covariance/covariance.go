// Package covariance implements validated error covariance matrices defined on a periodic grid.
package covariance

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/grid"
	"github.com/milosgajdos/go-assimilate/matrix"
	"github.com/milosgajdos/go-assimilate/rand"
	gomatrix "github.com/milosgajdos/matrix"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Covariance is a symmetric error covariance matrix of grid point values
type Covariance struct {
	// grid is the periodic grid
	grid *grid.Grid
	// matrix is covariance matrix
	matrix *mat.SymDense
}

// New creates new Covariance of grid g from matrix m and returns it.
// It returns error if either of the following conditions is met:
//   - g is nil
//   - m is not a JxJ matrix
//   - m is not symmetric within matrix.SymTol
func New(g *grid.Grid, m mat.Matrix) (*Covariance, error) {
	if g == nil {
		return nil, fmt.Errorf("invalid grid: %w", assimilate.ErrInvalidParameter)
	}

	if m == nil {
		return nil, fmt.Errorf("invalid covariance matrix: %w", assimilate.ErrDimensionMismatch)
	}

	if r, c := m.Dims(); r != g.J() || c != g.J() {
		return nil, fmt.Errorf("invalid covariance dimensions [%d x %d], expected %d: %w",
			r, c, g.J(), assimilate.ErrDimensionMismatch)
	}

	sym, err := matrix.Symmetrize(m, matrix.SymTol)
	if err != nil {
		return nil, err
	}

	return &Covariance{
		grid:   g,
		matrix: sym,
	}, nil
}

// Grid returns covariance grid
func (c *Covariance) Grid() *grid.Grid { return c.grid }

// Matrix returns covariance matrix
func (c *Covariance) Matrix() *mat.SymDense {
	m := mat.NewSymDense(c.matrix.SymmetricDim(), nil)
	m.CopySym(c.matrix)

	return m
}

// Variance returns diagonal of covariance matrix
func (c *Covariance) Variance() []float64 {
	return matrix.Diag(c.matrix)
}

// Correlation returns correlation matrix derived from covariance.
// Rows and columns of grid points with zero variance are left zero.
func (c *Covariance) Correlation() *mat.SymDense {
	v := c.Variance()
	sd := make([]float64, len(v))
	for i := range v {
		sd[i] = math.Sqrt(v[i])
	}

	corr := mat.NewSymDense(len(v), nil)
	for i := range v {
		for j := i; j < len(v); j++ {
			if sd[i] == 0 || sd[j] == 0 {
				continue
			}
			corr.SetSym(i, j, c.matrix.At(i, j)/(sd[i]*sd[j]))
		}
	}

	return corr
}

// Random draws a random grid field from Normal distribution with constant mean bias
// and covariance c. If rnd is nil the global random source is used.
// It returns error if the covariance matrix can not be factorized.
func (c *Covariance) Random(bias float64, rnd *exprand.Rand) (*mat.VecDense, error) {
	samples, err := rand.WithCovN(c.matrix, 1, rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to draw random field: %w", err)
	}

	x := mat.NewVecDense(c.grid.J(), nil)
	x.CopyVec(samples.ColView(0))
	for i := 0; i < x.Len(); i++ {
		x.SetVec(i, x.AtVec(i)+bias)
	}

	return x, nil
}

// Ensemble draws n random fields from zero-mean Normal distribution with covariance c
// and returns their sample covariance.
// It returns error if n is smaller than 2 or the samples fail to be drawn.
func Ensemble(c *Covariance, n int, rnd *exprand.Rand) (*Covariance, error) {
	if n < 2 {
		return nil, fmt.Errorf("invalid ensemble size %d: %w", n, assimilate.ErrInvalidParameter)
	}

	samples, err := rand.WithCovN(c.matrix, n, rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to draw ensemble: %w", err)
	}

	cov, err := gomatrix.Cov(samples, "cols")
	if err != nil {
		return nil, fmt.Errorf("failed to estimate ensemble covariance: %w", err)
	}

	return New(c.grid, cov)
}

// Localize returns Schur (element-wise) product of covariance c and correlation matrix l.
// It returns error if l dimensions do not match c.
func Localize(c *Covariance, l mat.Symmetric) (*Covariance, error) {
	if l == nil || l.SymmetricDim() != c.grid.J() {
		return nil, fmt.Errorf("invalid localization matrix: %w", assimilate.ErrDimensionMismatch)
	}

	loc := mat.NewDense(c.grid.J(), c.grid.J(), nil)
	loc.MulElem(c.matrix, l)

	return New(c.grid, loc)
}

// String implements the Stringer interface.
func (c *Covariance) String() string {
	return fmt.Sprintf("Covariance{%v\nMatrix=%v\n}", c.grid, matrix.Format(c.matrix))
}
