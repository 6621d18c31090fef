// Package corr implements homogeneous isotropic correlation models on a
// periodic grid: their correlation matrices and power spectra.
package corr

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/grid"
	"github.com/milosgajdos/go-assimilate/rand"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model is a correlation model defined on a periodic grid
type Model struct {
	// kind is correlation model kind
	kind Kind
	// grid is the periodic grid
	grid *grid.Grid
	// lc is correlation length: distance at which correlation drops to 1/sqrt(e)
	lc float64
	// lp is model specific length parameter
	lp float64
	// eFold is the ratio lc/lp
	eFold float64
	// matrix is correlation matrix
	matrix *mat.SymDense
}

// New creates new correlation model of kind k on grid g with correlation length lc and returns it.
// lc is ignored for Uncorrelated models.
// It returns error if either of the following conditions is met:
//   - g is nil or k is unknown
//   - lc is not a finite number in (0, L/2]
func New(k Kind, g *grid.Grid, lc float64) (*Model, error) {
	if g == nil {
		return nil, fmt.Errorf("invalid grid: %w", assimilate.ErrInvalidParameter)
	}

	eFold, err := EFold(k)
	if err != nil {
		return nil, err
	}

	m := &Model{
		kind: k,
		grid: g,
	}

	if k == Uncorrelated {
		m.matrix = mat.NewSymDense(g.J(), nil)
		for i := 0; i < g.J(); i++ {
			m.matrix.SetSym(i, i, 1.0)
		}
		return m, nil
	}

	if !(lc > 0 && lc <= g.L()/2) {
		return nil, fmt.Errorf("correlation length %g outside (0, %g]: %w", lc, g.L()/2, assimilate.ErrInvalidParameter)
	}

	m.lc = lc
	m.eFold = eFold
	m.lp = lc / eFold
	m.matrix = m.build()

	return m, nil
}

// build fills correlation matrix with correlations of periodic grid point distances.
func (m *Model) build() *mat.SymDense {
	j := m.grid.J()
	c := mat.NewSymDense(j, nil)
	for r := 0; r < j; r++ {
		c.SetSym(r, r, m.kind.rho(0, m.lp))
		for s := 0; s < r; s++ {
			c.SetSym(r, s, m.kind.rho(m.grid.Distance(r, s), m.lp))
		}
	}

	return c
}

// Kind returns correlation model kind
func (m *Model) Kind() Kind { return m.kind }

// Grid returns model grid
func (m *Model) Grid() *grid.Grid { return m.grid }

// Lc returns correlation length
func (m *Model) Lc() float64 { return m.lc }

// Lp returns model length parameter
func (m *Model) Lp() float64 { return m.lp }

// EFold returns ratio of correlation length and length parameter
func (m *Model) EFold() float64 { return m.eFold }

// Rho returns correlation at distance r.
func (m *Model) Rho(r float64) float64 {
	return m.kind.rho(r, m.lp)
}

// Func returns correlation function evaluated at grid coordinates,
// i.e. correlation of every grid point with the domain center.
func (m *Model) Func() []float64 {
	x := m.grid.X()
	f := make([]float64, len(x))
	for i := range x {
		f[i] = m.Rho(math.Abs(x[i]))
	}

	return f
}

// Matrix returns correlation matrix
func (m *Model) Matrix() *mat.SymDense {
	c := mat.NewSymDense(m.matrix.SymmetricDim(), nil)
	c.CopySym(m.matrix)

	return c
}

// Cov returns covariance matrix with constant variance v and model correlations.
// It returns error if v is negative.
func (m *Model) Cov(v float64) (*mat.SymDense, error) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid variance %g: %w", v, assimilate.ErrInvalidParameter)
	}

	c := mat.NewSymDense(m.matrix.SymmetricDim(), nil)
	c.ScaleSym(v, m.matrix)

	return c, nil
}

// Spectrum returns theoretical power spectrum of the model over non-negative
// wavenumbers, derived with the infinite domain approximation.
// The spectrum is normalized so that sp[0] + 2*sum(sp[1:]) == 1.
func (m *Model) Spectrum() []float64 {
	k := m.grid.HalfK()
	sp := make([]float64, len(k))
	for i := range k {
		q := 2 * math.Pi * k[i] / m.grid.L()
		sp[i] = m.kind.spectrum(q, m.lp)
	}

	return normalize(sp)
}

// NumSpectrum returns power spectrum of the correlation matrix over non-negative
// wavenumbers. The matrix is circulant so its spectrum is the Fourier transform
// of the correlation function taken from the origin.
// The spectrum is normalized so that sp[0] + 2*sum(sp[1:]) == 1.
func (m *Model) NumSpectrum() []float64 {
	j, n := m.grid.J(), m.grid.N()

	f := m.Func()
	// roll correlation function so that it starts at the origin
	seq := make([]float64, j)
	for i := range seq {
		seq[i] = f[(i+n)%j]
	}

	coeffs := fourier.NewFFT(j).Coefficients(nil, seq)
	sp := make([]float64, n+1)
	for i := range sp {
		sp[i] = real(coeffs[i])
	}

	return normalize(sp)
}

// EnsembleSpectrum draws count random realizations of the model and returns their
// mean power spectrum over non-negative wavenumbers.
// The spectrum is normalized so that sp[0] + 2*sum(sp[1:]) == 1.
// It returns error if count is non-positive or if the realizations fail to be drawn.
func (m *Model) EnsembleSpectrum(count int, rnd *exprand.Rand) ([]float64, error) {
	samples, err := rand.WithCovN(m.matrix, count, rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to draw model realizations: %w", err)
	}

	n := m.grid.N()
	power := make([][]float64, n+1)
	for i := range power {
		power[i] = make([]float64, count)
	}

	for c := 0; c < count; c++ {
		p, err := m.grid.PowerSpectrum(samples.ColView(c))
		if err != nil {
			return nil, err
		}
		for i := range p {
			power[i][c] = p[i]
		}
	}

	sp := make([]float64, n+1)
	for i := range sp {
		sp[i] = stat.Mean(power[i], nil)
	}

	return normalize(sp), nil
}

// SpectralLength returns correlation length derived from the curvature of the
// correlation function at the origin, estimated from its power spectrum sp over
// non-negative wavenumbers of grid g.
// It returns error if sp length does not match the grid or the curvature is not positive.
func SpectralLength(g *grid.Grid, sp []float64) (float64, error) {
	if len(sp) != g.N()+1 {
		return 0, fmt.Errorf("invalid spectrum length %d: %w", len(sp), assimilate.ErrInconsistentShape)
	}

	k := g.HalfK()
	var curv float64
	for i := 1; i < len(k); i++ {
		q := 2 * math.Pi * k[i] / g.L()
		curv += 2 * q * q * sp[i]
	}

	if curv <= 0 {
		return 0, fmt.Errorf("non-positive spectrum curvature %g: %w", curv, assimilate.ErrInvalidParameter)
	}

	return 1 / math.Sqrt(curv), nil
}

// normalize scales sp in place so that sp[0] + 2*sum(sp[1:]) == 1 and returns it.
func normalize(sp []float64) []float64 {
	total := 2*floats.Sum(sp) - sp[0]
	floats.Scale(1/total, sp)

	return sp
}

// String implements the Stringer interface.
func (m *Model) String() string {
	return fmt.Sprintf("%v{Lc=%g, Lp=%g, eFold=%g}", m.kind, m.lc, m.lp, m.eFold)
}
