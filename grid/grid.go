// Package grid implements a centered periodic 1-D grid and its real
// orthonormal Fourier transform.
package grid

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/matrix"
	"gonum.org/v1/gonum/mat"
)

// UnitaryTol is the tolerance of the F*F' = I check.
const UnitaryTol = 1e-10

// Grid is a centered periodic grid of J = 2N+1 points spanning domain of length L.
type Grid struct {
	// n is spectral truncation
	n int
	// l is domain length (period)
	l float64
	// j is number of grid points
	j int
	// x stores grid coordinates
	x []float64
	// halfK stores non-negative wavenumbers 0..N
	halfK []float64
	// k stores signed wavenumbers -N..N
	k []float64
	// f is the orthonormal Fourier matrix: columns are modes, rows are grid points
	f *mat.Dense
}

// New creates new Grid with truncation n and domain length l and returns it.
// It returns error if either of the following conditions is met:
//   - n is smaller than 1
//   - l is not a positive finite number
//   - the Fourier matrix fails its unitarity check
func New(n int, l float64) (*Grid, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid truncation %d: %w", n, assimilate.ErrInvalidParameter)
	}

	if l <= 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return nil, fmt.Errorf("invalid domain length %g: %w", l, assimilate.ErrInvalidParameter)
	}

	j := 2*n + 1

	x := make([]float64, j)
	k := make([]float64, j)
	for i := range x {
		k[i] = float64(i - n)
		x[i] = l * k[i] / float64(j)
	}

	halfK := make([]float64, n+1)
	for i := range halfK {
		halfK[i] = float64(i)
	}

	g := &Grid{
		n:     n,
		l:     l,
		j:     j,
		x:     x,
		halfK: halfK,
		k:     k,
	}

	f, err := g.fourier()
	if err != nil {
		return nil, err
	}
	g.f = f

	return g, nil
}

// fourier builds the real Fourier matrix and checks it is unitary.
func (g *Grid) fourier() (*mat.Dense, error) {
	f := mat.NewDense(g.j, g.j, nil)
	for i := 0; i < g.j; i++ {
		f.Set(i, 0, 1/math.Sqrt2)
		for n := 1; n <= g.n; n++ {
			arg := 2 * math.Pi * float64(n) * g.x[i] / g.l
			f.Set(i, 2*n-1, math.Cos(arg))
			f.Set(i, 2*n, math.Sin(arg))
		}
	}
	f.Scale(math.Sqrt(2/float64(g.j)), f)

	ffT := &mat.Dense{}
	ffT.Mul(f, f.T())

	eye, err := matrix.Eye(g.j)
	if err != nil {
		return nil, err
	}

	if !mat.EqualApprox(ffT, eye, UnitaryTol) {
		return nil, fmt.Errorf("F*F' differs from identity: %w", assimilate.ErrTransformNotUnitary)
	}

	return f, nil
}

// N returns spectral truncation
func (g *Grid) N() int { return g.n }

// L returns domain length
func (g *Grid) L() float64 { return g.l }

// J returns number of grid points
func (g *Grid) J() int { return g.j }

// Dx returns grid spacing
func (g *Grid) Dx() float64 { return g.l / float64(g.j) }

// X returns grid coordinates
func (g *Grid) X() []float64 { return clone(g.x) }

// HalfK returns non-negative wavenumbers 0..N
func (g *Grid) HalfK() []float64 { return clone(g.halfK) }

// K returns signed wavenumbers -N..N
func (g *Grid) K() []float64 { return clone(g.k) }

// F returns the Fourier matrix
func (g *Grid) F() mat.Matrix {
	f := &mat.Dense{}
	f.CloneFrom(g.f)

	return f
}

// Distance returns periodic distance between grid points i and j.
func (g *Grid) Distance(i, j int) float64 {
	d := math.Abs(g.x[i] - g.x[j])
	if d > g.l/2 {
		d = g.l - d
	}

	return d
}

// Transform returns F*signal.
// It returns error if signal length is different from J.
func (g *Grid) Transform(signal mat.Vector) (*mat.VecDense, error) {
	if err := g.checkLen(signal); err != nil {
		return nil, err
	}

	sp := mat.NewVecDense(g.j, nil)
	sp.MulVec(g.f, signal)

	return sp, nil
}

// Inverse returns F'*spectrum.
// It returns error if spectrum length is different from J.
func (g *Grid) Inverse(spectrum mat.Vector) (*mat.VecDense, error) {
	if err := g.checkLen(spectrum); err != nil {
		return nil, err
	}

	x := mat.NewVecDense(g.j, nil)
	x.MulVec(g.f.T(), spectrum)

	return x, nil
}

// Modes returns coefficients of signal on the columns of F ordered as
// [mean, cos1, sin1, ..., cosN, sinN]. These are the coordinates the
// spectral propagator acts on.
// It returns error if signal length is different from J.
func (g *Grid) Modes(signal mat.Vector) (*mat.VecDense, error) {
	return g.Inverse(signal)
}

// PowerSpectrum returns power of signal for every non-negative wavenumber:
// p[0] is the squared mean coefficient and p[n] the mean of squared cosine
// and sine coefficients of wavenumber n.
// It returns error if signal length is different from J.
func (g *Grid) PowerSpectrum(signal mat.Vector) ([]float64, error) {
	a, err := g.Modes(signal)
	if err != nil {
		return nil, err
	}

	p := make([]float64, g.n+1)
	p[0] = a.AtVec(0) * a.AtVec(0)
	for n := 1; n <= g.n; n++ {
		c, s := a.AtVec(2*n-1), a.AtVec(2*n)
		p[n] = 0.5 * (c*c + s*s)
	}

	return p, nil
}

// Ticks returns nTicks evenly spaced grid indexes and their coordinates.
// It returns nil slices if nTicks is smaller than 2.
func (g *Grid) Ticks(nTicks int) ([]int, []float64) {
	if nTicks < 2 {
		return nil, nil
	}

	idx := make([]int, nTicks)
	ticks := make([]float64, nTicks)
	for i := range idx {
		idx[i] = min(i*(g.j-1)/(nTicks-1), g.j-1)
		ticks[i] = g.x[idx[i]]
	}

	return idx, ticks
}

func (g *Grid) checkLen(v mat.Vector) error {
	if v == nil || v.Len() != g.j {
		return fmt.Errorf("invalid vector length, expected %d: %w", g.j, assimilate.ErrDimensionMismatch)
	}

	return nil
}

// String implements the Stringer interface.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid{N=%d, L=%g, J=%d}", g.n, g.l, g.j)
}

func clone(s []float64) []float64 {
	c := make([]float64, len(s))
	copy(c, s)

	return c
}
