// Package model implements the linear advection-diffusion forecast model
// of a periodic grid field.
package model

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/grid"
	"github.com/milosgajdos/go-assimilate/matrix"
	"gonum.org/v1/gonum/mat"
)

// AdvectionDiffusion advects a periodic field with constant wind speed and
// damps its Fourier modes with constant viscosity over one timestep.
type AdvectionDiffusion struct {
	// grid is the periodic grid
	grid *grid.Grid
	// u is wind speed
	u float64
	// dt is timestep
	dt float64
	// nu is viscosity
	nu float64
	// s is spectral propagator
	s *mat.Dense
	// m is grid space propagator
	m *mat.Dense
}

// NewAdvectionDiffusion creates new advection-diffusion model on grid g with wind speed u,
// timestep dt and viscosity nu and returns it.
// It returns error if either of the following conditions is met:
//   - g is nil
//   - any of u, dt, nu is not finite
//   - dt or nu is negative
func NewAdvectionDiffusion(g *grid.Grid, u, dt, nu float64) (*AdvectionDiffusion, error) {
	if g == nil {
		return nil, fmt.Errorf("invalid grid: %w", assimilate.ErrInvalidParameter)
	}

	for _, v := range []float64{u, dt, nu} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite model parameter %g: %w", v, assimilate.ErrInvalidParameter)
		}
	}

	if dt < 0 {
		return nil, fmt.Errorf("invalid timestep %g: %w", dt, assimilate.ErrInvalidParameter)
	}

	if nu < 0 {
		return nil, fmt.Errorf("invalid viscosity %g: %w", nu, assimilate.ErrInvalidParameter)
	}

	a := &AdvectionDiffusion{
		grid: g,
		u:    u,
		dt:   dt,
		nu:   nu,
	}

	a.s = a.spectral()

	f := g.F()
	a.m = &mat.Dense{}
	a.m.Product(f, a.s, f.T())

	return a, nil
}

// spectral builds block diagonal spectral propagator.
func (a *AdvectionDiffusion) spectral() *mat.Dense {
	n, l := a.grid.N(), a.grid.L()
	s := mat.NewDense(a.grid.J(), a.grid.J(), nil)
	s.Set(0, 0, 1.0)
	for j := 1; j <= n; j++ {
		phi := 2 * math.Pi * float64(j) * a.u * a.dt / l
		amp := a.Amplitude(float64(j))
		sin, cos := math.Sincos(phi)
		s.Set(2*j-1, 2*j-1, amp*cos)
		s.Set(2*j-1, 2*j, -amp*sin)
		s.Set(2*j, 2*j-1, amp*sin)
		s.Set(2*j, 2*j, amp*cos)
	}

	return s
}

// Amplitude returns damping amplitude of wavenumber k over one timestep.
func (a *AdvectionDiffusion) Amplitude(k float64) float64 {
	l := a.grid.L()
	return math.Exp(-4 * math.Pi * math.Pi * a.nu * a.dt * k * k / (l * l))
}

// Grid returns model grid
func (a *AdvectionDiffusion) Grid() *grid.Grid { return a.grid }

// Dim returns model state dimension
func (a *AdvectionDiffusion) Dim() int { return a.grid.J() }

// SpectralMatrix returns spectral propagator
func (a *AdvectionDiffusion) SpectralMatrix() mat.Matrix {
	s := &mat.Dense{}
	s.CloneFrom(a.s)

	return s
}

// GridMatrix returns grid space propagator
func (a *AdvectionDiffusion) GridMatrix() mat.Matrix {
	m := &mat.Dense{}
	m.CloneFrom(a.m)

	return m
}

// PropagateState propagates state x one timestep forward and returns it.
// It returns error if x length does not match the grid.
func (a *AdvectionDiffusion) PropagateState(x mat.Vector) (*mat.VecDense, error) {
	if x == nil || x.Len() != a.grid.J() {
		return nil, fmt.Errorf("invalid state vector length: %w", assimilate.ErrDimensionMismatch)
	}

	out := mat.NewVecDense(a.grid.J(), nil)
	out.MulVec(a.m, x)

	return out, nil
}

// PropagateCov propagates covariance c one timestep forward and returns it.
// It returns error if c dimension does not match the grid or if the
// propagated covariance is not symmetric.
func (a *AdvectionDiffusion) PropagateCov(c mat.Symmetric) (*mat.SymDense, error) {
	if c == nil || c.SymmetricDim() != a.grid.J() {
		return nil, fmt.Errorf("invalid covariance dimension: %w", assimilate.ErrDimensionMismatch)
	}

	cov := &mat.Dense{}
	cov.Product(a.m, c, a.m.T())

	return matrix.Symmetrize(cov, matrix.SymTol)
}

// Apply propagates x one timestep forward: state vectors are propagated by
// PropagateState and square matrices by PropagateCov.
// It returns error if x is neither a vector nor a square matrix or if a square
// matrix is not symmetric.
func (a *AdvectionDiffusion) Apply(x mat.Matrix) (mat.Matrix, error) {
	switch v := x.(type) {
	case mat.Vector:
		out, err := a.PropagateState(v)
		if err != nil {
			return nil, err
		}
		return out, nil
	case mat.Symmetric:
		out, err := a.PropagateCov(v)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	if x == nil {
		return nil, fmt.Errorf("can not propagate nil: %w", assimilate.ErrUnsupportedRank)
	}

	if r, c := x.Dims(); r != c {
		return nil, fmt.Errorf("can not propagate %d x %d %T: %w", r, c, x, assimilate.ErrUnsupportedRank)
	}

	sym, err := matrix.Symmetrize(x, matrix.SymTol)
	if err != nil {
		return nil, err
	}

	out, err := a.PropagateCov(sym)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// String implements the Stringer interface.
func (a *AdvectionDiffusion) String() string {
	return fmt.Sprintf("AdvectionDiffusion{%v, U=%g, dt=%g, nu=%g}", a.grid, a.u, a.dt, a.nu)
}
