// Package variance implements the per-wavenumber forecast error variance recursion
// of a Kalman filter assimilating observations of an advection-diffusion process.
//
// Every quantity is a power spectrum component: f2 is forecast error variance,
// r2 observation error variance, q2 model error variance and m2 squared model
// damping. Scalar functions act on a single wavenumber, the ...Spectrum functions
// apply the same formulas element-wise over the non-negative half spectrum.
package variance

import (
	"fmt"
	"iter"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/grid"
)

// Dynamics provides squared model damping of a grid
type Dynamics struct {
	// grid is the periodic grid
	grid *grid.Grid
	// dt is timestep
	dt float64
	// nu is viscosity
	nu float64
}

// New creates new Dynamics for grid g, timestep dt and viscosity nu and returns it.
// It returns error if g is nil or if dt or nu are negative or not finite.
func New(g *grid.Grid, dt, nu float64) (*Dynamics, error) {
	if g == nil {
		return nil, fmt.Errorf("invalid grid: %w", assimilate.ErrInvalidParameter)
	}

	if !(dt >= 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("invalid timestep %g: %w", dt, assimilate.ErrInvalidParameter)
	}

	if !(nu >= 0) || math.IsInf(nu, 0) {
		return nil, fmt.Errorf("invalid viscosity %g: %w", nu, assimilate.ErrInvalidParameter)
	}

	return &Dynamics{
		grid: g,
		dt:   dt,
		nu:   nu,
	}, nil
}

// Damping returns squared model damping of wavenumber k.
func (d *Dynamics) Damping(k float64) float64 {
	l := d.grid.L()
	return math.Exp(-4 * math.Pi * math.Pi * d.nu * d.dt * k * k / (l * l))
}

// DampingSpectrum returns squared model damping of all non-negative wavenumbers.
func (d *Dynamics) DampingSpectrum() []float64 {
	k := d.grid.HalfK()
	m2 := make([]float64, len(k))
	for i := range k {
		m2[i] = d.Damping(k[i])
	}

	return m2
}

// Grid returns dynamics grid
func (d *Dynamics) Grid() *grid.Grid { return d.grid }

// Analysis returns analysis error variance given forecast variance f2
// and observation variance r2.
func Analysis(f2, r2 float64) float64 {
	return r2 * f2 / (r2 + f2)
}

// Propagate returns forecast variance of the next assimilation cycle.
func Propagate(f2, r2, q2, m2 float64) float64 {
	return m2*Analysis(f2, r2) + q2
}

// Iterate returns sequence of n successive forecast variances starting from f2.
// The sequence does not include f2 and can be iterated repeatedly.
func Iterate(f2, r2, q2, m2 float64, n int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		f := f2
		for i := 0; i < n; i++ {
			f = Propagate(f, r2, q2, m2)
			if !yield(f) {
				return
			}
		}
	}
}

// discriminant returns alpha and beta of the stationary variance equation.
func discriminant(r2, q2, m2 float64) (float64, float64) {
	alpha := 0.5 * (q2 + r2*(m2+1))
	beta := alpha*alpha - m2*r2*r2

	return alpha, beta
}

// Stationary returns the stable (physical) and the unstable (unphysical)
// stationary forecast variance.
// It returns error if the stationary equation has no real solution.
func Stationary(r2, q2, m2 float64) (float64, float64, error) {
	alpha, beta := discriminant(r2, q2, m2)
	if beta < 0 {
		return 0, 0, fmt.Errorf("r2=%g q2=%g m2=%g: %w", r2, q2, m2, assimilate.ErrNegativeDiscriminant)
	}

	sqrtBeta := math.Sqrt(beta)

	return alpha - r2 + sqrtBeta, alpha - r2 - sqrtBeta, nil
}

// ConvRate returns convergence rate of forecast variance f2.
func ConvRate(f2, r2, q2, m2 float64) float64 {
	return (m2*r2 + q2 - f2) / (f2 + r2)
}

// AsymptoticConvRate returns convergence rate at the stable stationary variance.
// It returns error if the stationary equation has no real solution.
func AsymptoticConvRate(r2, q2, m2 float64) (float64, error) {
	alpha, beta := discriminant(r2, q2, m2)
	if beta < 0 {
		return 0, fmt.Errorf("r2=%g q2=%g m2=%g: %w", r2, q2, m2, assimilate.ErrNegativeDiscriminant)
	}

	sqrtBeta := math.Sqrt(beta)

	return (alpha - sqrtBeta) / (alpha + sqrtBeta), nil
}
