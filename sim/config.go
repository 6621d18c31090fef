package sim

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/corr"
)

const (
	km   = 1000.0
	hour = 3600.0
)

// Physics is advection-diffusion model configuration
type Physics struct {
	// U is wind speed
	U float64
	// Nu is viscosity
	Nu float64
}

// ErrorStats are error statistics of a single error source
type ErrorStats struct {
	// Kind is correlation model kind
	Kind corr.Kind
	// Lc is correlation length; ignored for uncorrelated errors
	Lc float64
	// Bias is constant error bias
	Bias float64
	// Var is constant error variance
	Var float64
}

// Config is assimilation experiment configuration
type Config struct {
	// N is grid spectral truncation
	N int
	// L is domain length
	L float64
	// Dt is assimilation window length
	Dt float64
	// Model is forecast model physics
	Model Physics
	// Truth is true system physics
	Truth Physics
	// Obs are observation error statistics
	Obs ErrorStats
	// Fct are initial forecast error statistics
	Fct ErrorStats
	// Mod are model error statistics
	Mod ErrorStats
	// NDt is number of assimilation windows
	NDt int
	// Seed seeds the random sources of the experiment
	Seed uint64
	// Assimilate enables observation assimilation
	Assimilate bool
	// Init is initial true state; nil means a Gaussian bump in the domain center
	Init []float64
}

// DefaultConfig returns configuration of a perfect model assimilation of
// uncorrelated observations of a field advected at 100 km/h.
func DefaultConfig() Config {
	l := 16000 * km

	return Config{
		N:     48,
		L:     l,
		Dt:    hour,
		Model: Physics{U: 100 * km / hour},
		Truth: Physics{U: 100 * km / hour},
		Obs:   ErrorStats{Kind: corr.Uncorrelated, Var: 0.1},
		Fct:   ErrorStats{Kind: corr.SOAR, Lc: l / 20, Var: 2.0},
		Mod:   ErrorStats{Kind: corr.Gaussian, Lc: l / 50, Var: 0.01},
		NDt:   10,
		Seed:  213134,

		Assimilate: true,
	}
}

// Viscosity returns viscosity which damps modes of domain of length l at the rate
// given by factor over timestep dt.
func Viscosity(factor, dt, l float64) float64 {
	return factor / dt * math.Pow(2*math.Pi*l, 2)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Validate returns error if the configuration is invalid.
// Correlation lengths are validated when the correlation models are built.
func (c Config) Validate() error {
	if c.N < 1 {
		return fmt.Errorf("invalid truncation %d: %w", c.N, assimilate.ErrInvalidParameter)
	}

	if !finite(c.L, c.Dt, c.Model.U, c.Model.Nu, c.Truth.U, c.Truth.Nu) {
		return fmt.Errorf("non-finite physical parameter: %w", assimilate.ErrInvalidParameter)
	}

	if c.L <= 0 || c.Dt < 0 {
		return fmt.Errorf("invalid domain length %g or timestep %g: %w", c.L, c.Dt, assimilate.ErrInvalidParameter)
	}

	if c.Model.Nu < 0 || c.Truth.Nu < 0 {
		return fmt.Errorf("negative viscosity: %w", assimilate.ErrInvalidParameter)
	}

	if c.NDt < 0 {
		return fmt.Errorf("invalid number of assimilation windows %d: %w", c.NDt, assimilate.ErrInvalidParameter)
	}

	for name, s := range map[string]ErrorStats{"observation": c.Obs, "forecast": c.Fct, "model": c.Mod} {
		if !finite(s.Lc, s.Bias, s.Var) || s.Var < 0 {
			return fmt.Errorf("invalid %s error statistics %+v: %w", name, s, assimilate.ErrInvalidParameter)
		}
	}

	if c.Init != nil && len(c.Init) != 2*c.N+1 {
		return fmt.Errorf("invalid initial state length %d: %w", len(c.Init), assimilate.ErrInvalidParameter)
	}

	return nil
}
