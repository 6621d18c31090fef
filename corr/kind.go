package corr

import (
	"fmt"
	"math"
	"strings"

	assimilate "github.com/milosgajdos/go-assimilate"
)

// Kind is correlation model kind
type Kind int

const (
	// Uncorrelated is a diagonal (identity) correlation model
	Uncorrelated Kind = iota
	// FOAR is first order autoregressive correlation model
	FOAR
	// SOAR is second order autoregressive correlation model
	SOAR
	// Gaussian is Gaussian correlation model
	Gaussian
)

// String implements the Stringer interface.
func (k Kind) String() string {
	switch k {
	case Uncorrelated:
		return "uncorrelated"
	case FOAR:
		return "foar"
	case SOAR:
		return "soar"
	case Gaussian:
		return "gaussian"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind returns Kind with the given name.
// It returns error if name does not name any correlation model.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{Uncorrelated, FOAR, SOAR, Gaussian} {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown correlation model %q: %w", name, assimilate.ErrInvalidParameter)
}

func (k Kind) valid() bool {
	return k >= Uncorrelated && k <= Gaussian
}

// rho evaluates normalized radial correlation function of kind k at distance r
// for the length parameter lp.
func (k Kind) rho(r, lp float64) float64 {
	switch k {
	case FOAR:
		x := math.Abs(r) / lp
		return math.Exp(-x)
	case SOAR:
		x := math.Abs(r) / lp
		return (1 + x) * math.Exp(-x)
	case Gaussian:
		return math.Exp(-r * r / (2 * lp * lp))
	default:
		if r == 0 {
			return 1
		}
		return 0
	}
}

// spectrum evaluates the infinite domain power spectrum of kind k at angular
// wavenumber q for the length parameter lp. It is not normalized.
func (k Kind) spectrum(q, lp float64) float64 {
	switch k {
	case FOAR:
		return 1 / (1 + q*q*lp*lp)
	case SOAR:
		return math.Pow(1+q*q*lp*lp, -2)
	case Gaussian:
		return math.Exp(-q * q * lp * lp / 2)
	default:
		return 1
	}
}

const (
	// eFoldWindow is the initial e-fold search window [0, eFoldWindow]
	eFoldWindow = 3.0
	// eFoldRes is the number of samples of the e-fold search window
	eFoldRes = 1000
	// eFoldMaxWindow bounds the e-fold search window growth
	eFoldMaxWindow = 1000.0
)

// EFold returns the distance r* at which the correlation function of kind k
// with unit length parameter first drops to or below 1/sqrt(e). The search
// starts on [0,3] and grows the window by 1 until the crossing is found.
// EFold returns 0 for Uncorrelated.
// It returns error if kind is unknown or no crossing is found.
func EFold(k Kind) (float64, error) {
	if !k.valid() {
		return 0, fmt.Errorf("unknown correlation model %v: %w", k, assimilate.ErrInvalidParameter)
	}

	if k == Uncorrelated {
		return 0, nil
	}

	threshold := k.rho(0, 1) / math.Sqrt(math.E)
	for maxR := eFoldWindow; maxR <= eFoldMaxWindow; maxR++ {
		for i := 0; i < eFoldRes; i++ {
			r := maxR * float64(i) / float64(eFoldRes-1)
			if k.rho(r, 1) <= threshold {
				return r, nil
			}
		}
	}

	return 0, fmt.Errorf("%v correlation does not decay within %g: %w", k, eFoldMaxWindow, assimilate.ErrInvalidParameter)
}
