package variance

import (
	"fmt"
	"iter"
	"slices"

	assimilate "github.com/milosgajdos/go-assimilate"
)

// checkShape returns error if the spectra differ in length.
func checkShape(spectra ...[]float64) error {
	for i := 1; i < len(spectra); i++ {
		if len(spectra[i]) != len(spectra[0]) {
			return fmt.Errorf("spectrum %d has length %d, expected %d: %w",
				i, len(spectra[i]), len(spectra[0]), assimilate.ErrInconsistentShape)
		}
	}

	return nil
}

// AnalysisSpectrum returns analysis error variance spectrum.
// It returns error if the spectra differ in length.
func AnalysisSpectrum(f2, r2 []float64) ([]float64, error) {
	if err := checkShape(f2, r2); err != nil {
		return nil, err
	}

	a2 := make([]float64, len(f2))
	for i := range a2 {
		a2[i] = Analysis(f2[i], r2[i])
	}

	return a2, nil
}

// PropagateSpectrum returns forecast variance spectrum of the next assimilation cycle.
// It returns error if the spectra differ in length.
func PropagateSpectrum(f2, r2, q2, m2 []float64) ([]float64, error) {
	if err := checkShape(f2, r2, q2, m2); err != nil {
		return nil, err
	}

	return propagate(f2, r2, q2, m2), nil
}

func propagate(f2, r2, q2, m2 []float64) []float64 {
	next := make([]float64, len(f2))
	for i := range next {
		next[i] = Propagate(f2[i], r2[i], q2[i], m2[i])
	}

	return next
}

// IterateSpectrum returns sequence of n successive forecast variance spectra starting from f2.
// Every yielded spectrum is a new slice. The sequence does not include f2 and can be
// iterated repeatedly.
// It returns error if the spectra differ in length.
func IterateSpectrum(f2, r2, q2, m2 []float64, n int) (iter.Seq[[]float64], error) {
	if err := checkShape(f2, r2, q2, m2); err != nil {
		return nil, err
	}

	f2, r2, q2, m2 = slices.Clone(f2), slices.Clone(r2), slices.Clone(q2), slices.Clone(m2)

	return func(yield func([]float64) bool) {
		f := f2
		for i := 0; i < n; i++ {
			f = propagate(f, r2, q2, m2)
			if !yield(f) {
				return
			}
		}
	}, nil
}

// StationarySpectrum returns the stable and the unstable stationary forecast variance spectra.
// It returns error if the spectra differ in length or if the stationary equation
// has no real solution for any wavenumber.
func StationarySpectrum(r2, q2, m2 []float64) ([]float64, []float64, error) {
	if err := checkShape(r2, q2, m2); err != nil {
		return nil, nil, err
	}

	plus := make([]float64, len(r2))
	minus := make([]float64, len(r2))
	for i := range r2 {
		p, m, err := Stationary(r2[i], q2[i], m2[i])
		if err != nil {
			return nil, nil, fmt.Errorf("wavenumber %d: %w", i, err)
		}
		plus[i], minus[i] = p, m
	}

	return plus, minus, nil
}

// ConvRateSpectrum returns convergence rate spectrum of forecast variance spectrum f2.
// It returns error if the spectra differ in length.
func ConvRateSpectrum(f2, r2, q2, m2 []float64) ([]float64, error) {
	if err := checkShape(f2, r2, q2, m2); err != nil {
		return nil, err
	}

	c := make([]float64, len(f2))
	for i := range c {
		c[i] = ConvRate(f2[i], r2[i], q2[i], m2[i])
	}

	return c, nil
}

// AsymptoticConvRateSpectrum returns convergence rate spectrum at the stable stationary variance.
// It returns error if the spectra differ in length or if the stationary equation
// has no real solution for any wavenumber.
func AsymptoticConvRateSpectrum(r2, q2, m2 []float64) ([]float64, error) {
	if err := checkShape(r2, q2, m2); err != nil {
		return nil, err
	}

	c := make([]float64, len(r2))
	for i := range r2 {
		rate, err := AsymptoticConvRate(r2[i], q2[i], m2[i])
		if err != nil {
			return nil, fmt.Errorf("wavenumber %d: %w", i, err)
		}
		c[i] = rate
	}

	return c, nil
}
