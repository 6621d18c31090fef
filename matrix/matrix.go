package matrix

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	gomatrix "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// SymTol is the relative tolerance of symmetry checks.
const SymTol = 1e-7

// Symmetrize checks m is symmetric within tol and returns the symmetric matrix
// holding the mean of m and its transpose. Entries are compared relative to
// each other and, for entries close to zero, relative to the largest absolute
// entry of m.
// It returns error if m is not square or if any pair of entries differs by more than tol.
func Symmetrize(m mat.Matrix, tol float64) (*mat.SymDense, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("invalid matrix dimensions [%d x %d]: %w", rows, cols, assimilate.ErrDimensionMismatch)
	}

	if i, j, ok := asymmetry(m, tol); !ok {
		return nil, fmt.Errorf("m[%d,%d]=%g, m[%d,%d]=%g: %w", i, j, m.At(i, j), j, i, m.At(j, i), assimilate.ErrAsymmetry)
	}

	sym := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return sym, nil
}

func asymmetry(m mat.Matrix, tol float64) (int, int, bool) {
	rows, cols := m.Dims()
	if rows != cols {
		return 0, 0, false
	}

	absTol := tol * max(1, maxAbs(m))
	for i := 0; i < rows; i++ {
		for j := 0; j < i; j++ {
			if !scalar.EqualWithinAbsOrRel(m.At(i, j), m.At(j, i), absTol, tol) {
				return i, j, false
			}
		}
	}

	return 0, 0, true
}

func maxAbs(m mat.Matrix) float64 {
	rows, cols := m.Dims()
	var mx float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			mx = max(mx, math.Abs(m.At(i, j)))
		}
	}

	return mx
}

// Diag returns a slice containing the diagonal of m.
// It panics if m is nil.
func Diag(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	n := min(rows, cols)
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = m.At(i, i)
	}

	return diag
}

// Eye returns n x n identity matrix.
// It returns error if n is non-positive.
func Eye(n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid identity size %d: %w", n, assimilate.ErrDimensionMismatch)
	}

	eye, err := gomatrix.NewDenseValIdentity(n, 1.0)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity matrix: %v", err)
	}

	return mat.DenseCopyOf(eye), nil
}

// IsFinite returns false if m contains any NaN or Inf values.
func IsFinite(m mat.Matrix) bool {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}

// Format returns m formatted for printing.
func Format(m mat.Matrix) fmt.Formatter {
	return gomatrix.Format(m)
}
