package assimilate

import "errors"

// Every error returned by the packages of this module wraps one of the
// sentinels below; callers match them with errors.Is.
var (
	// ErrInvalidParameter is returned when a constructor receives a value
	// outside of its valid domain: non-positive truncation or domain length,
	// unreachable correlation length, negative viscosity, etc.
	ErrInvalidParameter = errors.New("assimilate: invalid parameter")

	// ErrTransformNotUnitary is returned when the Fourier matrix fails its
	// F*F' = I self-check.
	ErrTransformNotUnitary = errors.New("assimilate: transform not unitary")

	// ErrAsymmetry is returned when a covariance matrix is not symmetric
	// within tolerance.
	ErrAsymmetry = errors.New("assimilate: matrix is not symmetric")

	// ErrSingularCovariance is returned when the innovation covariance B+R
	// can not be inverted.
	ErrSingularCovariance = errors.New("assimilate: singular covariance")

	// ErrNegativeDiscriminant is returned when the stationary variance
	// equation has no real solution.
	ErrNegativeDiscriminant = errors.New("assimilate: negative discriminant")

	// ErrInconsistentShape is returned when spectrum arguments differ in length.
	ErrInconsistentShape = errors.New("assimilate: inconsistent argument shape")

	// ErrUnsupportedRank is returned when a propagator is applied to
	// something other than a state vector or a covariance matrix.
	ErrUnsupportedRank = errors.New("assimilate: unsupported rank")

	// ErrNoConvergence is returned when an iteration does not reach
	// its tolerance within the allowed number of iterations.
	ErrNoConvergence = errors.New("assimilate: no convergence")

	// ErrDimensionMismatch is returned when operand dimensions do not match
	// the grid they are used with.
	ErrDimensionMismatch = errors.New("assimilate: dimension mismatch")
)
