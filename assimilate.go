// Package assimilate holds the interfaces and errors shared by the spectral
// data assimilation packages.
package assimilate

import "gonum.org/v1/gonum/mat"

// Propagator advances a system one timestep forward
type Propagator interface {
	// PropagateState propagates state vector x to the next step
	PropagateState(x mat.Vector) (*mat.VecDense, error)
	// PropagateCov propagates covariance matrix c to the next step
	PropagateCov(c mat.Symmetric) (*mat.SymDense, error)
	// Dim returns the dimension of the propagated state
	Dim() int
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset reseeds the noise source
	Reset(seed uint64)
}

// Estimate is an assimilation estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}
