// Package kf implements the linear Kalman Filter of a fully observed grid field
// in the Optimal Interpolation form.
package kf

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/estimate"
	"github.com/milosgajdos/go-assimilate/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// KF is Kalman Filter
type KF struct {
	// m is forecast model
	m assimilate.Propagator
	// r is observation error covariance
	r *mat.SymDense
	// q is model error covariance
	q *mat.SymDense
	// b is forecast (background) error covariance
	b *mat.SymDense
	// a is analysis error covariance
	a *mat.SymDense
	// inn is innovation vector
	inn *mat.VecDense
	// k is Kalman gain
	k *mat.Dense
	// logLik is log-likelihood of the last innovation
	logLik float64
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - m: forecast model
//   - b: initial forecast error covariance
//   - r: observation error covariance
//   - q: model error covariance; nil means perfect model
//
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimension must be positive
//   - b or r is nil
//   - any of the covariances does not match the model dimension
func New(m assimilate.Propagator, b, r, q mat.Symmetric) (*KF, error) {
	if m == nil || m.Dim() <= 0 {
		return nil, fmt.Errorf("invalid model: %w", assimilate.ErrInvalidParameter)
	}

	n := m.Dim()

	if b == nil || b.SymmetricDim() != n {
		return nil, fmt.Errorf("invalid forecast covariance, expected dimension %d: %w", n, assimilate.ErrDimensionMismatch)
	}

	if r == nil || r.SymmetricDim() != n {
		return nil, fmt.Errorf("invalid observation covariance, expected dimension %d: %w", n, assimilate.ErrDimensionMismatch)
	}

	if q != nil && q.SymmetricDim() != n {
		return nil, fmt.Errorf("invalid model error covariance dimension: %d: %w", q.SymmetricDim(), assimilate.ErrDimensionMismatch)
	}

	for _, c := range []mat.Symmetric{b, r, q} {
		if c != nil && !matrix.IsFinite(c) {
			return nil, fmt.Errorf("covariance contains NaN or Inf: %w", assimilate.ErrInvalidParameter)
		}
	}

	kf := &KF{
		m:      m,
		r:      copySym(r),
		q:      mat.NewSymDense(n, nil),
		b:      copySym(b),
		a:      copySym(b),
		inn:    mat.NewVecDense(n, nil),
		k:      mat.NewDense(n, n, nil),
		logLik: math.NaN(),
	}

	if q != nil {
		kf.q.CopySym(q)
	}

	return kf, nil
}

func copySym(s mat.Symmetric) *mat.SymDense {
	c := mat.NewSymDense(s.SymmetricDim(), nil)
	c.CopySym(s)

	return c
}

// analysis computes Kalman gain and analysis covariance from forecast covariance b.
func (k *KF) analysis(b *mat.SymDense) (*mat.Dense, *mat.SymDense, error) {
	n := b.SymmetricDim()

	// B + R
	s := &mat.Dense{}
	s.Add(b, k.r)

	sInv := &mat.Dense{}
	if err := sInv.Inverse(s); err != nil {
		return nil, nil, fmt.Errorf("failed to invert B+R: %v: %w", err, assimilate.ErrSingularCovariance)
	}

	gain := &mat.Dense{}
	gain.Mul(b, sInv)

	eye, err := matrix.Eye(n)
	if err != nil {
		return nil, nil, err
	}

	// Joseph form (I-K)*B*(I-K)' + K*R*K' stays symmetric when K is inexact
	imk := &mat.Dense{}
	imk.Sub(eye, gain)
	a := &mat.Dense{}
	a.Product(imk, b, imk.T())
	krk := &mat.Dense{}
	krk.Product(gain, k.r, gain.T())
	a.Add(a, krk)

	aSym, err := matrix.Symmetrize(a, matrix.SymTol)
	if err != nil {
		return nil, nil, fmt.Errorf("analysis covariance: %w", err)
	}

	return gain, aSym, nil
}

// Update corrects background state xb using the observation y and returns analysis estimate.
// It returns error if either xb or y have invalid dimensions or if B+R is singular.
func (k *KF) Update(xb, y mat.Vector) (assimilate.Estimate, error) {
	n := k.m.Dim()

	if xb == nil || xb.Len() != n {
		return nil, fmt.Errorf("invalid background state supplied: %w", assimilate.ErrDimensionMismatch)
	}

	if y == nil || y.Len() != n {
		return nil, fmt.Errorf("invalid observation supplied: %w", assimilate.ErrDimensionMismatch)
	}

	gain, a, err := k.analysis(k.b)
	if err != nil {
		return nil, err
	}

	// innovation vector
	inn := &mat.VecDense{}
	inn.SubVec(y, xb)

	// update state
	xa := &mat.VecDense{}
	xa.MulVec(gain, inn)
	xa.AddVec(xa, xb)

	k.inn.CopyVec(inn)
	k.k.Copy(gain)
	k.a.CopySym(a)
	k.logLik = k.innovationLogLik(inn)

	return estimate.New(xa, k.a)
}

// innovationLogLik returns log-likelihood of innovation inn under N(0, B+R).
// It returns NaN if B+R is not positive definite.
func (k *KF) innovationLogLik(inn mat.Vector) float64 {
	n := inn.Len()

	s := mat.NewSymDense(n, nil)
	s.AddSym(k.b, k.r)

	dist, ok := distmv.NewNormal(make([]float64, n), s, nil)
	if !ok {
		return math.NaN()
	}

	return dist.LogProb(mat.Col(nil, 0, inn))
}

// Skip returns background state xb as the analysis estimate: no observation is
// assimilated, the gain is zero and analysis covariance equals forecast covariance.
// It returns error if xb has invalid dimension.
func (k *KF) Skip(xb mat.Vector) (assimilate.Estimate, error) {
	if xb == nil || xb.Len() != k.m.Dim() {
		return nil, fmt.Errorf("invalid background state supplied: %w", assimilate.ErrDimensionMismatch)
	}

	k.k.Zero()
	k.inn.Zero()
	k.a.CopySym(k.b)
	k.logLik = math.NaN()

	return estimate.New(xb, k.a)
}

// Predict propagates analysis state xa and analysis covariance to the next step
// and returns forecast estimate.
// It returns error if the model fails to propagate either state or covariance.
func (k *KF) Predict(xa mat.Vector) (assimilate.Estimate, error) {
	xb, err := k.m.PropagateState(xa)
	if err != nil {
		return nil, fmt.Errorf("state propagation failed: %w", err)
	}

	b, err := k.forecastCov(k.a)
	if err != nil {
		return nil, err
	}

	k.b.CopySym(b)

	return estimate.New(xb, k.b)
}

// forecastCov returns M(a) + Q.
func (k *KF) forecastCov(a *mat.SymDense) (*mat.SymDense, error) {
	b, err := k.m.PropagateCov(a)
	if err != nil {
		return nil, fmt.Errorf("covariance propagation failed: %w", err)
	}
	b.AddSym(b, k.q)

	if !matrix.IsFinite(b) {
		return nil, fmt.Errorf("forecast covariance contains NaN or Inf: %w", assimilate.ErrInvalidParameter)
	}

	return b, nil
}

// Run runs one assimilation cycle: it corrects background state xb with
// observation y and propagates the analysis to the next step.
// It returns the forecast estimate or error if either step fails.
func (k *KF) Run(xb, y mat.Vector) (assimilate.Estimate, error) {
	an, err := k.Update(xb, y)
	if err != nil {
		return nil, err
	}

	return k.Predict(an.Val())
}

// Steady iterates the forecast covariance recursion B' = M((I-K)B) + Q starting
// from the current forecast covariance until the infinity norm of its change drops
// below tol and returns the stationary forecast covariance and the number of iterations.
// Filter state is not modified.
// It returns error if the recursion fails or does not converge within maxIter iterations.
func (k *KF) Steady(maxIter int, tol float64) (*mat.SymDense, int, error) {
	if maxIter <= 0 || !(tol > 0) {
		return nil, 0, fmt.Errorf("invalid iteration parameters: %w", assimilate.ErrInvalidParameter)
	}

	b := copySym(k.b)
	diff := &mat.Dense{}
	for i := 1; i <= maxIter; i++ {
		_, a, err := k.analysis(b)
		if err != nil {
			return nil, i, err
		}

		next, err := k.forecastCov(a)
		if err != nil {
			return nil, i, err
		}

		diff.Sub(next, b)
		b = next
		if mat.Norm(diff, math.Inf(1)) < tol {
			return b, i, nil
		}
	}

	return nil, maxIter, fmt.Errorf("forecast covariance after %d iterations: %w", maxIter, assimilate.ErrNoConvergence)
}

// Model returns KF model
func (k *KF) Model() assimilate.Propagator {
	return k.m
}

// Cov returns KF forecast covariance
func (k *KF) Cov() mat.Symmetric {
	return copySym(k.b)
}

// AnalysisCov returns KF analysis covariance
func (k *KF) AnalysisCov() mat.Symmetric {
	return copySym(k.a)
}

// SetCov sets KF forecast covariance matrix to cov.
// It returns error if cov is nil, contains NaN or Inf values or its dimensions are not the same as KF covariance dimensions.
func (k *KF) SetCov(cov mat.Symmetric) error {
	if cov == nil {
		return fmt.Errorf("invalid covariance matrix: %w", assimilate.ErrDimensionMismatch)
	}

	if cov.SymmetricDim() != k.b.SymmetricDim() {
		return fmt.Errorf("invalid covariance matrix dims: [%d x %d]: %w",
			cov.SymmetricDim(), cov.SymmetricDim(), assimilate.ErrDimensionMismatch)
	}

	if !matrix.IsFinite(cov) {
		return fmt.Errorf("covariance contains NaN or Inf: %w", assimilate.ErrInvalidParameter)
	}

	k.b.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *KF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the last innovation vector
func (k *KF) Innovation() mat.Vector {
	inn := &mat.VecDense{}
	inn.CloneFromVec(k.inn)

	return inn
}

// LogLikelihood returns log-likelihood of the last innovation under N(0, B+R).
// It returns NaN if no observation has been assimilated since the last Skip
// or if B+R is not positive definite.
func (k *KF) LogLikelihood() float64 {
	return k.logLik
}
