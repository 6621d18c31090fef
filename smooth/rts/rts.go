// Package rts implements Rauch-Tung-Striebel smoother of linear Kalman filter analyses.
package rts

import (
	"fmt"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/estimate"
	"github.com/milosgajdos/go-assimilate/matrix"
	"gonum.org/v1/gonum/mat"
)

// RTS is Rauch-Tung-Striebel smoother
type RTS struct {
	// m is forecast model
	m assimilate.Propagator
	// q is model error covariance
	q *mat.SymDense
}

// New creates new RTS for model m with model error covariance q and returns it.
// If q is nil the model is assumed to be perfect.
// It returns error if m is nil or q dimension does not match the model.
func New(m assimilate.Propagator, q mat.Symmetric) (*RTS, error) {
	if m == nil || m.Dim() <= 0 {
		return nil, fmt.Errorf("invalid model: %w", assimilate.ErrInvalidParameter)
	}

	qc := mat.NewSymDense(m.Dim(), nil)
	if q != nil {
		if q.SymmetricDim() != m.Dim() {
			return nil, fmt.Errorf("invalid model error dimension: %d: %w", q.SymmetricDim(), assimilate.ErrDimensionMismatch)
		}
		qc.CopySym(q)
	}

	return &RTS{
		m: m,
		q: qc,
	}, nil
}

// gain returns smoother gain A*M'*B^-1 where b is the forecast covariance propagated from a.
func (s *RTS) gain(a mat.Symmetric, b mat.Symmetric) (*mat.Dense, error) {
	n := a.SymmetricDim()

	// M*A column by column; A*M' is its transpose as A is symmetric
	ma := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		col, err := s.m.PropagateState(mat.NewVecDense(n, mat.Col(nil, j, a)))
		if err != nil {
			return nil, err
		}
		ma.SetCol(j, col.RawVector().Data)
	}

	bInv := &mat.Dense{}
	if err := bInv.Inverse(b); err != nil {
		return nil, fmt.Errorf("failed to invert forecast covariance: %v: %w", err, assimilate.ErrSingularCovariance)
	}

	c := &mat.Dense{}
	c.Mul(ma.T(), bInv)

	return c, nil
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm.
// It smooths analysis estimates est ordered in time and returns the smoothed estimates.
// It returns error if est is empty, estimate dimensions do not match the model
// or if any of the forecast covariances is singular.
func (s *RTS) Smooth(est []assimilate.Estimate) ([]assimilate.Estimate, error) {
	if len(est) == 0 {
		return nil, fmt.Errorf("no estimates to smooth: %w", assimilate.ErrInvalidParameter)
	}

	n := s.m.Dim()
	for i := range est {
		if est[i] == nil || est[i].Val().Len() != n || est[i].Cov().SymmetricDim() != n {
			return nil, fmt.Errorf("invalid estimate %d: %w", i, assimilate.ErrDimensionMismatch)
		}
	}

	sx := make([]assimilate.Estimate, len(est))
	sx[len(est)-1] = est[len(est)-1]

	for i := len(est) - 2; i >= 0; i-- {
		xa, a := est[i].Val(), est[i].Cov()

		// forecast from the analysis
		xb, err := s.m.PropagateState(xa)
		if err != nil {
			return nil, fmt.Errorf("state propagation failed: %w", err)
		}

		b, err := s.m.PropagateCov(a)
		if err != nil {
			return nil, fmt.Errorf("covariance propagation failed: %w", err)
		}
		b.AddSym(b, s.q)

		c, err := s.gain(a, b)
		if err != nil {
			return nil, fmt.Errorf("estimate %d: %w", i, err)
		}

		// xa + C*(xs - xb)
		d := &mat.VecDense{}
		d.SubVec(sx[i+1].Val(), xb)
		x := &mat.VecDense{}
		x.MulVec(c, d)
		x.AddVec(xa, x)

		// A + C*(Ps - B)*C'
		diff := &mat.Dense{}
		diff.Sub(sx[i+1].Cov(), b)
		p := &mat.Dense{}
		p.Product(c, diff, c.T())
		p.Add(a, p)

		pSmooth, err := matrix.Symmetrize(p, matrix.SymTol)
		if err != nil {
			return nil, fmt.Errorf("smoothed covariance %d: %w", i, err)
		}

		e, err := estimate.New(x, pSmooth)
		if err != nil {
			return nil, err
		}
		sx[i] = e
	}

	return sx, nil
}
