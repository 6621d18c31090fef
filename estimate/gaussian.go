// Package estimate implements state estimates returned by the assimilation filters.
package estimate

import (
	"fmt"

	assimilate "github.com/milosgajdos/go-assimilate"
	"gonum.org/v1/gonum/mat"
)

// Gaussian is a state estimate described by its mean and error covariance
type Gaussian struct {
	val *mat.VecDense
	cov *mat.SymDense
}

// New returns Gaussian estimate with mean val and error covariance cov.
// Both are copied. It returns error if either is nil or their dimensions differ.
func New(val mat.Vector, cov mat.Symmetric) (*Gaussian, error) {
	if val == nil || cov == nil {
		return nil, fmt.Errorf("invalid estimate: %w", assimilate.ErrDimensionMismatch)
	}

	if val.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("state length %d, covariance dimension %d: %w", val.Len(), cov.SymmetricDim(), assimilate.ErrDimensionMismatch)
	}

	g := &Gaussian{
		val: mat.NewVecDense(val.Len(), nil),
		cov: mat.NewSymDense(cov.SymmetricDim(), nil),
	}
	g.val.CopyVec(val)
	g.cov.CopySym(cov)

	return g, nil
}

// Val returns estimate mean
func (g *Gaussian) Val() mat.Vector {
	return mat.VecDenseCopyOf(g.val)
}

// Cov returns estimate error covariance
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}
