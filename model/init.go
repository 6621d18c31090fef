package model

import (
	"fmt"

	assimilate "github.com/milosgajdos/go-assimilate"
	"gonum.org/v1/gonum/mat"
)

// InitCond holds initial state and its error covariance
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it.
// It returns error if state length does not match covariance dimension.
func NewInitCond(state mat.Vector, cov mat.Symmetric) (*InitCond, error) {
	if state == nil || cov == nil || state.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid initial condition dimensions: %w", assimilate.ErrDimensionMismatch)
	}

	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}, nil
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CopyVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}
