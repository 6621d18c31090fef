package estimate

import (
	"errors"
	"testing"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var _ assimilate.Estimate = (*Gaussian)(nil)

func TestNew(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	testCases := []struct {
		val mat.Vector
		cov mat.Symmetric
		ok  bool
	}{
		{val, cov, true},
		{nil, cov, false},
		{val, nil, false},
		{val, mat.NewSymDense(1, []float64{1.0}), false},
	}

	for _, tc := range testCases {
		g, err := New(tc.val, tc.cov)
		if tc.ok {
			assert.NotNil(g)
			assert.NoError(err)
			continue
		}
		assert.Nil(g)
		assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))
	}
}

func TestValCov(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	g, err := New(val, cov)
	assert.NoError(err)
	assert.True(mat.Equal(val, g.Val()))
	assert.True(mat.Equal(cov, g.Cov()))

	// estimate does not alias its inputs or outputs
	val.SetVec(0, 10.0)
	cov.SetSym(0, 1, 5.0)
	assert.Equal(1.0, g.Val().AtVec(0))
	assert.Equal(2.0, g.Cov().At(1, 0))

	c := g.Cov().(*mat.SymDense)
	c.SetSym(0, 0, -1.0)
	assert.Equal(1.0, g.Cov().At(0, 0))
}
