package covariance

import (
	"errors"
	"math"
	"os"
	"testing"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/corr"
	"github.com/milosgajdos/go-assimilate/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	g    *grid.Grid
	soar *corr.Model
)

func setup() {
	var err error
	if g, err = grid.New(8, 1000.0); err != nil {
		panic(err)
	}
	if soar, err = corr.New(corr.SOAR, g, 100.0); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	m, err := soar.Cov(2.0)
	assert.NoError(err)

	c, err := New(g, m)
	assert.NoError(err)
	assert.Equal(g, c.Grid())
	assert.True(mat.Equal(m, c.Matrix()))

	// tiny asymmetry is absorbed
	d := mat.DenseCopyOf(m)
	d.Set(0, 1, d.At(0, 1)+1e-9)
	c, err = New(g, d)
	assert.NoError(err)
	assert.Equal(c.Matrix().At(0, 1), c.Matrix().At(1, 0))

	d.Set(0, 1, d.At(0, 1)+0.1)
	c, err = New(g, d)
	assert.Nil(c)
	assert.True(errors.Is(err, assimilate.ErrAsymmetry))

	c, err = New(g, mat.NewDense(3, 3, nil))
	assert.Nil(c)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))

	c, err = New(g, mat.NewDense(g.J(), 2, nil))
	assert.Nil(c)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))

	c, err = New(nil, m)
	assert.Nil(c)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))
}

func TestVarianceCorrelation(t *testing.T) {
	assert := assert.New(t)

	m, err := soar.Cov(3.0)
	assert.NoError(err)
	m.SetSym(2, 2, 0)

	c, err := New(g, m)
	assert.NoError(err)

	v := c.Variance()
	assert.Len(v, g.J())
	assert.Equal(3.0, v[0])
	assert.Equal(0.0, v[2])

	r := c.Correlation()
	corrM := soar.Matrix()
	for i := 0; i < g.J(); i++ {
		for j := 0; j < g.J(); j++ {
			if i == 2 || j == 2 {
				assert.Equal(0.0, r.At(i, j))
				continue
			}
			assert.InDelta(corrM.At(i, j), r.At(i, j), 1e-12)
		}
	}
}

func TestRandom(t *testing.T) {
	assert := assert.New(t)

	m, err := soar.Cov(1.0)
	assert.NoError(err)
	c, err := New(g, m)
	assert.NoError(err)

	rnd := exprand.New(exprand.NewSource(7))
	n := 5000
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		x, err := c.Random(3.0, rnd)
		assert.NoError(err)
		assert.Equal(g.J(), x.Len())
		vals[i] = x.AtVec(0)
	}

	mean, std := stat.MeanStdDev(vals, nil)
	assert.InDelta(3.0, mean, 0.1)
	assert.InDelta(1.0, std, 0.1)

	// same seed reproduces the same draw
	x1, err := c.Random(0, exprand.New(exprand.NewSource(1)))
	assert.NoError(err)
	x2, err := c.Random(0, exprand.New(exprand.NewSource(1)))
	assert.NoError(err)
	assert.True(mat.Equal(x1, x2))
}

func TestEnsemble(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m, err := soar.Cov(2.0)
	require.NoError(err)
	c, err := New(g, m)
	require.NoError(err)

	e, err := Ensemble(c, 20000, exprand.New(exprand.NewSource(3)))
	require.NoError(err)
	require.NotNil(e)

	em := e.Matrix()
	for i := 0; i < g.J(); i++ {
		for j := 0; j < g.J(); j++ {
			assert.InDelta(m.At(i, j), em.At(i, j), 0.12)
		}
	}

	e, err = Ensemble(c, 1, nil)
	assert.Nil(e)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))
}

func TestLocalize(t *testing.T) {
	assert := assert.New(t)

	m, err := soar.Cov(2.0)
	assert.NoError(err)
	c, err := New(g, m)
	assert.NoError(err)

	gauss, err := corr.New(corr.Gaussian, g, 50.0)
	assert.NoError(err)
	lm := gauss.Matrix()

	loc, err := Localize(c, lm)
	assert.NoError(err)
	lv := loc.Matrix()
	for i := 0; i < g.J(); i++ {
		assert.Equal(2.0, lv.At(i, i))
		for j := 0; j < g.J(); j++ {
			assert.InDelta(m.At(i, j)*lm.At(i, j), lv.At(i, j), 1e-12)
			assert.True(math.Abs(lv.At(i, j)) <= math.Abs(m.At(i, j)))
		}
	}

	loc, err = Localize(c, mat.NewSymDense(2, nil))
	assert.Nil(loc)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))
}
