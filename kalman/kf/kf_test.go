package kf

import (
	"errors"
	"math"
	"os"
	"slices"
	"testing"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/corr"
	"github.com/milosgajdos/go-assimilate/grid"
	"github.com/milosgajdos/go-assimilate/kalman"
	"github.com/milosgajdos/go-assimilate/model"
	"github.com/milosgajdos/go-assimilate/variance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var _ kalman.Kalman = (*KF)(nil)

var (
	g          *grid.Grid
	advection  *model.AdvectionDiffusion
	diffusion  *model.AdvectionDiffusion
	b, r, q    *mat.SymDense
	xb, y      *mat.VecDense
	soar, unco *corr.Model
)

func setup() {
	var err error
	if g, err = grid.New(8, 1000.0); err != nil {
		panic(err)
	}
	if advection, err = model.NewAdvectionDiffusion(g, 30.0, 1.0, 0); err != nil {
		panic(err)
	}
	if diffusion, err = model.NewAdvectionDiffusion(g, 30.0, 1.0, 500.0); err != nil {
		panic(err)
	}
	if soar, err = corr.New(corr.SOAR, g, 50.0); err != nil {
		panic(err)
	}
	if unco, err = corr.New(corr.Uncorrelated, g, 0); err != nil {
		panic(err)
	}

	b, _ = soar.Cov(2.0)
	r, _ = unco.Cov(0.1)
	q, _ = soar.Cov(0.05)

	xb = mat.NewVecDense(g.J(), nil)
	y = mat.NewVecDense(g.J(), nil)
	for i, x := range g.X() {
		xb.SetVec(i, math.Cos(2*math.Pi*x/g.L()))
		y.SetVec(i, math.Sin(2*math.Pi*x/g.L())+0.5)
	}
}

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

// modal returns variances of the Fourier modes of covariance c.
func modal(c mat.Matrix) []float64 {
	f := g.F()
	s := &mat.Dense{}
	s.Product(f.T(), c, f)

	v := make([]float64, g.J())
	for i := range v {
		v[i] = s.At(i, i)
	}

	return v
}

func TestKFNew(t *testing.T) {
	assert := assert.New(t)

	f, err := New(advection, b, r, q)
	assert.NoError(err)
	assert.NotNil(f)
	assert.Equal(advection, f.Model())
	assert.True(math.IsNaN(f.LogLikelihood()))

	// perfect model
	f, err = New(advection, b, r, nil)
	assert.NoError(err)
	assert.NotNil(f)

	small := mat.NewSymDense(3, nil)
	for _, test := range []struct {
		b, r, q mat.Symmetric
	}{
		{nil, r, q},
		{small, r, q},
		{b, nil, q},
		{b, small, q},
		{b, r, small},
	} {
		f, err := New(advection, test.b, test.r, test.q)
		assert.Nil(f)
		assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))
	}

	f, err = New(nil, b, r, q)
	assert.Nil(f)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))

	nan := mat.NewSymDense(g.J(), nil)
	nan.CopySym(b)
	nan.SetSym(0, 1, math.NaN())
	f, err = New(advection, b, r, nan)
	assert.Nil(f)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))
}

func TestKFUpdate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// exact observations replace the background
	f, err := New(advection, b, mat.NewSymDense(g.J(), nil), q)
	require.NoError(err)
	est, err := f.Update(xb, y)
	require.NoError(err)
	for i := 0; i < g.J(); i++ {
		assert.InDelta(y.AtVec(i), est.Val().AtVec(i), 1e-8)
		for j := 0; j < g.J(); j++ {
			assert.InDelta(0.0, est.Cov().At(i, j), 1e-8)
		}
	}

	// useless observations keep the background
	huge, err := unco.Cov(1e8)
	require.NoError(err)
	f, err = New(advection, b, huge, q)
	require.NoError(err)
	est, err = f.Update(xb, y)
	require.NoError(err)
	for i := 0; i < g.J(); i++ {
		assert.InDelta(xb.AtVec(i), est.Val().AtVec(i), 1e-6)
		assert.InDelta(b.At(i, i), est.Cov().At(i, i), 1e-6)
	}

	f, err = New(advection, b, r, q)
	require.NoError(err)
	est, err = f.Update(xb, y)
	require.NoError(err)

	inn := f.Innovation()
	for i := 0; i < g.J(); i++ {
		assert.Equal(y.AtVec(i)-xb.AtVec(i), inn.AtVec(i))
		// analysis variance is smaller than both background and observation variance
		assert.True(est.Cov().At(i, i) < b.At(i, i))
		assert.True(est.Cov().At(i, i) < r.At(i, i))
	}
	assert.False(math.IsNaN(f.LogLikelihood()))
	assert.False(math.IsInf(f.LogLikelihood(), 0))

	rows, cols := f.Gain().Dims()
	assert.Equal(g.J(), rows)
	assert.Equal(g.J(), cols)

	est, err = f.Update(mat.NewVecDense(3, nil), y)
	assert.Nil(est)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))

	est, err = f.Update(xb, mat.NewVecDense(3, nil))
	assert.Nil(est)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))
}

func TestKFSingular(t *testing.T) {
	assert := assert.New(t)

	zero := mat.NewSymDense(g.J(), nil)
	f, err := New(advection, zero, zero, nil)
	assert.NoError(err)

	est, err := f.Update(xb, y)
	assert.Nil(est)
	assert.True(errors.Is(err, assimilate.ErrSingularCovariance))
}

func TestKFSkip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f, err := New(advection, b, r, q)
	require.NoError(err)

	est, err := f.Skip(xb)
	require.NoError(err)
	assert.True(mat.Equal(xb, est.Val()))
	assert.True(mat.Equal(b, est.Cov()))
	assert.True(math.IsNaN(f.LogLikelihood()))
	assert.Equal(0.0, mat.Norm(f.Gain(), 1))

	// homogeneous covariance is only advected
	est, err = f.Predict(est.Val())
	require.NoError(err)
	for i := 0; i < g.J(); i++ {
		assert.InDelta(b.At(i, i)+q.At(i, i), est.Cov().At(i, i), 1e-10)
	}

	est, err = f.Skip(mat.NewVecDense(2, nil))
	assert.Nil(est)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))
}

func TestKFRunSymmetric(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// inhomogeneous initial covariance
	b0 := mat.NewSymDense(g.J(), nil)
	b0.CopySym(b)
	b0.SetSym(0, 0, 5.0)
	b0.SetSym(3, 3, 4.0)

	f, err := New(diffusion, b0, r, q)
	require.NoError(err)

	x := mat.VecDenseCopyOf(xb)
	for i := 0; i < 20; i++ {
		est, err := f.Run(x, y)
		require.NoError(err)
		x = mat.VecDenseCopyOf(est.Val())

		c := f.Cov()
		for i := 0; i < g.J(); i++ {
			assert.True(c.At(i, i) > 0)
			for j := 0; j < g.J(); j++ {
				assert.Equal(c.At(i, j), c.At(j, i))
			}
		}
	}
}

func TestKFModalVariance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f, err := New(diffusion, b, r, q)
	require.NoError(err)

	fb, fr, fq := modal(b), modal(r), modal(q)

	n := 10
	var want [][]float64
	for _, k := range []int{0, 1, 4, 8} {
		idx := max(2*k-1, 0)
		a := diffusion.Amplitude(float64(k))
		want = append(want, slices.Collect(variance.Iterate(fb[idx], fr[idx], fq[idx], a*a, n)))
	}

	x := mat.VecDenseCopyOf(xb)
	for i := 0; i < n; i++ {
		est, err := f.Run(x, y)
		require.NoError(err)
		x = mat.VecDenseCopyOf(est.Val())

		fc := modal(f.Cov())
		for w, k := range []int{0, 1, 4, 8} {
			if k == 0 {
				assert.InEpsilon(want[w][i], fc[0], 1e-9)
				continue
			}
			assert.InEpsilon(want[w][i], fc[2*k-1], 1e-9)
			assert.InEpsilon(want[w][i], fc[2*k], 1e-9)
		}
	}
}

func TestKFSteady(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	for _, m := range []*model.AdvectionDiffusion{advection, diffusion} {
		f, err := New(m, b, r, q)
		require.NoError(err)

		bs, iters, err := f.Steady(5000, 1e-12)
		require.NoError(err)
		assert.True(iters > 1)
		// filter state is left intact
		assert.True(mat.Equal(b, f.Cov()))

		fs, fr, fq := modal(bs), modal(r), modal(q)
		for k := 0; k <= g.N(); k++ {
			idx := max(2*k-1, 0)
			a := m.Amplitude(float64(k))
			plus, _, err := variance.Stationary(fr[idx], fq[idx], a*a)
			require.NoError(err)
			assert.InEpsilon(plus, fs[idx], 1e-8)
		}
	}

	f, err := New(advection, b, r, q)
	require.NoError(err)

	_, _, err = f.Steady(0, 1e-6)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))

	_, _, err = f.Steady(1, 1e-30)
	assert.True(errors.Is(err, assimilate.ErrNoConvergence))
}

func TestKFSetCov(t *testing.T) {
	assert := assert.New(t)

	f, err := New(advection, b, r, q)
	assert.NoError(err)

	err = f.SetCov(q)
	assert.NoError(err)
	assert.True(mat.Equal(q, f.Cov()))

	err = f.SetCov(mat.NewSymDense(2, nil))
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))

	err = f.SetCov(nil)
	assert.True(errors.Is(err, assimilate.ErrDimensionMismatch))

	inf := mat.NewSymDense(g.J(), nil)
	inf.SetSym(2, 2, math.Inf(1))
	err = f.SetCov(inf)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))
	assert.True(mat.Equal(q, f.Cov()))
}

// overflow propagates states unchanged and covariances into Inf.
type overflow struct {
	dim int
}

func (o overflow) PropagateState(x mat.Vector) (*mat.VecDense, error) {
	return mat.VecDenseCopyOf(x), nil
}

func (o overflow) PropagateCov(c mat.Symmetric) (*mat.SymDense, error) {
	out := mat.NewSymDense(o.dim, nil)
	out.ScaleSym(math.Inf(1), c)

	return out, nil
}

func (o overflow) Dim() int { return o.dim }

func TestKFPredictNonFinite(t *testing.T) {
	assert := assert.New(t)

	f, err := New(overflow{dim: g.J()}, b, r, q)
	assert.NoError(err)

	an, err := f.Update(xb, y)
	assert.NoError(err)

	fc, err := f.Predict(an.Val())
	assert.Nil(fc)
	assert.True(errors.Is(err, assimilate.ErrInvalidParameter))

	// forecast covariance is left intact
	assert.True(mat.Equal(b, f.Cov()))
}

func TestKFLargeForecastVariance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	for _, v := range []float64{1e8, 1e10, 1e12} {
		bl, err := soar.Cov(v)
		require.NoError(err)

		f, err := New(advection, bl, r, bl)
		require.NoError(err)

		x := mat.VecDenseCopyOf(xb)
		for i := 0; i < 3; i++ {
			an, err := f.Update(x, y)
			require.NoError(err, "variance %g step %d", v, i)

			// observations dominate: analysis variance approaches R from below
			a := f.AnalysisCov()
			for j := 0; j < g.J(); j++ {
				assert.True(a.At(j, j) > 0)
				assert.InDelta(r.At(j, j), a.At(j, j), 1e-6)
			}

			fc, err := f.Predict(an.Val())
			require.NoError(err, "variance %g step %d", v, i)
			x = mat.VecDenseCopyOf(fc.Val())
		}
	}
}
