package sim

import (
	"fmt"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Trajectory stores assimilation experiment results.
// Row i of every matrix stores grid values of assimilation window i.
type Trajectory struct {
	// Steps is number of recorded assimilation windows
	Steps int
	// Times stores assimilation window times
	Times []float64
	// Truth stores true states at the window time Times[i], i.e. the state
	// observed in window i before the truth is advanced to the next window
	Truth *mat.Dense
	// Obs stores observations
	Obs *mat.Dense
	// Analysis stores analysis states
	Analysis *mat.Dense
	// Background stores forecast (background) states
	Background *mat.Dense
	// FcstVar stores forecast error variances
	FcstVar *mat.Dense
	// AnlVar stores analysis error variances
	AnlVar *mat.Dense
	// ErrSq stores domain mean of squared difference between background and truth
	ErrSq []float64
	// LogLik stores innovation log-likelihoods; NaN when nothing was assimilated
	LogLik []float64
	// FcstCov stores forecast error covariances
	FcstCov []*mat.SymDense
	// AnlCov stores analysis error covariances
	AnlCov []*mat.SymDense
}

func newTrajectory(steps, j int, dt float64) *Trajectory {
	times := make([]float64, steps)
	for i := range times {
		times[i] = float64(i) * dt
	}

	return &Trajectory{
		Times:      times,
		Truth:      mat.NewDense(steps, j, nil),
		Obs:        mat.NewDense(steps, j, nil),
		Analysis:   mat.NewDense(steps, j, nil),
		Background: mat.NewDense(steps, j, nil),
		FcstVar:    mat.NewDense(steps, j, nil),
		AnlVar:     mat.NewDense(steps, j, nil),
		ErrSq:      make([]float64, steps),
		LogLik:     make([]float64, steps),
		FcstCov:    make([]*mat.SymDense, steps),
		AnlCov:     make([]*mat.SymDense, steps),
	}
}

func (t *Trajectory) record(i int, xt, y, xa, xb mat.Vector, b, a mat.Symmetric, logLik float64) {
	t.Truth.SetRow(i, mat.Col(nil, 0, xt))
	t.Obs.SetRow(i, mat.Col(nil, 0, y))
	t.Analysis.SetRow(i, mat.Col(nil, 0, xa))
	t.Background.SetRow(i, mat.Col(nil, 0, xb))
	t.FcstVar.SetRow(i, matrix.Diag(b))
	t.AnlVar.SetRow(i, matrix.Diag(a))

	diff := &mat.VecDense{}
	diff.SubVec(xb, xt)
	diff.MulElemVec(diff, diff)
	t.ErrSq[i] = stat.Mean(diff.RawVector().Data, nil)
	t.LogLik[i] = logLik

	t.FcstCov[i] = mat.NewSymDense(b.SymmetricDim(), nil)
	t.FcstCov[i].CopySym(b)
	t.AnlCov[i] = mat.NewSymDense(a.SymmetricDim(), nil)
	t.AnlCov[i].CopySym(a)

	t.Steps = i + 1
}

// MeanErrSq returns mean of ErrSq over assimilation windows [from, to).
// It returns error if the window range is outside of recorded windows.
func (t *Trajectory) MeanErrSq(from, to int) (float64, error) {
	if from < 0 || to > t.Steps || from >= to {
		return 0, fmt.Errorf("invalid window range [%d, %d) of %d windows: %w", from, to, t.Steps, assimilate.ErrInvalidParameter)
	}

	return stat.Mean(t.ErrSq[from:to], nil), nil
}

// MeanFcstVar returns domain mean forecast error variance of assimilation window i.
func (t *Trajectory) MeanFcstVar(i int) float64 {
	return stat.Mean(t.FcstVar.RawRowView(i), nil)
}

// MeanAnlVar returns domain mean analysis error variance of assimilation window i.
func (t *Trajectory) MeanAnlVar(i int) float64 {
	return stat.Mean(t.AnlVar.RawRowView(i), nil)
}
