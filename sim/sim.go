// Package sim runs Kalman filter assimilation experiments of a periodic
// advection-diffusion process: a simulated truth is observed with noise and
// the observations are assimilated into forecasts of an imperfect model.
package sim

import (
	"fmt"
	"math"

	assimilate "github.com/milosgajdos/go-assimilate"
	"github.com/milosgajdos/go-assimilate/corr"
	"github.com/milosgajdos/go-assimilate/covariance"
	"github.com/milosgajdos/go-assimilate/estimate"
	"github.com/milosgajdos/go-assimilate/grid"
	"github.com/milosgajdos/go-assimilate/kalman"
	"github.com/milosgajdos/go-assimilate/kalman/kf"
	"github.com/milosgajdos/go-assimilate/model"
	"github.com/milosgajdos/go-assimilate/noise"
	"github.com/milosgajdos/go-assimilate/smooth/rts"
	"gonum.org/v1/gonum/mat"
)

// Experiment is an assimilation experiment
type Experiment struct {
	// cfg is experiment configuration
	cfg Config
	// grid is the periodic grid
	grid *grid.Grid
	// model is forecast model
	model *model.AdvectionDiffusion
	// truth propagates the true state
	truth *model.AdvectionDiffusion
	// init is initial true state and forecast error covariance
	init *model.InitCond
	// r is observation error covariance
	r *covariance.Covariance
	// q is model error covariance
	q *covariance.Covariance
}

// New creates new Experiment from configuration cfg and returns it.
// It returns error if the configuration is invalid or if any of its components fails to be built.
func New(cfg Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g, err := grid.New(cfg.N, cfg.L)
	if err != nil {
		return nil, err
	}

	m, err := model.NewAdvectionDiffusion(g, cfg.Model.U, cfg.Dt, cfg.Model.Nu)
	if err != nil {
		return nil, fmt.Errorf("forecast model: %w", err)
	}

	truth, err := model.NewAdvectionDiffusion(g, cfg.Truth.U, cfg.Dt, cfg.Truth.Nu)
	if err != nil {
		return nil, fmt.Errorf("true model: %w", err)
	}

	b, err := newCovariance(g, cfg.Fct)
	if err != nil {
		return nil, fmt.Errorf("forecast error: %w", err)
	}

	r, err := newCovariance(g, cfg.Obs)
	if err != nil {
		return nil, fmt.Errorf("observation error: %w", err)
	}

	q, err := newCovariance(g, cfg.Mod)
	if err != nil {
		return nil, fmt.Errorf("model error: %w", err)
	}

	x0 := cfg.Init
	if x0 == nil {
		x0 = bump(g, 10.0, g.L()/6)
	}

	init, err := model.NewInitCond(mat.NewVecDense(g.J(), append([]float64(nil), x0...)), b.Matrix())
	if err != nil {
		return nil, err
	}

	return &Experiment{
		cfg:   cfg,
		grid:  g,
		model: m,
		truth: truth,
		init:  init,
		r:     r,
		q:     q,
	}, nil
}

// newCovariance builds constant variance covariance from error statistics s.
func newCovariance(g *grid.Grid, s ErrorStats) (*covariance.Covariance, error) {
	c, err := corr.New(s.Kind, g, s.Lc)
	if err != nil {
		return nil, err
	}

	m, err := c.Cov(s.Var)
	if err != nil {
		return nil, err
	}

	return covariance.New(g, m)
}

// bump returns Gaussian bump of amplitude ampl and width w centered in the domain.
func bump(g *grid.Grid, ampl, w float64) []float64 {
	x := g.X()
	b := make([]float64, len(x))
	for i := range x {
		b[i] = ampl * math.Exp(-x[i]*x[i]/(w*w))
	}

	return b
}

// newNoise returns noise with error statistics s and covariance c.
func newNoise(s ErrorStats, c *covariance.Covariance, seed uint64) (assimilate.Noise, error) {
	if s.Var == 0 && s.Bias == 0 {
		return noise.NewZero(c.Grid().J())
	}

	return noise.NewBiased(s.Bias, c.Matrix(), seed)
}

// Grid returns experiment grid
func (e *Experiment) Grid() *grid.Grid { return e.grid }

// Config returns experiment configuration
func (e *Experiment) Config() Config { return e.cfg }

// Model returns forecast model
func (e *Experiment) Model() *model.AdvectionDiffusion { return e.model }

// Filter returns new Kalman filter initialized with the experiment error statistics.
func (e *Experiment) Filter() (kalman.Kalman, error) {
	f, err := kf.New(e.model, e.init.Cov(), e.r.Matrix(), e.q.Matrix())
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Run runs the experiment and returns its trajectory. Every run draws the same
// random numbers so repeated runs return identical trajectories.
// If an assimilation window fails Run returns the trajectory recorded so far
// together with the error.
func (e *Experiment) Run() (*Trajectory, error) {
	j := e.grid.J()
	traj := newTrajectory(e.cfg.NDt+1, j, e.cfg.Dt)

	b, err := covariance.New(e.grid, e.init.Cov())
	if err != nil {
		return traj, err
	}

	bkg, err := newNoise(e.cfg.Fct, b, e.cfg.Seed)
	if err != nil {
		return traj, fmt.Errorf("forecast error: %w", err)
	}

	obs, err := newNoise(e.cfg.Obs, e.r, e.cfg.Seed+1)
	if err != nil {
		return traj, fmt.Errorf("observation error: %w", err)
	}

	mod, err := newNoise(e.cfg.Mod, e.q, e.cfg.Seed+2)
	if err != nil {
		return traj, fmt.Errorf("model error: %w", err)
	}

	f, err := e.Filter()
	if err != nil {
		return traj, err
	}

	xt := mat.VecDenseCopyOf(e.init.State())
	xb := &mat.VecDense{}
	xb.AddVec(xt, bkg.Sample())

	for i := 0; i <= e.cfg.NDt; i++ {
		y := &mat.VecDense{}
		y.AddVec(xt, obs.Sample())

		fcstCov := f.Cov()

		var an assimilate.Estimate
		if e.cfg.Assimilate {
			an, err = f.Update(xb, y)
		} else {
			an, err = f.Skip(xb)
		}
		if err != nil {
			return traj, fmt.Errorf("assimilation window %d: %w", i, err)
		}

		xa := an.Val()
		traj.record(i, xt, y, xa, xb, fcstCov, an.Cov(), f.LogLikelihood())

		fc, err := f.Predict(xa)
		if err != nil {
			return traj, fmt.Errorf("assimilation window %d: %w", i, err)
		}
		xb = mat.VecDenseCopyOf(fc.Val())

		next, err := e.truth.PropagateState(xt)
		if err != nil {
			return traj, fmt.Errorf("assimilation window %d: %w", i, err)
		}
		next.AddVec(next, mod.Sample())
		xt = next
	}

	return traj, nil
}

// Smooth runs Rauch-Tung-Striebel smoother over the analyses recorded in traj
// and returns the smoothed estimates, one per recorded assimilation window.
func (e *Experiment) Smooth(traj *Trajectory) ([]assimilate.Estimate, error) {
	if traj == nil || traj.Steps == 0 {
		return nil, fmt.Errorf("empty trajectory: %w", assimilate.ErrInvalidParameter)
	}

	est := make([]assimilate.Estimate, traj.Steps)
	for i := range est {
		xa := mat.NewVecDense(e.grid.J(), traj.Analysis.RawRowView(i))
		b, err := estimate.New(xa, traj.AnlCov[i])
		if err != nil {
			return nil, err
		}
		est[i] = b
	}

	s, err := rts.New(e.model, e.q.Matrix())
	if err != nil {
		return nil, err
	}

	return s.Smooth(est)
}
