package fit

import (
	"context"
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

var errStopped = errors.New("fit: stopped")

// gonumMethod maps a minimizer name to its gonum implementation.
func gonumMethod(name string) optimize.Method {
	switch name {
	case MethodNelderMead:
		return &optimize.NelderMead{}
	case MethodLBFGS:
		return &optimize.LBFGS{}
	case MethodGradient:
		return &optimize.GradientDescent{}
	}
	return nil
}

// objective wraps the evaluator as a scalar chi-square and remembers the
// first evaluation failure and the best point seen so far.
type objective struct {
	ctx context.Context
	ev  *evaluator

	mu       sync.Mutex
	best     []float64
	bestChi2 float64
	failure  error
	failedAt []float64
}

func (o *objective) value(x []float64) float64 {
	xc := o.ev.clip(x)
	res := make([]float64, o.ev.n)
	if err := o.ev.residuals(o.ctx, xc, res); err != nil {
		o.mu.Lock()
		if o.failure == nil {
			o.failure, o.failedAt = err, xc
		}
		o.mu.Unlock()
		return math.Inf(1)
	}
	chi2 := sumSquares(res)
	o.mu.Lock()
	if chi2 < o.bestChi2 {
		o.best, o.bestChi2 = xc, chi2
	}
	o.mu.Unlock()
	return chi2
}

func (o *objective) failed() ([]float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failedAt, o.failure
}

// progressRecorder publishes major iterations and stops the run on
// cancellation or on an evaluation failure.
type progressRecorder struct {
	r   *runner
	obj *objective
}

func (p *progressRecorder) Init() error { return nil }

func (p *progressRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := p.obj.ctx.Err(); err != nil {
		return errStopped
	}
	if _, err := p.obj.failed(); err != nil {
		return errStopped
	}
	if op == optimize.MajorIteration && loc != nil && stats != nil {
		x := p.r.ev.clip(loc.X)
		if err := p.r.ev.commit(p.r.live, x); err != nil {
			return err
		}
		p.r.progress(stats.MajorIterations, loc.F)
	}
	return nil
}

// minimize runs one of the gonum optimizers on the chi-square surface.
func (r *runner) minimize(ctx context.Context, method optimize.Method, x0 []float64) outcome {
	start := r.ev.clip(x0)
	obj := &objective{ctx: ctx, ev: r.ev, best: start, bestChi2: math.Inf(1)}
	problem := optimize.Problem{
		Func: obj.value,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, obj.value, x, &fd.Settings{Formula: fd.Forward})
		},
	}
	settings := &optimize.Settings{
		MajorIterations: r.cfg.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Relative:   r.cfg.Tolerance,
			Iterations: r.cfg.Patience,
		},
		Recorder: &progressRecorder{r: r, obj: obj},
	}

	result, err := optimize.Minimize(problem, start, settings, method)

	obj.mu.Lock()
	best, bestChi2 := obj.best, obj.bestChi2
	obj.mu.Unlock()
	iterations := 0
	if result != nil {
		iterations = result.Stats.MajorIterations
	}

	if ctx.Err() != nil {
		return r.stop(ctx, ctx.Err(), best, best, bestChi2, iterations)
	}
	if at, ferr := obj.failed(); ferr != nil {
		return r.stop(ctx, ferr, best, at, bestChi2, iterations)
	}
	if err != nil && (result == nil || result.Status == optimize.Failure || result.Status == optimize.NotTerminated) {
		return outcome{state: Failed, x: best, chi2: bestChi2, iterations: iterations, message: err.Error()}
	}

	x, chi2 := best, bestChi2
	if result != nil && result.F <= bestChi2 {
		x, chi2 = r.ev.clip(result.X), result.F
	}
	if err := r.ev.commit(r.live, x); err != nil {
		return r.stop(ctx, err, best, x, bestChi2, iterations)
	}

	out := outcome{x: x, chi2: chi2, iterations: iterations, state: Converged}
	if result != nil {
		out.message = result.Status.String()
		switch result.Status {
		case optimize.IterationLimit, optimize.FunctionEvaluationLimit,
			optimize.GradientEvaluationLimit, optimize.RuntimeLimit:
			out.state = MaxIterationsReached
		}
	}
	return out
}
