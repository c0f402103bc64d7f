package fit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"diffractcore/pkg/domain"
)

const defaultProgressBuffer = 16

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to stamp summaries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithProgressBuffer sets the capacity of the progress channel.
func WithProgressBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.buffer = n
		}
	}
}

// Engine runs refinements, one at a time.
type Engine struct {
	mu      sync.Mutex
	state   State
	runID   string
	cancel  context.CancelFunc
	done    chan struct{}
	summary *domain.FitSummary

	now    func() time.Time
	buffer int
}

// NewEngine returns an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{state: Idle, now: time.Now, buffer: defaultProgressBuffer}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates p and launches the refinement in the background. The
// returned channel carries progress updates and is closed after the final
// one. Accepted steps are written to p.Store as the fit advances.
func (e *Engine) Start(ctx context.Context, p Problem) (<-chan Progress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running {
		return nil, domain.Newf(domain.CodeFitAlreadyRunning, e.runID, "a fit is already running")
	}
	cfg, err := NormalizeConfig(p.Config)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}
	p.Config = cfg

	runCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Progress, e.buffer)
	e.state = Running
	e.runID = p.RunID
	e.cancel = cancel
	e.done = make(chan struct{})
	e.summary = nil

	go e.run(runCtx, cancel, p, ch)
	return ch, nil
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, p Problem, ch chan Progress) {
	defer cancel()
	ev, x0 := newEvaluator(p)
	r := &runner{
		ev:    ev,
		cfg:   p.Config,
		live:  p.Store,
		runID: p.RunID,
		emit:  func(pr Progress) { Offer(ch, pr) },
	}

	var out outcome
	if m := gonumMethod(p.Config.Method); m != nil {
		out = r.minimize(ctx, m, x0)
	} else {
		out = r.levenbergMarquardt(ctx, x0)
	}

	summary := domain.FitSummary{
		RunID:       p.RunID,
		State:       string(out.state),
		Success:     out.state == Converged,
		Method:      p.Config.Method,
		Iterations:  out.iterations,
		NVarys:      len(ev.ids),
		NPoints:     ev.n,
		ChiSquare:   out.chi2,
		LastChanged: out.lastChanged,
		Message:     out.message,
	}
	if !math.IsNaN(out.chi2) && !math.IsInf(out.chi2, 0) {
		summary.ReducedChiSquare = r.reduced(out.chi2)
		summary.GoodnessOfFit = math.Sqrt(summary.ReducedChiSquare)
	}
	if out.state == Converged || out.state == MaxIterationsReached {
		summary.Uncertainties = r.uncertainties(context.WithoutCancel(ctx), out.x, out.chi2)
	}

	e.mu.Lock()
	summary.FinishedAt = e.now().UTC()
	e.state = out.state
	e.summary = &summary
	e.cancel = nil
	done := e.done
	e.mu.Unlock()

	final := Progress{
		RunID:            p.RunID,
		State:            out.state,
		Iteration:        out.iterations,
		ChiSquare:        summary.ChiSquare,
		ReducedChiSquare: summary.ReducedChiSquare,
		Final:            true,
		Summary:          &summary,
	}
	DeliverFinal(ch, final)
	close(ch)
	close(done)
}

// Offer sends p unless ch is full.
func Offer(ch chan Progress, p Progress) {
	select {
	case ch <- p:
	default:
	}
}

// DeliverFinal evicts stale updates until p fits. ch must not be closed
// concurrently.
func DeliverFinal(ch chan Progress, p Progress) {
	for {
		select {
		case ch <- p:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Cancel asks the running fit to stop at its next evaluation. It is a
// no-op when nothing runs.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running && e.cancel != nil {
		e.cancel()
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether a fit is in progress.
func (e *Engine) Running() bool { return e.State() == Running }

// Summary returns the result of the last finished run.
func (e *Engine) Summary() (domain.FitSummary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summary == nil {
		return domain.FitSummary{}, false
	}
	return *e.summary, true
}

// Wait blocks until the current run finishes or ctx ends.
func (e *Engine) Wait(ctx context.Context) (domain.FitSummary, error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return domain.FitSummary{}, domain.Newf(domain.CodeNotFound, "fit", "no fit has been started")
	}
	select {
	case <-done:
	case <-ctx.Done():
		return domain.FitSummary{}, ctx.Err()
	}
	s, _ := e.Summary()
	return s, nil
}
