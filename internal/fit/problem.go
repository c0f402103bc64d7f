package fit

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

// Target is one measured data set. Simulate computes the model on the
// target's x grid from the given store; it is called concurrently for
// different targets and must only read from the store.
type Target struct {
	ID       string
	Observed []float64
	Sigma    []float64
	Simulate func(store *params.Store) ([]float64, error)
}

// Problem is a refinement request.
type Problem struct {
	RunID   string
	Store   *params.Store
	Targets []Target
	Config  domain.FitConfig
}

func (p Problem) validate() error {
	if p.Store == nil || len(p.Store.FreeIDs()) == 0 {
		return domain.Newf(domain.CodeNoFreeParameters, p.RunID, "no free parameters")
	}
	if len(p.Targets) == 0 {
		return domain.Newf(domain.CodeNoData, p.RunID, "no experiments selected")
	}
	for _, t := range p.Targets {
		if len(t.Observed) == 0 {
			return domain.Newf(domain.CodeNoData, t.ID, "experiment has no measured data")
		}
		if len(t.Sigma) != len(t.Observed) {
			return domain.Newf(domain.CodeMalformedData, t.ID, "%d sigmas for %d points", len(t.Sigma), len(t.Observed))
		}
		for i, s := range t.Sigma {
			if !(s > 0) {
				return domain.Newf(domain.CodeNoData, t.ID, "sigma of point %d is %v; weights need positive sigmas", i, s)
			}
		}
		if t.Simulate == nil {
			return domain.Newf(domain.CodeMalformedData, t.ID, "no model")
		}
	}
	return nil
}

// errNonFinite marks an evaluation whose residuals are not finite.
var errNonFinite = errors.New("fit: non-finite residual")

// evaluator turns parameter vectors into weighted residuals. Every probe
// runs on a private clone of the base store.
type evaluator struct {
	base    *params.Store
	ids     []string
	bounds  []params.Bounds
	targets []Target
	offsets []int
	n       int
}

func newEvaluator(p Problem) (*evaluator, []float64) {
	free := p.Store.Free()
	ev := &evaluator{
		base:    p.Store.Clone(),
		ids:     make([]string, len(free)),
		bounds:  make([]params.Bounds, len(free)),
		targets: p.Targets,
		offsets: make([]int, len(p.Targets)),
	}
	x0 := make([]float64, len(free))
	for i, f := range free {
		ev.ids[i] = f.ID
		ev.bounds[i] = f.Bounds
		x0[i] = f.Value
	}
	for i, t := range p.Targets {
		ev.offsets[i] = ev.n
		ev.n += len(t.Observed)
	}
	return ev, x0
}

func (ev *evaluator) clip(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = ev.bounds[i].Clip(v)
	}
	return out
}

// residuals evaluates r = (y_obs - y_calc)/σ at x, which must already be
// clipped, into out.
func (ev *evaluator) residuals(ctx context.Context, x, out []float64) error {
	st := ev.base.Clone()
	for i, id := range ev.ids {
		if _, err := st.SetClipped(id, x[i]); err != nil {
			if domain.KindOf(err) == domain.KindNumerical {
				return fmt.Errorf("%w: %v", errNonFinite, err)
			}
			return err
		}
	}
	g, ctx := errgroup.WithContext(ctx)
	for ti := range ev.targets {
		t := ev.targets[ti]
		off := ev.offsets[ti]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			y, err := t.Simulate(st)
			if err != nil {
				if domain.KindOf(err) == domain.KindNumerical {
					return fmt.Errorf("%w: %v", errNonFinite, err)
				}
				return fmt.Errorf("simulate %s: %w", t.ID, err)
			}
			if len(y) != len(t.Observed) {
				return domain.Newf(domain.CodeMalformedData, t.ID, "model returned %d points for %d observed", len(y), len(t.Observed))
			}
			for i := range y {
				r := (t.Observed[i] - y[i]) / t.Sigma[i]
				if math.IsNaN(r) || math.IsInf(r, 0) {
					return errNonFinite
				}
				out[off+i] = r
			}
			return nil
		})
	}
	return g.Wait()
}

// commit writes x into the live store in one step.
func (ev *evaluator) commit(store *params.Store, x []float64) error {
	_, err := store.SetClippedAll(ev.ids, x)
	return err
}

// changed returns the ids whose value differs between a and b.
func (ev *evaluator) changed(a, b []float64) []string {
	var out []string
	for i := range a {
		if a[i] != b[i] {
			out = append(out, ev.ids[i])
		}
	}
	return out
}

func sumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}
	return s
}
