package core

import (
	"context"

	"github.com/google/uuid"

	"diffractcore/internal/experiment"
	"diffractcore/internal/fit"
	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

// fitRun tracks one refinement of one project.
type fitRun struct {
	id      string
	engine  *fit.Engine
	done    chan struct{}
	summary *FitSummary
}

// FitStatus describes the latest refinement of a project.
type FitStatus struct {
	ProjectID string      `json:"project_id"`
	RunID     string      `json:"run_id,omitempty"`
	State     fit.State   `json:"state"`
	Summary   *FitSummary `json:"summary,omitempty"`
}

// SetFitConfig stores the minimizer settings used by later fits.
func (s *Service) SetFitConfig(ctx context.Context, projectID string, cfg FitConfig) (FitConfig, Result, error) {
	var out FitConfig
	res, err := s.mutate(ctx, "set_fit_config", projectID, projectID, func(tx *Transaction) error {
		norm, err := fit.NormalizeConfig(cfg)
		if err != nil {
			return err
		}
		p := tx.Project()
		before := p.Fit
		p.Fit = norm
		out = norm
		tx.Record(Change{Entity: EntityFit, Action: ActionUpdate, EntityID: projectID, Before: before, After: norm})
		return nil
	})
	return out, res, err
}

// StartFit refines the project's free parameters against the measured data
// of the given experiments; no ids selects every experiment with data. The
// project refuses other mutations until the final progress update has been
// delivered, by which point the refined values and summary are committed.
func (s *Service) StartFit(ctx context.Context, projectID string, expIDs []string) (<-chan fit.Progress, error) {
	var out <-chan fit.Progress
	err := s.run(ctx, "start_fit", projectID, func(ctx context.Context) error {
		runID := uuid.NewString()
		p, err := s.store.pin(ctx, projectID, runID)
		if err != nil {
			return err
		}
		ch, err := s.launch(ctx, p, runID, expIDs)
		if err != nil {
			s.store.unpin(projectID)
			return err
		}
		out = ch
		return nil
	})
	return out, err
}

func (s *Service) launch(ctx context.Context, p *Project, runID string, expIDs []string) (<-chan fit.Progress, error) {
	selected, err := selectExperiments(p, expIDs)
	if err != nil {
		return nil, err
	}
	engine := s.calculator()
	targets := make([]fit.Target, 0, len(selected))
	for _, e := range selected {
		obs := make([]float64, len(e.Points))
		sig := make([]float64, len(e.Points))
		for i, pt := range e.Points {
			obs[i] = pt.Y
			sig[i] = pt.Sigma
		}
		targets = append(targets, fit.Target{
			ID:       e.ID,
			Observed: obs,
			Sigma:    sig,
			Simulate: func(st *params.Store) ([]float64, error) {
				pat, err := s.simulate(engine, st, p, e)
				if err != nil {
					return nil, err
				}
				return pat.Total, nil
			},
		})
	}
	before, err := p.Params.Capture(p.Params.FreeIDs()...)
	if err != nil {
		return nil, err
	}

	run := &fitRun{
		id:     runID,
		engine: fit.NewEngine(fit.WithClock(s.clock.Now), fit.WithProgressBuffer(s.progressBuf)),
		done:   make(chan struct{}),
	}
	in, err := run.engine.Start(context.WithoutCancel(ctx), fit.Problem{
		RunID:   runID,
		Store:   p.Params,
		Targets: targets,
		Config:  p.Fit,
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.fits[p.ID] = run
	s.mu.Unlock()
	s.logger.Info("fit started", "project_id", p.ID, "run_id", runID, "method", p.Fit.Method, "free", len(before), "experiments", len(targets))

	out := make(chan fit.Progress, s.progressBuf)
	go s.relay(context.WithoutCancel(ctx), p.ID, run, before, in, out)
	return out, nil
}

func selectExperiments(p *Project, ids []string) ([]*experiment.Experiment, error) {
	if len(ids) == 0 {
		var out []*experiment.Experiment
		for _, e := range p.Experiments {
			if e.HasData() {
				out = append(out, e)
			}
		}
		return out, nil
	}
	out := make([]*experiment.Experiment, 0, len(ids))
	for _, id := range ids {
		e, err := p.experiment(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// relay forwards engine progress and finalizes the run before handing out
// the final update.
func (s *Service) relay(ctx context.Context, projectID string, run *fitRun, before params.Snapshot, in <-chan fit.Progress, out chan fit.Progress) {
	fm, _ := s.metrics.(FitMetricsRecorder)
	for pr := range in {
		if fm != nil {
			fm.ObserveFitIteration(projectID, pr.ChiSquare)
		}
		if !pr.Final {
			fit.Offer(out, pr)
			continue
		}
		s.finishFit(ctx, projectID, run, before, pr)
		fit.DeliverFinal(out, pr)
	}
	close(out)
	close(run.done)
}

func (s *Service) finishFit(ctx context.Context, projectID string, run *fitRun, before params.Snapshot, pr fit.Progress) {
	start := s.clock.Now()
	var summary FitSummary
	if pr.Summary != nil {
		summary = cloneSummary(*pr.Summary)
	}
	err := func() error {
		defer s.store.unpin(projectID)
		live, err := s.store.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if len(before) > 0 {
			if err := live.Params.Record("fit "+run.id, before); err != nil {
				return err
			}
		}
		_, err = s.store.run(ctx, projectID, true, func(tx *Transaction) error {
			lf := cloneSummary(summary)
			tx.Project().LastFit = &lf
			tx.Record(Change{Entity: EntityFit, Action: ActionUpdate, EntityID: projectID, After: lf})
			return nil
		})
		return err
	}()
	s.mu.Lock()
	run.summary = &summary
	s.mu.Unlock()
	d := s.clock.Now().Sub(start)
	if err != nil {
		s.logger.Error("fit result not saved", "project_id", projectID, "run_id", run.id, "error", err)
		s.recordAuditError(ctx, "finish_fit", projectID, d, err)
		return
	}
	s.logger.Info("fit finished", "project_id", projectID, "run_id", run.id, "state", summary.State,
		"iterations", summary.Iterations, "chi2", summary.ChiSquare, "redchi2", summary.ReducedChiSquare)
	s.recordAuditSuccess(ctx, "finish_fit", projectID, d)
}

// CancelFit asks a running fit to stop. Cancelling an idle project is a
// no-op.
func (s *Service) CancelFit(ctx context.Context, projectID string) error {
	if _, err := s.store.Get(ctx, projectID); err != nil {
		return err
	}
	s.mu.Lock()
	run := s.fits[projectID]
	s.mu.Unlock()
	if run != nil {
		run.engine.Cancel()
	}
	return nil
}

// FitStatus reports the state of the latest fit. A project that never ran
// one in this process reports its persisted summary with state idle.
func (s *Service) FitStatus(ctx context.Context, projectID string) (FitStatus, error) {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return FitStatus{}, err
	}
	st := FitStatus{ProjectID: projectID, State: fit.Idle}
	s.mu.Lock()
	run := s.fits[projectID]
	s.mu.Unlock()
	if run == nil {
		if p.LastFit != nil {
			lf := cloneSummary(*p.LastFit)
			st.RunID = lf.RunID
			st.State = fit.State(lf.State)
			st.Summary = &lf
		}
		return st, nil
	}
	st.RunID = run.id
	st.State = run.engine.State()
	s.mu.Lock()
	if run.summary != nil {
		lf := cloneSummary(*run.summary)
		st.Summary = &lf
	}
	s.mu.Unlock()
	if st.State.Terminal() && st.Summary == nil {
		// the engine finished but the result is still being committed
		st.State = fit.Running
	}
	return st, nil
}

// WaitFit blocks until the latest fit of a project is finalized.
func (s *Service) WaitFit(ctx context.Context, projectID string) (FitSummary, error) {
	s.mu.Lock()
	run := s.fits[projectID]
	s.mu.Unlock()
	if run == nil {
		return FitSummary{}, domain.Newf(domain.CodeNotFound, projectID, "no fit has been started")
	}
	select {
	case <-run.done:
	case <-ctx.Done():
		return FitSummary{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.summary == nil {
		return FitSummary{}, domain.Newf(domain.CodeNotFound, projectID, "fit produced no summary")
	}
	return cloneSummary(*run.summary), nil
}
