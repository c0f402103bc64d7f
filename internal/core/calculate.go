package core

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"diffractcore/internal/calc"
	"diffractcore/internal/experiment"
	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

// Calculation is a simulated pattern for one experiment, compared against
// the measured series when there is one.
type Calculation struct {
	ExperimentID string       `json:"experiment_id"`
	Pattern      calc.Pattern `json:"pattern"`
	Observed     []float64    `json:"observed,omitempty"`
	Sigma        []float64    `json:"sigma,omitempty"`
	Residual     []float64    `json:"residual,omitempty"`
	ChiSquare    float64      `json:"chi2,omitempty"`
}

// calcInput resolves an experiment and its linked phases against st.
func calcInput(st *params.Store, p *Project, e *experiment.Experiment) (calc.Input, error) {
	inst, err := e.Instrument(st)
	if err != nil {
		return calc.Input{}, err
	}
	bx, by, err := e.BackgroundValues(st)
	if err != nil {
		return calc.Input{}, err
	}
	in := calc.Input{
		Wavelength:  inst.Wavelength,
		ZeroShift:   inst.ZeroShift,
		Scale:       inst.Scale,
		U:           inst.U,
		V:           inst.V,
		W:           inst.W,
		X:           inst.X,
		Y:           inst.Y,
		BackgroundX: bx,
		BackgroundY: by,
		Grid:        e.Grid(),
	}
	for _, link := range e.Phases {
		ph, err := p.phase(link.PhaseID)
		if err != nil {
			return calc.Input{}, err
		}
		snap, err := ph.Snapshot(st)
		if err != nil {
			return calc.Input{}, err
		}
		scale, err := st.Get(link.ScaleID)
		if err != nil {
			return calc.Input{}, err
		}
		in.Phases = append(in.Phases, calc.PhaseInput{ID: ph.ID, Scale: scale, Cell: snap.Cell, Sites: snap.Sites})
	}
	return in, nil
}

func finiteAll(ys []float64) bool {
	for _, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return false
		}
	}
	return true
}

func (s *Service) simulate(engine calc.Engine, st *params.Store, p *Project, e *experiment.Experiment) (calc.Pattern, error) {
	in, err := calcInput(st, p, e)
	if err != nil {
		return calc.Pattern{}, err
	}
	pat, err := engine.Calculate(in)
	if err != nil {
		return calc.Pattern{}, err
	}
	if !finiteAll(pat.Total) {
		return calc.Pattern{}, domain.Newf(domain.CodeNonFiniteOutput, e.ID, "calculated pattern is not finite")
	}
	return pat, nil
}

// calculation simulates e against st, a snapshot of the project parameters
// taken by the caller.
func (s *Service) calculation(engine calc.Engine, st *params.Store, p *Project, e *experiment.Experiment) (Calculation, error) {
	pat, err := s.simulate(engine, st, p, e)
	if err != nil {
		return Calculation{}, err
	}
	out := Calculation{ExperimentID: e.ID, Pattern: pat}
	if !e.HasData() {
		return out, nil
	}
	n := len(e.Points)
	out.Observed = make([]float64, n)
	out.Sigma = make([]float64, n)
	out.Residual = make([]float64, n)
	for i, pt := range e.Points {
		out.Observed[i] = pt.Y
		out.Sigma[i] = pt.Sigma
		out.Residual[i] = pt.Y - pat.Total[i]
		if pt.Sigma > 0 {
			r := out.Residual[i] / pt.Sigma
			out.ChiSquare += r * r
		}
	}
	return out, nil
}

// Calculate simulates one experiment from the current parameter values.
func (s *Service) Calculate(ctx context.Context, projectID, expID string) (Calculation, error) {
	var out Calculation
	err := s.run(ctx, "calculate", expID, func(ctx context.Context) error {
		p, err := s.store.Get(ctx, projectID)
		if err != nil {
			return err
		}
		e, err := p.experiment(expID)
		if err != nil {
			return err
		}
		out, err = s.calculation(s.calculator(), p.Params.Clone(), p, e)
		return err
	})
	return out, err
}

// CalculateAll simulates every experiment of a project concurrently. The
// result is ordered like the project's experiments.
func (s *Service) CalculateAll(ctx context.Context, projectID string) ([]Calculation, error) {
	var out []Calculation
	err := s.run(ctx, "calculate", projectID, func(ctx context.Context) error {
		p, err := s.store.Get(ctx, projectID)
		if err != nil {
			return err
		}
		engine := s.calculator()
		st := p.Params.Clone()
		out = make([]Calculation, len(p.Experiments))
		g, ctx := errgroup.WithContext(ctx)
		for i, e := range p.Experiments {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				c, err := s.calculation(engine, st, p, e)
				if err != nil {
					return err
				}
				out[i] = c
				return nil
			})
		}
		return g.Wait()
	})
	return out, err
}
