package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"diffractcore/internal/experiment"
	"diffractcore/internal/importer"
	"diffractcore/internal/params"
	"diffractcore/internal/structure"
	"diffractcore/pkg/domain"
)

func newParamStore() *params.Store { return params.NewStore() }

func nextID(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s%d", base, n)
		if !taken(id) {
			return id
		}
	}
}

// AddDefaultPhase adds the default phase. An empty phaseID derives one from
// the default phase name.
func (s *Service) AddDefaultPhase(ctx context.Context, projectID, phaseID string) (domain.PhaseRecord, Result, error) {
	var rec domain.PhaseRecord
	res, err := s.mutate(ctx, "add_phase", projectID, phaseID, func(tx *Transaction) error {
		p := tx.Project()
		id := phaseID
		if id == "" {
			id = nextID(strings.ToLower(structure.DefaultPhaseName), func(c string) bool { _, ok := p.Phase(c); return ok })
		} else if _, ok := p.Phase(id); ok {
			return domain.Newf(domain.CodeDuplicateID, id, "phase exists")
		}
		ph, err := structure.NewDefaultPhase(p.Params, id)
		if err != nil {
			return err
		}
		p.Phases = append(p.Phases, ph)
		rec = ph.Record()
		tx.Record(Change{Entity: EntityPhase, Action: ActionCreate, EntityID: id, After: rec})
		return nil
	})
	return rec, res, err
}

// ImportPhase adds a phase described by an import record.
func (s *Service) ImportPhase(ctx context.Context, projectID string, record importer.StructureRecord) (domain.PhaseRecord, Result, error) {
	var rec domain.PhaseRecord
	res, err := s.mutate(ctx, "import_phase", projectID, record.Name, func(tx *Transaction) error {
		var err error
		rec, err = importPhase(tx, record)
		return err
	})
	return rec, res, err
}

// ImportCIF adds every data block of a CIF document as a phase, all or
// nothing. The document is read inside the transaction, so parse failures are
// audited like any other failed import.
func (s *Service) ImportCIF(ctx context.Context, projectID string, r io.Reader) ([]domain.PhaseRecord, Result, error) {
	var out []domain.PhaseRecord
	res, err := s.mutate(ctx, "import_cif", projectID, projectID, func(tx *Transaction) error {
		records, err := importer.FromCIF(r)
		if err != nil {
			return err
		}
		out = out[:0]
		for _, record := range records {
			rec, err := importPhase(tx, record)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return out, res, nil
}

func importPhase(tx *Transaction, record importer.StructureRecord) (domain.PhaseRecord, error) {
	if err := record.Validate(); err != nil {
		return domain.PhaseRecord{}, err
	}
	p := tx.Project()
	if _, ok := p.Phase(record.Name); ok {
		return domain.PhaseRecord{}, domain.Newf(domain.CodeDuplicateID, record.Name, "phase exists")
	}
	ph, err := structure.NewPhase(p.Params, record.Name, record.Name, record.SpaceGroup, record.Setting, record.Cell())
	if err != nil {
		return domain.PhaseRecord{}, domain.Wrap(domain.CodeImportError, record.Name, err)
	}
	for _, a := range record.Atoms {
		spec := structure.AtomSpec{
			Label:     a.Label,
			Specie:    a.Specie,
			Frac:      [3]float64{a.X, a.Y, a.Z},
			Occupancy: a.Occupancy,
			ADPType:   a.ADPType,
			Uiso:      a.Uiso,
			Uani:      a.Uani,
		}
		if err := ph.AddAtom(p.Params, spec); err != nil {
			return domain.PhaseRecord{}, domain.Wrap(domain.CodeImportError, record.Name, err)
		}
	}
	p.Phases = append(p.Phases, ph)
	rec := ph.Record()
	tx.Record(Change{Entity: EntityPhase, Action: ActionCreate, EntityID: ph.ID, After: rec})
	return rec, nil
}

// RemovePhase deletes a phase and its parameters. Experiments still linking
// the phase block the commit.
func (s *Service) RemovePhase(ctx context.Context, projectID, phaseID string) (Result, error) {
	return s.mutate(ctx, "remove_phase", projectID, phaseID, func(tx *Transaction) error {
		p := tx.Project()
		ph, err := p.phase(phaseID)
		if err != nil {
			return err
		}
		if err := p.Params.RemoveAll(ph.ParamIDs()); err != nil {
			return err
		}
		for i := range p.Phases {
			if p.Phases[i].ID == phaseID {
				p.Phases = append(p.Phases[:i:i], p.Phases[i+1:]...)
				break
			}
		}
		tx.Record(Change{Entity: EntityPhase, Action: ActionDelete, EntityID: phaseID, Before: ph.Record()})
		return nil
	})
}

// RenamePhase changes a phase's display name.
func (s *Service) RenamePhase(ctx context.Context, projectID, phaseID, name string) (Result, error) {
	return s.withPhase(ctx, "rename_phase", projectID, phaseID, func(_ *Project, ph *structure.Phase) error {
		return ph.Rename(name)
	})
}

// SetSpaceGroup changes a phase's space group and cell constraints.
func (s *Service) SetSpaceGroup(ctx context.Context, projectID, phaseID, symbol, setting string) (Result, error) {
	return s.withPhase(ctx, "set_space_group", projectID, phaseID, func(p *Project, ph *structure.Phase) error {
		return ph.SetSpaceGroup(p.Params, symbol, setting)
	})
}

// AddAtom appends a site. A nil spec adds the default site.
func (s *Service) AddAtom(ctx context.Context, projectID, phaseID string, spec *structure.AtomSpec) (string, Result, error) {
	var label string
	res, err := s.withPhase(ctx, "add_atom", projectID, phaseID, func(p *Project, ph *structure.Phase) error {
		sp := ph.DefaultAtomSpec()
		if spec != nil {
			sp = *spec
			if sp.Label == "" {
				sp.Label = ph.NextAtomLabel()
			}
			if sp.ADPType == "" {
				sp.ADPType = domain.ADPIsotropic
			}
		}
		label = sp.Label
		return ph.AddAtom(p.Params, sp)
	})
	return label, res, err
}

// DuplicateAtom copies a site under newLabel, or the next free label.
func (s *Service) DuplicateAtom(ctx context.Context, projectID, phaseID, label, newLabel string) (string, Result, error) {
	var created string
	res, err := s.withPhase(ctx, "duplicate_atom", projectID, phaseID, func(p *Project, ph *structure.Phase) error {
		var err error
		created, err = ph.DuplicateAtom(p.Params, label, newLabel)
		return err
	})
	return created, res, err
}

// RemoveAtom deletes a site.
func (s *Service) RemoveAtom(ctx context.Context, projectID, phaseID, label string) (Result, error) {
	return s.withPhase(ctx, "remove_atom", projectID, phaseID, func(p *Project, ph *structure.Phase) error {
		return ph.RemoveAtom(p.Params, label)
	})
}

// SetADPType switches a site between Uiso and Uani.
func (s *Service) SetADPType(ctx context.Context, projectID, phaseID, label, adp string) (Result, error) {
	return s.withPhase(ctx, "set_adp_type", projectID, phaseID, func(p *Project, ph *structure.Phase) error {
		return ph.SetADPType(p.Params, label, adp)
	})
}

func (s *Service) withPhase(ctx context.Context, op, projectID, phaseID string, fn func(*Project, *structure.Phase) error) (Result, error) {
	return s.mutate(ctx, op, projectID, phaseID, func(tx *Transaction) error {
		p := tx.Project()
		ph, err := p.phase(phaseID)
		if err != nil {
			return err
		}
		before := ph.Record()
		if err := fn(p, ph); err != nil {
			return err
		}
		tx.Record(Change{Entity: EntityPhase, Action: ActionUpdate, EntityID: phaseID, Before: before, After: ph.Record()})
		return nil
	})
}

// AddExperiment adds a simulation-only experiment. An empty expID picks
// "experiment", "experiment2", ...
func (s *Service) AddExperiment(ctx context.Context, projectID, expID, name string) (domain.ExperimentRecord, Result, error) {
	var rec domain.ExperimentRecord
	res, err := s.mutate(ctx, "add_experiment", projectID, expID, func(tx *Transaction) error {
		p := tx.Project()
		id := expID
		if id == "" {
			id = nextID("experiment", func(c string) bool { _, ok := p.Experiment(c); return ok })
		} else if _, ok := p.Experiment(id); ok {
			return domain.Newf(domain.CodeDuplicateID, id, "experiment exists")
		}
		e, err := experiment.New(p.Params, id, name)
		if err != nil {
			return err
		}
		p.Experiments = append(p.Experiments, e)
		rec = e.Record()
		tx.Record(Change{Entity: EntityExperiment, Action: ActionCreate, EntityID: id, After: rec})
		return nil
	})
	return rec, res, err
}

// ImportMeasured replaces an experiment's measured series.
func (s *Service) ImportMeasured(ctx context.Context, projectID, expID string, points []MeasuredPoint) (Result, error) {
	return s.withExperiment(ctx, "import_measured", projectID, expID, func(_ *Project, e *experiment.Experiment) error {
		return e.ImportMeasured(points)
	})
}

// ImportXYE reads an XYE table into an experiment.
func (s *Service) ImportXYE(ctx context.Context, projectID, expID string, r io.Reader) (Result, error) {
	points, err := importer.ReadXYE(r)
	if err != nil {
		return Result{}, err
	}
	return s.ImportMeasured(ctx, projectID, expID, points)
}

// ClearMeasured turns an experiment back into a simulation.
func (s *Service) ClearMeasured(ctx context.Context, projectID, expID string) (Result, error) {
	return s.withExperiment(ctx, "import_measured", projectID, expID, func(_ *Project, e *experiment.Experiment) error {
		e.ClearMeasured()
		return nil
	})
}

// SetRange changes an experiment's simulation grid.
func (s *Service) SetRange(ctx context.Context, projectID, expID string, r domain.SimulationRange) (Result, error) {
	return s.withExperiment(ctx, "set_range", projectID, expID, func(_ *Project, e *experiment.Experiment) error {
		return e.SetRange(r)
	})
}

// RemoveExperiment deletes an experiment and its parameters.
func (s *Service) RemoveExperiment(ctx context.Context, projectID, expID string) (Result, error) {
	return s.mutate(ctx, "remove_experiment", projectID, expID, func(tx *Transaction) error {
		p := tx.Project()
		e, err := p.experiment(expID)
		if err != nil {
			return err
		}
		if err := p.Params.RemoveAll(e.ParamIDs()); err != nil {
			return err
		}
		for i := range p.Experiments {
			if p.Experiments[i].ID == expID {
				p.Experiments = append(p.Experiments[:i:i], p.Experiments[i+1:]...)
				break
			}
		}
		tx.Record(Change{Entity: EntityExperiment, Action: ActionDelete, EntityID: expID, Before: e.Record()})
		return nil
	})
}

// LinkPhase makes a phase contribute to an experiment.
func (s *Service) LinkPhase(ctx context.Context, projectID, expID, phaseID string) (Result, error) {
	return s.withExperiment(ctx, "link_phase", projectID, expID, func(p *Project, e *experiment.Experiment) error {
		if _, err := p.phase(phaseID); err != nil {
			return err
		}
		return e.LinkPhase(p.Params, phaseID)
	})
}

// UnlinkPhase detaches a phase from an experiment.
func (s *Service) UnlinkPhase(ctx context.Context, projectID, expID, phaseID string) (Result, error) {
	return s.withExperiment(ctx, "unlink_phase", projectID, expID, func(p *Project, e *experiment.Experiment) error {
		return e.UnlinkPhase(p.Params, phaseID)
	})
}

// AddBackgroundPoint anchors the background at x and returns the new
// intensity parameter id.
func (s *Service) AddBackgroundPoint(ctx context.Context, projectID, expID string, x, intensity float64) (string, Result, error) {
	var id string
	res, err := s.withExperiment(ctx, "add_background_point", projectID, expID, func(p *Project, e *experiment.Experiment) error {
		var err error
		id, err = e.AddBackgroundPoint(p.Params, x, intensity)
		return err
	})
	return id, res, err
}

// RemoveBackgroundPoint drops the anchor at x.
func (s *Service) RemoveBackgroundPoint(ctx context.Context, projectID, expID string, x float64) (Result, error) {
	return s.withExperiment(ctx, "remove_background_point", projectID, expID, func(p *Project, e *experiment.Experiment) error {
		return e.RemoveBackgroundPoint(p.Params, x)
	})
}

func (s *Service) withExperiment(ctx context.Context, op, projectID, expID string, fn func(*Project, *experiment.Experiment) error) (Result, error) {
	return s.mutate(ctx, op, projectID, expID, func(tx *Transaction) error {
		p := tx.Project()
		e, err := p.experiment(expID)
		if err != nil {
			return err
		}
		if err := fn(p, e); err != nil {
			return err
		}
		tx.Record(Change{Entity: EntityExperiment, Action: ActionUpdate, EntityID: expID, After: e.Record()})
		return nil
	})
}

// SetParameter assigns a value.
func (s *Service) SetParameter(ctx context.Context, projectID, paramID string, v float64) (domain.ParameterRecord, Result, error) {
	return s.withParameter(ctx, "set_parameter", projectID, paramID, func(st *params.Store) error {
		return st.Set(paramID, v)
	})
}

// SetParameterFree marks a parameter free or fixed.
func (s *Service) SetParameterFree(ctx context.Context, projectID, paramID string, free bool) (domain.ParameterRecord, Result, error) {
	return s.withParameter(ctx, "set_parameter_free", projectID, paramID, func(st *params.Store) error {
		return st.SetFree(paramID, free)
	})
}

// SetParameterBounds replaces a parameter's bounds; nil sides are open.
func (s *Service) SetParameterBounds(ctx context.Context, projectID, paramID string, lower, upper *float64) (domain.ParameterRecord, Result, error) {
	return s.withParameter(ctx, "set_parameter_bounds", projectID, paramID, func(st *params.Store) error {
		return st.SetBounds(paramID, params.Bounds{Min: lower, Max: upper})
	})
}

// LinkParameter constrains a parameter to an expression.
func (s *Service) LinkParameter(ctx context.Context, projectID, paramID, expression string) (domain.ParameterRecord, Result, error) {
	return s.withParameter(ctx, "link_parameter", projectID, paramID, func(st *params.Store) error {
		return st.Link(paramID, expression)
	})
}

// UnlinkParameter releases a constraint, keeping the last value.
func (s *Service) UnlinkParameter(ctx context.Context, projectID, paramID string) (domain.ParameterRecord, Result, error) {
	return s.withParameter(ctx, "unlink_parameter", projectID, paramID, func(st *params.Store) error {
		return st.Unlink(paramID)
	})
}

func (s *Service) withParameter(ctx context.Context, op, projectID, paramID string, fn func(*params.Store) error) (domain.ParameterRecord, Result, error) {
	var rec domain.ParameterRecord
	res, err := s.mutate(ctx, op, projectID, paramID, func(tx *Transaction) error {
		st := tx.Project().Params
		before, err := st.Parameter(paramID)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		after, err := st.Parameter(paramID)
		if err != nil {
			return err
		}
		rec = after.Record()
		tx.Record(Change{Entity: EntityParameter, Action: ActionUpdate, EntityID: paramID, Before: before.Record(), After: rec})
		return nil
	})
	return rec, res, err
}

// Undo reverts the last recorded parameter edit and returns its label.
func (s *Service) Undo(ctx context.Context, projectID string) (string, Result, error) {
	return s.replay(ctx, "undo", projectID, (*params.Store).Undo, params.ErrNothingToUndo)
}

// Redo replays the last undone edit and returns its label.
func (s *Service) Redo(ctx context.Context, projectID string) (string, Result, error) {
	return s.replay(ctx, "redo", projectID, (*params.Store).Redo, params.ErrNothingToRedo)
}

func (s *Service) replay(ctx context.Context, op, projectID string, step func(*params.Store) (string, error), empty error) (string, Result, error) {
	var label string
	res, err := s.mutate(ctx, op, projectID, projectID, func(tx *Transaction) error {
		var err error
		label, err = step(tx.Project().Params)
		if errors.Is(err, empty) {
			return domain.Wrap(domain.CodeInvalidTransition, projectID, err)
		}
		if err != nil {
			return err
		}
		tx.Record(Change{Entity: EntityParameter, Action: ActionUpdate, EntityID: label})
		return nil
	})
	return label, res, err
}

// Parameters lists every parameter of a project in declaration order.
func (s *Service) Parameters(ctx context.Context, projectID string) ([]domain.ParameterRecord, error) {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return p.Params.Export(), nil
}

// CanUndo reports whether undo and redo steps are available.
func (s *Service) CanUndo(ctx context.Context, projectID string) (undo, redo bool, err error) {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return false, false, err
	}
	return p.Params.CanUndo(), p.Params.CanRedo(), nil
}
