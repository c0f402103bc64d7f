package core

import (
	"diffractcore/internal/experiment"
	"diffractcore/internal/params"
	"diffractcore/internal/structure"
	"diffractcore/pkg/domain"
)

// Project is the aggregate a transaction works on: one parameter store plus
// the phases and experiments that map names onto it.
type Project struct {
	ID          string
	Info        ProjectInfo
	Params      *params.Store
	Phases      []*structure.Phase
	Experiments []*experiment.Experiment
	Fit         FitConfig
	LastFit     *FitSummary
}

func (p *Project) clone() *Project {
	cp := &Project{
		ID:          p.ID,
		Info:        p.Info,
		Params:      p.Params.Fork(),
		Phases:      make([]*structure.Phase, len(p.Phases)),
		Experiments: make([]*experiment.Experiment, len(p.Experiments)),
		Fit:         p.Fit,
	}
	for i, ph := range p.Phases {
		cp.Phases[i] = ph.Clone()
	}
	for i, e := range p.Experiments {
		cp.Experiments[i] = e.Clone()
	}
	if p.LastFit != nil {
		lf := cloneSummary(*p.LastFit)
		cp.LastFit = &lf
	}
	return cp
}

func cloneSummary(s FitSummary) FitSummary {
	cp := s
	cp.LastChanged = append([]string(nil), s.LastChanged...)
	if s.Uncertainties != nil {
		cp.Uncertainties = make(map[string]float64, len(s.Uncertainties))
		for k, v := range s.Uncertainties {
			cp.Uncertainties[k] = v
		}
	}
	return cp
}

// Phase returns the phase with the given id.
func (p *Project) Phase(id string) (*structure.Phase, bool) {
	for _, ph := range p.Phases {
		if ph.ID == id {
			return ph, true
		}
	}
	return nil, false
}

// Experiment returns the experiment with the given id.
func (p *Project) Experiment(id string) (*experiment.Experiment, bool) {
	for _, e := range p.Experiments {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (p *Project) phase(id string) (*structure.Phase, error) {
	if ph, ok := p.Phase(id); ok {
		return ph, nil
	}
	return nil, domain.Newf(domain.CodeNotFound, id, "phase not in project %s", p.ID)
}

func (p *Project) experiment(id string) (*experiment.Experiment, error) {
	if e, ok := p.Experiment(id); ok {
		return e, nil
	}
	return nil, domain.Newf(domain.CodeNotFound, id, "experiment not in project %s", p.ID)
}

// Document converts the project into its persisted form.
func (p *Project) Document() ProjectDocument {
	doc := ProjectDocument{
		SchemaVersion: domain.DocumentSchemaVersion,
		ID:            p.ID,
		Info:          p.Info,
		Parameters:    p.Params.Export(),
		Phases:        make([]domain.PhaseRecord, 0, len(p.Phases)),
		Experiments:   make([]domain.ExperimentRecord, 0, len(p.Experiments)),
		Fit:           p.Fit,
	}
	for _, ph := range p.Phases {
		doc.Phases = append(doc.Phases, ph.Record())
	}
	for _, e := range p.Experiments {
		doc.Experiments = append(doc.Experiments, e.Record())
	}
	if p.LastFit != nil {
		lf := cloneSummary(*p.LastFit)
		doc.LastFit = &lf
	}
	return doc
}

// ProjectFromDocument rebuilds a project, checking every cross reference.
func ProjectFromDocument(doc ProjectDocument) (*Project, error) {
	if doc.ID == "" {
		return nil, domain.Newf(domain.CodeMalformedData, "", "document has no project id")
	}
	if doc.SchemaVersion > domain.DocumentSchemaVersion {
		return nil, domain.Newf(domain.CodeMalformedData, doc.ID, "schema version %d is newer than %d", doc.SchemaVersion, domain.DocumentSchemaVersion)
	}
	store, err := params.FromRecords(doc.Parameters)
	if err != nil {
		return nil, domain.Wrap(domain.CodeMalformedData, doc.ID, err)
	}
	p := &Project{ID: doc.ID, Info: doc.Info, Params: store, Fit: doc.Fit}
	for _, rec := range doc.Phases {
		if _, dup := p.Phase(rec.ID); dup {
			return nil, domain.Newf(domain.CodeDuplicateID, rec.ID, "phase listed twice")
		}
		ph, err := structure.FromRecord(rec, store)
		if err != nil {
			return nil, err
		}
		p.Phases = append(p.Phases, ph)
	}
	for _, rec := range doc.Experiments {
		if _, dup := p.Experiment(rec.ID); dup {
			return nil, domain.Newf(domain.CodeDuplicateID, rec.ID, "experiment listed twice")
		}
		e, err := experiment.FromRecord(rec, store)
		if err != nil {
			return nil, err
		}
		for _, l := range e.Phases {
			if _, ok := p.Phase(l.PhaseID); !ok {
				return nil, domain.Newf(domain.CodeUnknownID, l.PhaseID, "experiment %s links a missing phase", e.ID)
			}
		}
		p.Experiments = append(p.Experiments, e)
	}
	if doc.LastFit != nil {
		lf := cloneSummary(*doc.LastFit)
		p.LastFit = &lf
	}
	return p, nil
}
