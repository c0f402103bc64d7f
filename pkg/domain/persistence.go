package domain

import "context"

// ProjectRepository is the abstraction over durable project backends. Every
// driver stores whole documents; the project is the unit of persistence.
type ProjectRepository interface {
	Save(ctx context.Context, doc ProjectDocument) error
	Load(ctx context.Context, id string) (ProjectDocument, error)
	List(ctx context.Context) ([]ProjectSummary, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// CloneDocument returns a deep copy so repositories never share slices with callers.
func CloneDocument(d ProjectDocument) ProjectDocument {
	cp := d
	cp.Parameters = make([]ParameterRecord, len(d.Parameters))
	for i, p := range d.Parameters {
		cp.Parameters[i] = p
		cp.Parameters[i].Min = cloneFloat(p.Min)
		cp.Parameters[i].Max = cloneFloat(p.Max)
	}
	cp.Phases = make([]PhaseRecord, len(d.Phases))
	for i, ph := range d.Phases {
		cp.Phases[i] = ph
		cp.Phases[i].Atoms = make([]AtomRecord, len(ph.Atoms))
		for j, a := range ph.Atoms {
			cp.Phases[i].Atoms[j] = a
			cp.Phases[i].Atoms[j].Uani = append([]string(nil), a.Uani...)
		}
	}
	cp.Experiments = make([]ExperimentRecord, len(d.Experiments))
	for i, e := range d.Experiments {
		cp.Experiments[i] = e
		cp.Experiments[i].Points = append([]MeasuredPoint(nil), e.Points...)
		cp.Experiments[i].Background = append([]BackgroundRecord(nil), e.Background...)
		cp.Experiments[i].Phases = append([]PhaseLinkRecord(nil), e.Phases...)
	}
	if d.LastFit != nil {
		lf := *d.LastFit
		lf.LastChanged = append([]string(nil), d.LastFit.LastChanged...)
		if d.LastFit.Uncertainties != nil {
			lf.Uncertainties = make(map[string]float64, len(d.LastFit.Uncertainties))
			for k, v := range d.LastFit.Uncertainties {
				lf.Uncertainties[k] = v
			}
		}
		cp.LastFit = &lf
	}
	return cp
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
