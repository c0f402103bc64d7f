// Package persistencetest holds the behaviour every project repository must
// show, run by each driver's tests.
package persistencetest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"diffractcore/pkg/domain"
)

func ptr(v float64) *float64 { return &v }

// SampleDocument returns a small but fully cross-referenced project.
func SampleDocument(id, name string, modified time.Time) domain.ProjectDocument {
	return domain.ProjectDocument{
		SchemaVersion: domain.DocumentSchemaVersion,
		ID:            id,
		Info:          domain.ProjectInfo{Name: name, CreatedAt: modified.Add(-time.Hour), ModifiedAt: modified},
		Parameters: []domain.ParameterRecord{
			{ID: "phases.lbco.cell.length_a", Value: 3.89, Unit: "Å", Min: ptr(3.5), Max: ptr(4.2), Free: true},
			{ID: "phases.lbco.cell.length_b", Value: 3.89, Unit: "Å", Constraint: "phases.lbco.cell.length_a"},
			{ID: "phases.lbco.atoms.La.occupancy", Value: 0.5, Min: ptr(0), Max: ptr(1)},
			{ID: "experiments.hrpt.background.0", Value: 170},
		},
		Phases: []domain.PhaseRecord{{
			ID: "lbco", Name: "lbco", SpaceGroup: "P m -3 m",
			Cell: domain.CellRefs{A: "phases.lbco.cell.length_a", B: "phases.lbco.cell.length_b"},
			Atoms: []domain.AtomRecord{{Label: "La", Specie: "La", Occupancy: "phases.lbco.atoms.La.occupancy", ADPType: domain.ADPIsotropic}},
		}},
		Experiments: []domain.ExperimentRecord{{
			ID: "hrpt", Name: "hrpt",
			Points:     []domain.MeasuredPoint{{X: 10, Y: 170, Sigma: 13}, {X: 10.05, Y: 168, Sigma: 12.9}},
			Background: []domain.BackgroundRecord{{X: 10, Intensity: "experiments.hrpt.background.0"}},
			Phases:     []domain.PhaseLinkRecord{{PhaseID: "lbco", Scale: "phases.lbco.cell.length_a"}},
			Range:      domain.SimulationRange{Min: 10, Max: 150, Step: 0.05},
		}},
		Fit: domain.FitConfig{Method: "lm", MaxIterations: 100, Tolerance: 1e-8},
		LastFit: &domain.FitSummary{
			RunID: "run-1", State: "Converged", Success: true, Method: "lm", NVarys: 1, NPoints: 2,
			Uncertainties: map[string]float64{"phases.lbco.cell.length_a": 0.001},
			FinishedAt:    modified,
		},
	}
}

func sameDocument(t *testing.T, want, got domain.ProjectDocument) {
	t.Helper()
	a, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal want: %v", err)
	}
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal got: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("document changed in round trip:\nwant %s\ngot  %s", a, b)
	}
}

// RunContract exercises save, load, overwrite, list ordering and delete.
func RunContract(t *testing.T, repo domain.ProjectRepository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	if _, err := repo.Load(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}
	if ok, err := repo.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("delete of missing project should be false, got %v %v", ok, err)
	}
	if err := repo.Save(ctx, domain.ProjectDocument{}); !errors.Is(err, domain.ErrMalformedData) {
		t.Fatalf("expected empty id to be rejected, got %v", err)
	}

	doc := SampleDocument("p-lbco", "La0.5Ba0.5CoO3", base)
	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Mutating the caller's copy must not reach the repository.
	doc.Parameters[0].Value = 99
	got, err := repo.Load(ctx, "p-lbco")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sameDocument(t, SampleDocument("p-lbco", "La0.5Ba0.5CoO3", base), got)

	renamed := SampleDocument("p-lbco", "LBCO refined", base.Add(time.Minute))
	if err := repo.Save(ctx, renamed); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := repo.Save(ctx, SampleDocument("p-pbso4", "PbSO4", base)); err != nil {
		t.Fatalf("save second: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p-lbco" || list[1].ID != "p-pbso4" {
		t.Fatalf("unexpected listing %+v", list)
	}
	if list[0].Name != "LBCO refined" || !list[0].ModifiedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("listing not refreshed on overwrite: %+v", list[0])
	}

	ok, err := repo.Delete(ctx, "p-lbco")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := repo.Load(ctx, "p-lbco"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	list, err = repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one project left, got %+v %v", list, err)
	}
}
