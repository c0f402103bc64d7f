package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"diffractcore/pkg/domain"
)

const cubicCIF = `data_lbco
_space_group_name_H-M_alt  'P m -3 m'
_cell_length_a   3.89
_cell_length_b   3.89
_cell_length_c   3.89
_cell_angle_alpha 90
_cell_angle_beta  90
_cell_angle_gamma 90

loop_
_atom_site_label
_atom_site_type_symbol
_atom_site_fract_x
_atom_site_fract_y
_atom_site_fract_z
_atom_site_occupancy
_atom_site_U_iso_or_equiv
La1 La 0   0   0   0.5 0.006
Ba1 Ba 0   0   0   0.5 0.006
Co1 Co 0.5 0.5 0.5 1   0.003
O1  O  0   0.5 0.5 1   0.012
`

var fixedTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return fixedTime }))}, opts...)
	svc := NewInMemoryService(NewDefaultRulesEngine(), opts...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func mustCreate(t *testing.T, svc *Service, id string) {
	t.Helper()
	if _, _, err := svc.CreateProject(context.Background(), id, ProjectInfo{Name: id}); err != nil {
		t.Fatalf("create project %s: %v", id, err)
	}
}

// cubicProject builds a project holding the lbco phase linked to experiment
// d1a, simulated on a short grid.
func cubicProject(t *testing.T, svc *Service, id string) {
	t.Helper()
	ctx := context.Background()
	mustCreate(t, svc, id)
	if _, _, err := svc.ImportCIF(ctx, id, strings.NewReader(cubicCIF)); err != nil {
		t.Fatalf("import cif: %v", err)
	}
	if _, _, err := svc.AddExperiment(ctx, id, "d1a", ""); err != nil {
		t.Fatalf("add experiment: %v", err)
	}
	if _, err := svc.SetRange(ctx, id, "d1a", domain.SimulationRange{Min: 20, Max: 80, Step: 0.25}); err != nil {
		t.Fatalf("set range: %v", err)
	}
	if _, err := svc.LinkPhase(ctx, id, "d1a", "lbco"); err != nil {
		t.Fatalf("link phase: %v", err)
	}
}

func paramValue(t *testing.T, svc *Service, projectID, paramID string) domain.ParameterRecord {
	t.Helper()
	list, err := svc.Parameters(context.Background(), projectID)
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	for _, p := range list {
		if p.ID == paramID {
			return p
		}
	}
	t.Fatalf("parameter %s not found", paramID)
	return domain.ParameterRecord{}
}
