package domain

import "testing"

func TestCloneDocumentIsDeep(t *testing.T) {
	lo, hi := 0.0, 1.0
	doc := ProjectDocument{
		ID:         "p",
		Parameters: []ParameterRecord{{ID: "a", Value: 0.5, Min: &lo, Max: &hi, Free: true}},
		Phases: []PhaseRecord{{ID: "lbco", Atoms: []AtomRecord{{
			Label: "La1", ADPType: ADPAnisotropic, Uani: []string{"u11", "u22", "u33", "u12", "u13", "u23"},
		}}}},
		Experiments: []ExperimentRecord{{
			ID:         "d1a",
			Points:     []MeasuredPoint{{X: 1, Y: 2, Sigma: 1}},
			Background: []BackgroundRecord{{X: 1, Intensity: "bg"}},
			Phases:     []PhaseLinkRecord{{PhaseID: "lbco"}},
		}},
		LastFit: &FitSummary{RunID: "r", LastChanged: []string{"a"}, Uncertainties: map[string]float64{"a": 0.1}},
	}
	cp := CloneDocument(doc)

	*cp.Parameters[0].Min = -1
	cp.Phases[0].Atoms[0].Uani[0] = "changed"
	cp.Experiments[0].Points[0].Y = 99
	cp.Experiments[0].Background[0].Intensity = "other"
	cp.Experiments[0].Phases[0].PhaseID = "other"
	cp.LastFit.LastChanged[0] = "b"
	cp.LastFit.Uncertainties["a"] = 5

	if lo != 0 || doc.Phases[0].Atoms[0].Uani[0] != "u11" || doc.Experiments[0].Points[0].Y != 2 {
		t.Fatalf("clone shares parameter, atom or point storage")
	}
	if doc.Experiments[0].Background[0].Intensity != "bg" || doc.Experiments[0].Phases[0].PhaseID != "lbco" {
		t.Fatalf("clone shares experiment references")
	}
	if doc.LastFit.LastChanged[0] != "a" || doc.LastFit.Uncertainties["a"] != 0.1 {
		t.Fatalf("clone shares fit summary")
	}
}
