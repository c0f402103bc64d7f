package core

import (
	"context"
	"fmt"

	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

const cellTolerance = 1e-6

// NewCellConsistencyRule blocks commits that leave a cell violating the
// metric of its crystal system.
func NewCellConsistencyRule() domain.Rule {
	return cellConsistencyRule{}
}

type cellConsistencyRule struct{}

func (cellConsistencyRule) Name() string { return "cell_consistency" }

func (r cellConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ph := range view.ListPhases() {
		g, err := symmetry.Lookup(ph.SpaceGroup, ph.Setting)
		if err != nil {
			res.Violations = append(res.Violations, r.violation(ph.ID, err.Error()))
			continue
		}
		ids := [6]string{ph.Cell.A, ph.Cell.B, ph.Cell.C, ph.Cell.Alpha, ph.Cell.Beta, ph.Cell.Gamma}
		var cell [6]float64
		missing := ""
		for i, id := range ids {
			p, ok := view.FindParameter(id)
			if !ok {
				missing = id
				break
			}
			cell[i] = p.Value
		}
		if missing != "" {
			res.Violations = append(res.Violations, r.violation(ph.ID, "missing cell parameter "+missing))
			continue
		}
		system, _ := view.CrystalSystem(ph.ID)
		if !symmetry.CellConsistent(symmetry.CrystalSystem(system), g.RhombohedralAxes(), cell, cellTolerance) {
			res.Violations = append(res.Violations, r.violation(ph.ID,
				fmt.Sprintf("cell %v does not fit the %s system of %s", cell, system, g.Symbol)))
		}
	}
	return res, nil
}

func (r cellConsistencyRule) violation(phaseID, msg string) domain.Violation {
	return domain.Violation{
		Rule:     r.Name(),
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   domain.EntityPhase,
		EntityID: phaseID,
	}
}
