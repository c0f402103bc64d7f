package core

import (
	"context"
	"fmt"

	"diffractcore/pkg/domain"
)

// NewOccupancyRangeRule warns about site occupancies outside [0, 1].
// Occupancy is never clamped; the warning leaves the decision to the user.
func NewOccupancyRangeRule() domain.Rule {
	return occupancyRangeRule{}
}

type occupancyRangeRule struct{}

func (occupancyRangeRule) Name() string { return "occupancy_range" }

func (r occupancyRangeRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ph := range view.ListPhases() {
		for _, a := range ph.Atoms {
			p, ok := view.FindParameter(a.Occupancy)
			if !ok || (p.Value >= 0 && p.Value <= 1) {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("atom %s in phase %s has occupancy %g", a.Label, ph.ID, p.Value),
				Entity:   domain.EntityAtom,
				EntityID: a.Occupancy,
			})
		}
	}
	return res, nil
}
