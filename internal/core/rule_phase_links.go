package core

import (
	"context"
	"fmt"

	"diffractcore/pkg/domain"
)

// NewPhaseLinkIntegrityRule blocks experiments that reference missing phases.
func NewPhaseLinkIntegrityRule() domain.Rule {
	return phaseLinkIntegrityRule{}
}

type phaseLinkIntegrityRule struct{}

func (phaseLinkIntegrityRule) Name() string { return "phase_link_integrity" }

func (r phaseLinkIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, e := range view.ListExperiments() {
		for _, l := range e.Phases {
			if _, ok := view.FindPhase(l.PhaseID); ok {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("experiment %s links missing phase %s", e.ID, l.PhaseID),
				Entity:   domain.EntityExperiment,
				EntityID: e.ID,
			})
		}
	}
	return res, nil
}
