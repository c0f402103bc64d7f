package core

import (
	"context"
	"fmt"

	"diffractcore/pkg/domain"
)

// NewUniqueAtomLabelsRule blocks phases holding two sites with one label.
func NewUniqueAtomLabelsRule() domain.Rule {
	return uniqueAtomLabelsRule{}
}

type uniqueAtomLabelsRule struct{}

func (uniqueAtomLabelsRule) Name() string { return "unique_atom_labels" }

func (r uniqueAtomLabelsRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ph := range view.ListPhases() {
		seen := make(map[string]bool, len(ph.Atoms))
		for _, a := range ph.Atoms {
			if !seen[a.Label] {
				seen[a.Label] = true
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("label %s repeated in phase %s", a.Label, ph.ID),
				Entity:   domain.EntityAtom,
				EntityID: ph.ID + "." + a.Label,
			})
		}
	}
	return res, nil
}
