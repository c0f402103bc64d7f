// Package background is a reference plugin that checks how well the
// background of measured experiments is anchored.
package background

import (
	"context"
	"fmt"

	"diffractcore/internal/core"
)

// RuleName is the name of the coverage rule.
const RuleName = "background_coverage"

// MinAnchors is the number of anchors a measured experiment should carry.
const MinAnchors = 2

// Plugin registers the background coverage rule.
type Plugin struct{}

// New constructs a plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "background" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register wires the coverage rule.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterRule(coverageRule{})
	return nil
}

type coverageRule struct{}

func (coverageRule) Name() string { return RuleName }

// Evaluate warns about measured experiments with fewer than MinAnchors
// background anchors or anchors outside the measured range.
func (coverageRule) Evaluate(_ context.Context, view core.RuleView, _ []core.Change) (core.Result, error) {
	var result core.Result
	for _, e := range view.ListExperiments() {
		if len(e.Points) == 0 {
			continue
		}
		lo, hi := e.Points[0].X, e.Points[len(e.Points)-1].X
		if len(e.Background) < MinAnchors {
			result.Violations = append(result.Violations, warn(e.ID,
				fmt.Sprintf("experiment %s has %d background anchors, want at least %d", e.ID, len(e.Background), MinAnchors)))
		}
		for _, b := range e.Background {
			if b.X < lo || b.X > hi {
				result.Violations = append(result.Violations, warn(e.ID,
					fmt.Sprintf("background anchor at %g lies outside the measured range [%g, %g]", b.X, lo, hi)))
			}
		}
	}
	return result, nil
}

func warn(expID, msg string) core.Violation {
	return core.Violation{
		Rule:     RuleName,
		Severity: core.SeverityWarn,
		Message:  msg,
		Entity:   core.EntityExperiment,
		EntityID: expID,
	}
}
