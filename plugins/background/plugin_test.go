package background

import (
	"context"
	"testing"

	"diffractcore/internal/core"
	"diffractcore/pkg/domain"
)

func TestPluginRegistration(t *testing.T) {
	registry := core.NewPluginRegistry()
	if err := New().Register(registry); err != nil {
		t.Fatalf("register plugin: %v", err)
	}
	rules := registry.Rules()
	if len(rules) != 1 || rules[0].Name() != RuleName {
		t.Fatalf("expected the coverage rule, got %d rules", len(rules))
	}
	if len(registry.Engines()) != 0 {
		t.Fatalf("plugin should not register engines")
	}
}

func TestCoverageRuleOutcomes(t *testing.T) {
	svc := core.NewInMemoryService(core.NewRulesEngine())
	if _, err := svc.InstallPlugin(New()); err != nil {
		t.Fatalf("install plugin: %v", err)
	}
	ctx := context.Background()
	if _, _, err := svc.CreateProject(ctx, "p", core.ProjectInfo{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, res, err := svc.AddExperiment(ctx, "p", "d1a", "")
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("simulation-only experiments are not checked: %+v %v", res, err)
	}

	points := []domain.MeasuredPoint{{X: 10, Y: 5, Sigma: 1}, {X: 20, Y: 6, Sigma: 1}, {X: 30, Y: 4, Sigma: 1}}
	res, err = svc.ImportMeasured(ctx, "p", "d1a", points)
	if err != nil || len(res.Violations) != 1 || res.Violations[0].Rule != RuleName {
		t.Fatalf("expected missing anchors warning: %+v %v", res, err)
	}

	if _, _, err := svc.AddBackgroundPoint(ctx, "p", "d1a", 10, 1); err != nil {
		t.Fatalf("add anchor: %v", err)
	}
	_, res, err = svc.AddBackgroundPoint(ctx, "p", "d1a", 40, 1)
	if err != nil {
		t.Fatalf("add anchor: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Severity != core.SeverityWarn || res.Violations[0].EntityID != "d1a" {
		t.Fatalf("expected out-of-range anchor warning, got %+v", res.Violations)
	}

	res, err = svc.RemoveBackgroundPoint(ctx, "p", "d1a", 40)
	if err != nil {
		t.Fatalf("remove anchor: %v", err)
	}
	if _, _, err := svc.AddBackgroundPoint(ctx, "p", "d1a", 30, 1); err != nil {
		t.Fatalf("add anchor: %v", err)
	}
	doc, _ := svc.GetProject(ctx, "p")
	if len(doc.Experiments[0].Background) != 2 {
		t.Fatalf("unexpected anchors %+v", doc.Experiments[0].Background)
	}
	_, res, err = svc.SetParameter(ctx, "p", doc.Experiments[0].Background[0].Intensity, 3)
	if err != nil || len(res.Violations) != 0 {
		t.Fatalf("well anchored experiment still warned: %+v %v", res.Violations, err)
	}
}
