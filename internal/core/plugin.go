package core

import (
	"fmt"
	"sort"

	"diffractcore/internal/calc"
)

// Plugin contributes rules and calculator engines.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry collects a plugin's contributions during Register.
type PluginRegistry struct {
	rules   []Rule
	engines map[string]calc.Engine
}

// NewPluginRegistry constructs an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{engines: make(map[string]calc.Engine)}
}

// RegisterRule adds a rule evaluated on every commit.
func (r *PluginRegistry) RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// RegisterEngine adds a calculator engine under its name.
func (r *PluginRegistry) RegisterEngine(engine calc.Engine) error {
	if engine == nil || engine.Name() == "" {
		return fmt.Errorf("engine must have a name")
	}
	if _, ok := r.engines[engine.Name()]; ok {
		return fmt.Errorf("engine %s already registered", engine.Name())
	}
	r.engines[engine.Name()] = engine
	return nil
}

// Rules returns the registered rules.
func (r *PluginRegistry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Engines returns the registered engines ordered by name.
func (r *PluginRegistry) Engines() []calc.Engine {
	out := make([]calc.Engine, 0, len(r.engines))
	for _, e := range r.engines {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// PluginMetadata describes an installed plugin.
type PluginMetadata struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Rules   []string `json:"rules,omitempty"`
	Engines []string `json:"engines,omitempty"`
}
