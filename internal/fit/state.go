// Package fit refines free parameters against measured data.
//
// An Engine runs at most one fit at a time. Its state moves
// Idle → Running → {Converged, MaxIterationsReached, Failed, Cancelled};
// any terminal state may start again. Progress is published on a buffered
// channel: intermediate updates are dropped when the reader lags, the final
// update is always delivered and the channel is closed after it.
package fit

import (
	"strings"

	"diffractcore/pkg/domain"
)

// State is the fit lifecycle state.
type State string

// Fit states.
const (
	Idle                 State = "idle"
	Running              State = "running"
	Converged            State = "converged"
	MaxIterationsReached State = "max_iterations_reached"
	Failed               State = "failed"
	Cancelled            State = "cancelled"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case Converged, MaxIterationsReached, Failed, Cancelled:
		return true
	}
	return false
}

// Minimizer method names.
const (
	MethodLM         = "lm"
	MethodNelderMead = "nelder-mead"
	MethodLBFGS      = "lbfgs"
	MethodGradient   = "gradient"
)

// Methods lists the supported minimizers.
func Methods() []string {
	return []string{MethodLM, MethodNelderMead, MethodLBFGS, MethodGradient}
}

// DefaultConfig returns the settings used when a project has not chosen any.
func DefaultConfig() domain.FitConfig {
	return domain.FitConfig{
		Method:             MethodLM,
		MaxIterations:      200,
		Tolerance:          1e-8,
		ParameterTolerance: 1e-10,
		Patience:           3,
	}
}

// NormalizeConfig fills zero fields with defaults and validates the method.
func NormalizeConfig(cfg domain.FitConfig) (domain.FitConfig, error) {
	def := DefaultConfig()
	cfg.Method = strings.ToLower(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = def.Method
	}
	known := false
	for _, m := range Methods() {
		if m == cfg.Method {
			known = true
		}
	}
	if !known {
		return cfg, domain.Newf(domain.CodeMalformedData, cfg.Method, "unknown minimizer, want one of %s", strings.Join(Methods(), ", "))
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.ParameterTolerance <= 0 {
		cfg.ParameterTolerance = def.ParameterTolerance
	}
	if cfg.Patience <= 0 {
		cfg.Patience = def.Patience
	}
	return cfg, nil
}

// Progress is one update published while a fit runs.
type Progress struct {
	RunID            string  `json:"run_id"`
	State            State   `json:"state"`
	Iteration        int     `json:"iteration"`
	ChiSquare        float64 `json:"chi2"`
	ReducedChiSquare float64 `json:"redchi2"`
	Final            bool    `json:"final"`
	// Summary is set on the final update only.
	Summary *domain.FitSummary `json:"summary,omitempty"`
}
