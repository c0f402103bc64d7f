package core

import "diffractcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	ProjectDocument    = domain.ProjectDocument
	ProjectInfo        = domain.ProjectInfo
	ProjectSummary     = domain.ProjectSummary
	FitConfig          = domain.FitConfig
	FitSummary         = domain.FitSummary
	MeasuredPoint      = domain.MeasuredPoint
)

const (
	EntityProject    = domain.EntityProject
	EntityParameter  = domain.EntityParameter
	EntityPhase      = domain.EntityPhase
	EntityAtom       = domain.EntityAtom
	EntityExperiment = domain.EntityExperiment
	EntityFit        = domain.EntityFit
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
