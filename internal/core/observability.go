package core

import (
	"context"
	"log/slog"
	"time"
)

// Logger is the structured logger used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewSlogLogger adapts a *slog.Logger. A nil logger yields slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return l
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// FitMetricsRecorder is implemented by recorders that also track fit
// progress.
type FitMetricsRecorder interface {
	ObserveFitIteration(projectID string, chi2 float64)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan ends a traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AuditStatus is the outcome recorded for an audited operation.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one audited mutation.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type auditMeta struct {
	entity EntityType
	action Action
}

// auditedOperations lists the mutations that produce audit entries.
var auditedOperations = map[string]auditMeta{
	"create_project":          {EntityProject, ActionCreate},
	"delete_project":          {EntityProject, ActionDelete},
	"update_project_info":     {EntityProject, ActionUpdate},
	"import_document":         {EntityProject, ActionCreate},
	"restore_archive":         {EntityProject, ActionCreate},
	"archive_project":         {EntityProject, ActionUpdate},
	"add_phase":               {EntityPhase, ActionCreate},
	"import_phase":            {EntityPhase, ActionCreate},
	"import_cif":              {EntityPhase, ActionCreate},
	"remove_phase":            {EntityPhase, ActionDelete},
	"rename_phase":            {EntityPhase, ActionUpdate},
	"set_space_group":         {EntityPhase, ActionUpdate},
	"add_atom":                {EntityAtom, ActionCreate},
	"duplicate_atom":          {EntityAtom, ActionCreate},
	"remove_atom":             {EntityAtom, ActionDelete},
	"set_adp_type":            {EntityAtom, ActionUpdate},
	"add_experiment":          {EntityExperiment, ActionCreate},
	"import_measured":         {EntityExperiment, ActionUpdate},
	"set_range":               {EntityExperiment, ActionUpdate},
	"remove_experiment":       {EntityExperiment, ActionDelete},
	"link_phase":              {EntityExperiment, ActionUpdate},
	"unlink_phase":            {EntityExperiment, ActionUpdate},
	"add_background_point":    {EntityExperiment, ActionUpdate},
	"remove_background_point": {EntityExperiment, ActionUpdate},
	"set_parameter":           {EntityParameter, ActionUpdate},
	"set_parameter_free":      {EntityParameter, ActionUpdate},
	"set_parameter_bounds":    {EntityParameter, ActionUpdate},
	"link_parameter":          {EntityParameter, ActionUpdate},
	"unlink_parameter":        {EntityParameter, ActionUpdate},
	"undo":                    {EntityParameter, ActionUpdate},
	"redo":                    {EntityParameter, ActionUpdate},
	"set_fit_config":          {EntityFit, ActionUpdate},
	"start_fit":               {EntityFit, ActionCreate},
	"finish_fit":              {EntityFit, ActionUpdate},
}
