package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes per-operation totals and fit progress
// through expvar.
type ExpvarMetricsRecorder struct {
	name       string
	mu         sync.Mutex
	durations  map[string]float64
	results    map[string]map[AuditStatus]int64
	iterations map[string]int64
	chi2       map[string]float64
}

// ExpvarMetricsSnapshot is a copy of the recorded values.
type ExpvarMetricsSnapshot struct {
	DurationsMS   map[string]float64                `json:"durations_ms_total"`
	Results       map[string]map[AuditStatus]int64 `json:"results_total"`
	FitIterations map[string]int64                  `json:"fit_iterations_total"`
	LastChi2      map[string]float64                `json:"fit_chi2"`
	RecordedAt    time.Time                         `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated name when empty. expvar names are process-global, so a name
// can only be published once.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("diffractcore_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:       name,
		durations:  make(map[string]float64),
		results:    make(map[string]map[AuditStatus]int64),
		iterations: make(map[string]int64),
		chi2:       make(map[string]float64),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current totals.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarMetricsSnapshot{
		DurationsMS:   make(map[string]float64, len(r.durations)),
		Results:       make(map[string]map[AuditStatus]int64, len(r.results)),
		FitIterations: make(map[string]int64, len(r.iterations)),
		LastChi2:      make(map[string]float64, len(r.chi2)),
		RecordedAt:    time.Now().UTC(),
	}
	for op, ms := range r.durations {
		snap.DurationsMS[op] = ms
	}
	for op, counts := range r.results {
		cp := make(map[AuditStatus]int64, len(counts))
		for st, n := range counts {
			cp[st] = n
		}
		snap.Results[op] = cp
	}
	for id, n := range r.iterations {
		snap.FitIterations[id] = n
	}
	for id, v := range r.chi2 {
		snap.LastChi2[id] = v
	}
	return snap
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	if operation == "" {
		return
	}
	status := AuditStatusError
	if success {
		status = AuditStatusSuccess
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] += float64(d) / float64(time.Millisecond)
	if r.results[operation] == nil {
		r.results[operation] = make(map[AuditStatus]int64, 2)
	}
	r.results[operation][status]++
}

// ObserveFitIteration implements FitMetricsRecorder.
func (r *ExpvarMetricsRecorder) ObserveFitIteration(projectID string, chi2 float64) {
	r.mu.Lock()
	r.iterations[projectID]++
	r.chi2[projectID] = chi2
	r.mu.Unlock()
}

// JSONTraceEntry is one span written by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes spans as JSON lines and keeps them for Entries.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
	now     func() time.Time
}

// NewJSONTracer writes to w; a nil writer only retains spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{now: func() time.Time { return time.Now().UTC() }}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries copies the recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: t.now()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := s.tracer.now()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     string(AuditStatusSuccess),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = string(AuditStatusError)
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
