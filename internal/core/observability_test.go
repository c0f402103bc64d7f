package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"diffractcore/pkg/domain"
)

func TestNoopObservabilityIsSafe(t *testing.T) {
	ctx := context.Background()
	var l Logger = noopLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	noopMetricsRecorder{}.Observe(ctx, "op", true, time.Millisecond)
	noopAuditRecorder{}.Record(ctx, AuditEntry{})
	_, span := noopTracer{}.Start(ctx, "op")
	span.End(errors.New("ignored"))
	if NewSlogLogger(nil) == nil {
		t.Fatalf("nil slog logger should fall back to the default")
	}
}

func TestServiceLogsAuditsAndTraces(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	audit := &auditCapture{}
	tracer := NewJSONTracer(nil)
	svc := newTestService(t, WithLogger(NewSlogLogger(logger)), WithAuditRecorder(audit), WithTracer(tracer))
	ctx := context.Background()
	mustCreate(t, svc, "p")
	if _, _, err := svc.AddDefaultPhase(ctx, "p", "cl"); err != nil {
		t.Fatalf("add phase: %v", err)
	}
	if _, _, err := svc.AddDefaultPhase(ctx, "p", "cl"); err == nil {
		t.Fatalf("expected duplicate phase")
	}

	var ok, failed int
	for _, e := range audit.entries {
		if e.Operation != "add_phase" {
			continue
		}
		if e.Entity != EntityPhase || e.Action != ActionCreate || !e.Timestamp.Equal(fixedTime) {
			t.Fatalf("unexpected audit entry %+v", e)
		}
		switch e.Status {
		case AuditStatusSuccess:
			ok++
		case AuditStatusError:
			failed++
			if !strings.Contains(e.Error, "DuplicateId") && !strings.Contains(e.Error, "phase exists") {
				t.Fatalf("audit error text %q", e.Error)
			}
		}
	}
	if ok != 1 || failed != 1 {
		t.Fatalf("expected one success and one failure, got %d/%d", ok, failed)
	}
	if !strings.Contains(logs.String(), `"operation":"add_phase"`) || !strings.Contains(logs.String(), "operation failed") {
		t.Fatalf("missing structured log lines:\n%s", logs.String())
	}

	entries := tracer.Entries()
	if len(entries) != 3 || entries[2].Status != string(AuditStatusError) || entries[0].Operation != "create_project" {
		t.Fatalf("unexpected spans %+v", entries)
	}
}

func TestImportCIFIsAuditedOnParseFailure(t *testing.T) {
	audit := &auditCapture{}
	metrics := NewExpvarMetricsRecorder("")
	svc := newTestService(t, WithAuditRecorder(audit), WithMetricsRecorder(metrics))
	ctx := context.Background()
	mustCreate(t, svc, "p")

	_, _, err := svc.ImportCIF(ctx, "p", strings.NewReader("_cell_length_a 3.9\n"))
	if !errors.Is(err, domain.ErrImport) {
		t.Fatalf("expected import error, got %v", err)
	}
	e, ok := audit.find("import_cif")
	if !ok || e.Status != AuditStatusError || e.Entity != EntityPhase || e.Error == "" {
		t.Fatalf("failed import not audited: %+v %v", e, ok)
	}
	if _, _, err := svc.ImportCIF(ctx, "p", strings.NewReader(cubicCIF)); err != nil {
		t.Fatalf("import cif: %v", err)
	}
	results := metrics.Snapshot().Results["import_cif"]
	if results[AuditStatusSuccess] != 1 || results[AuditStatusError] != 1 {
		t.Fatalf("unexpected import_cif metrics %+v", results)
	}
	if _, ok := metrics.Snapshot().Results["import_phase"]; ok {
		t.Fatalf("cif import recorded under import_phase")
	}
}

func TestParametersAreNotAudited(t *testing.T) {
	audit := &auditCapture{}
	svc := newTestService(t, WithAuditRecorder(audit))
	mustCreate(t, svc, "p")
	if _, err := svc.Parameters(context.Background(), "p"); err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if _, err := svc.CalculateAll(context.Background(), "p"); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(audit.entries) != 1 || audit.entries[0].Operation != "create_project" {
		t.Fatalf("read operations should not be audited: %+v", audit.entries)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "set_parameter", true, 2*time.Millisecond)
	rec.Observe(ctx, "set_parameter", false, time.Millisecond)
	rec.ObserveFitIteration("p", 12.5)
	rec.ObserveFitIteration("p", 3.5)

	snap := rec.Snapshot()
	if snap.Results["set_parameter"][AuditStatusSuccess] != 1 || snap.Results["set_parameter"][AuditStatusError] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS["set_parameter"] != 3 {
		t.Fatalf("unexpected durations %+v", snap.DurationsMS)
	}
	if snap.FitIterations["p"] != 2 || snap.LastChi2["p"] != 3.5 {
		t.Fatalf("unexpected fit metrics %+v %+v", snap.FitIterations, snap.LastChi2)
	}
	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("recorder not published under %s", rec.Name())
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(v.String()), &decoded); err != nil {
		t.Fatalf("expvar value is not json: %v", err)
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "calculate")
	span.End(domain.Newf(domain.CodeNoData, "d1a", "empty x grid"))
	var entry JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode span: %v", err)
	}
	if entry.Operation != "calculate" || entry.Status != string(AuditStatusError) || entry.Error == "" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	rec.Observe(context.Background(), "add_phase", true, 3*time.Millisecond)
	rec.ObserveFitIteration("p", 7)
	rec.ObserveFitIteration("p", 4)

	if got := testutil.ToFloat64(rec.iterations.WithLabelValues("p")); got != 2 {
		t.Fatalf("iterations = %v", got)
	}
	if got := testutil.ToFloat64(rec.chi2.WithLabelValues("p")); got != 4 {
		t.Fatalf("chi2 = %v", got)
	}
	if n := testutil.CollectAndCount(rec.latency, "diffractcore_service_operation_duration_seconds"); n != 1 {
		t.Fatalf("expected one latency series, got %d", n)
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := newTestService(t, WithTracer(NewOTelTracer(tp.Tracer("test"))))
	mustCreate(t, svc, "p")
	if _, err := svc.GetProject(context.Background(), "p"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := svc.DeleteProject(context.Background(), "missing"); err == nil {
		t.Fatalf("expected delete of missing project to fail")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans))
	}
	if spans[0].Name() != "core.create_project" || spans[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected first span %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Name() != "core.delete_project" || spans[1].Status().Code != codes.Error {
		t.Fatalf("unexpected second span %s %v", spans[1].Name(), spans[1].Status())
	}
}
