package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"obscore/pkg/domain"
	"obscore/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	ctx := context.Background()
	svc, _ := newTestService(t, WithMetricsRecorder(rec))
	if _, _, err := svc.PutProgram(ctx, testutil.Program("P")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := promtest.ToFloat64(rec.timeUsed.WithLabelValues("P", "program")); got != (20 * time.Minute).Seconds() {
		t.Fatalf("expected 1200s program time, got %v", got)
	}
	if _, _, err := svc.MarkAtomObserved(ctx, "P", "o-4", "o-4-a1", domain.QAPass); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if got := promtest.ToFloat64(rec.timeUsed.WithLabelValues("P", "program")); got != (65 * time.Minute).Seconds() {
		t.Fatalf("expected 3900s program time, got %v", got)
	}
	if got := promtest.ToFloat64(rec.timeUsed.WithLabelValues("P", "partner")); got != (10 * time.Minute).Seconds() {
		t.Fatalf("expected 600s partner time, got %v", got)
	}

	if _, err := svc.GetProgram(ctx, "missing"); err == nil {
		t.Fatalf("expected missing program")
	}
	if got := promtest.ToFloat64(rec.total.WithLabelValues("create_program", "success")); got != 1 {
		t.Fatalf("expected one successful create, got %v", got)
	}
	if got := promtest.ToFloat64(rec.total.WithLabelValues("get_program", "error")); got != 1 {
		t.Fatalf("expected one failed get, got %v", got)
	}

	if _, err := svc.DeleteProgram(ctx, "P"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := promtest.CollectAndCount(rec.timeUsed); n != 0 {
		t.Fatalf("expected gauges of deleted program to be dropped, got %d series", n)
	}
}

func TestMultiMetricsRecorderFansOut(t *testing.T) {
	rec, err := NewPrometheusRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	capture := &captureMetricsRecorder{}
	svc, _ := newTestService(t, WithMetricsRecorder(MultiMetricsRecorder{capture, rec}))
	ctx := context.Background()
	if _, _, err := svc.PutProgram(ctx, testutil.Program("P")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !capture.has("create_program", true) {
		t.Fatalf("expected plain recorder to see the operation, got %+v", capture.calls)
	}
	if got := promtest.ToFloat64(rec.timeUsed.WithLabelValues("P", "partner")); got != (10 * time.Minute).Seconds() {
		t.Fatalf("expected 600s partner time, got %v", got)
	}
	if _, err := svc.DeleteProgram(ctx, "P"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := promtest.CollectAndCount(rec.timeUsed); n != 0 {
		t.Fatalf("expected program gauges removed, got %d", n)
	}
}
