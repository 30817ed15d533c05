package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	other := NewExpvarMetricsRecorder("")
	if rec.Name() == other.Name() || !strings.HasPrefix(rec.Name(), "obscore_service_metrics_") {
		t.Fatalf("expected distinct generated names, got %s and %s", rec.Name(), other.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "set_previous", true, 10*time.Millisecond)
	rec.Observe(ctx, "set_previous", false, 30*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	stats, ok := snap.Operations["set_previous"]
	if !ok || len(snap.Operations) != 1 {
		t.Fatalf("unexpected operations %+v", snap.Operations)
	}
	if stats.Successes != 1 || stats.Errors != 1 || stats.TotalDurationMS != 40 || stats.MaxDurationMS != 30 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("expected recorder to be published")
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(v.String()), &decoded); err != nil {
		t.Fatalf("decode expvar: %v", err)
	}
	if decoded.Operations["set_previous"].Successes != 1 {
		t.Fatalf("unexpected published snapshot %+v", decoded)
	}
}

func TestJSONTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "rollup")
	span.End(nil)
	span.End(errors.New("ignored"))
	_, failed := tracer.Start(context.Background(), "put_program")
	failed.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected each span to end once, got %+v", entries)
	}
	if entries[0].Operation != "rollup" || entries[0].Status != "success" {
		t.Fatalf("unexpected first span %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected failed span %+v", entries[1])
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("expected two JSON lines, got %q", buf.String())
	}

	silent := NewJSONTracer(nil)
	_, span = silent.Start(context.Background(), "rollup")
	span.End(nil)
	if len(silent.Entries()) != 1 {
		t.Fatalf("expected spans to be retained without a writer")
	}
}

func TestServiceWithJSONTracer(t *testing.T) {
	tracer := NewJSONTracer(nil)
	svc := NewInMemoryService(NewRulesEngine(), WithTracer(tracer))
	if _, err := svc.GetProgram(context.Background(), "missing"); err == nil {
		t.Fatalf("expected missing program")
	}
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != "get_program" || entries[0].Status != "error" {
		t.Fatalf("unexpected spans %+v", entries)
	}
}
