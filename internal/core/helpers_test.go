package core

import (
	"context"
	"sync"
	"time"

	"obscore/pkg/domain"
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

// programView is a map-backed RuleView.
type programView map[ProgramID]Program

func (v programView) ListPrograms() []Program {
	out := make([]Program, 0, len(v))
	for _, p := range v {
		out = append(out, p)
	}
	return out
}

func (v programView) FindProgram(id ProgramID) (Program, bool) {
	p, ok := v[id]
	return p, ok
}

func created(programs ...Program) (programView, []Change) {
	view := programView{}
	changes := make([]Change, 0, len(programs))
	for _, p := range programs {
		view[p.ID] = p
		after := p
		changes = append(changes, Change{Action: domain.ActionCreate, ProgramID: p.ID, After: &after})
	}
	return view, changes
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
