package core

import (
	"context"
	"time"
)

// Logger is the structured logger used by the service; *slog.Logger satisfies it.
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

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

var systemClock = ClockFunc(func() time.Time { return time.Now().UTC() })

// AuditStatus is the outcome of an audited operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one mutating service operation. Subject is the kind of
// thing the operation acted on and EntityID names it, usually as
// "<program>/<group or observation>".
type AuditEntry struct {
	Operation string
	Subject   string
	Action    Action
	ProgramID ProgramID
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder receives the outcome and latency of every service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// ProgramTimeRecorder is implemented by metrics recorders that also track
// the time charged to each program.
type ProgramTimeRecorder interface {
	ObserveProgramTime(program ProgramID, programUsed, partnerUsed time.Duration)
	ForgetProgram(program ProgramID)
}

// MultiMetricsRecorder forwards every observation to each recorder in turn.
// Program time reaches only the recorders that track it.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// ObserveProgramTime implements ProgramTimeRecorder.
func (m MultiMetricsRecorder) ObserveProgramTime(program ProgramID, programUsed, partnerUsed time.Duration) {
	for _, r := range m {
		if pr, ok := r.(ProgramTimeRecorder); ok {
			pr.ObserveProgramTime(program, programUsed, partnerUsed)
		}
	}
}

// ForgetProgram implements ProgramTimeRecorder.
func (m MultiMetricsRecorder) ForgetProgram(program ProgramID) {
	for _, r := range m {
		if pr, ok := r.(ProgramTimeRecorder); ok {
			pr.ForgetProgram(program)
		}
	}
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}
