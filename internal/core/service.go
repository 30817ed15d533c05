// Package core hosts the program service: transactional mutations of
// program trees with integrity rules, rollups, progress events and the
// observability hooks around them.
package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"obscore/internal/archive"
	"obscore/internal/events"
	"obscore/internal/infra/persistence/memory"
	"obscore/pkg/domain"
)

// ErrNoArchive is returned by ArchiveRollup when no archive is configured.
var ErrNoArchive = errors.New("no archive configured")

// Service exposes transactional operations over stored programs.
type Service struct {
	store     PersistentStore
	logger    Logger
	clock     Clock
	audit     AuditRecorder
	metrics   MetricsRecorder
	tracer    Tracer
	publisher events.Publisher
	archive   archive.Store
	props     domain.ObservatoryProperties
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditRecorder sets the recorder for mutating operations.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the operation metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the operation tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithPublisher sets the destination of progress events.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithArchive sets the store ArchiveRollup writes to.
func WithArchive(store archive.Store) Option {
	return func(s *Service) { s.archive = store }
}

// WithObservatory sets the observatory properties used to resolve
// instruments in rollups.
func WithObservatory(props domain.ObservatoryProperties) Option {
	return func(s *Service) { s.props = props }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    noopLogger{},
		clock:     systemClock,
		audit:     noopAuditRecorder{},
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
		publisher: events.Discard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over an in-memory store using engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() PersistentStore { return s.store }

type operationMeta struct {
	subject string
	action  Action
}

// auditedOperations lists the operations written to the audit recorder.
// Reads are traced and measured but not audited.
var auditedOperations = map[string]operationMeta{
	"create_program":         {subject: domain.KindProgram, action: ActionCreate},
	"update_program":         {subject: domain.KindProgram, action: ActionUpdate},
	"delete_program":         {subject: domain.KindProgram, action: ActionDelete},
	"mark_atom_observed":     {subject: domain.KindAtom, action: ActionUpdate},
	"set_previous":           {subject: domain.KindGroup, action: ActionUpdate},
	"clear_previous":         {subject: domain.KindGroup, action: ActionUpdate},
	"set_observation_status": {subject: domain.KindObservation, action: ActionUpdate},
	"archive_rollup":         {subject: domain.KindProgram, action: ActionCreate},
}

// run wraps fn with tracing, metrics, auditing and logging. entityID names
// what the operation acted on.
func (s *Service) run(ctx context.Context, op string, program ProgramID, entityID string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.recordAudit(ctx, op, program, entityID, duration, err)
		s.logger.Error("operation failed", "operation", op, "entity", entityID, "error", err)
		return err
	}
	s.recordAuditSuccess(ctx, op, program, entityID, duration)
	s.logger.Debug("operation completed", "operation", op, "entity", entityID, "duration", duration)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op string, program ProgramID, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, program, entityID, duration, nil)
}

func (s *Service) recordAudit(ctx context.Context, op string, program ProgramID, entityID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Subject:   meta.subject,
		Action:    meta.action,
		ProgramID: program,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// PutProgram creates p or replaces the stored program with the same id.
// Blocking rule violations abort the write with a RuleViolationError.
func (s *Service) PutProgram(ctx context.Context, p Program) (Program, Result, error) {
	op := "create_program"
	if _, exists := s.store.GetProgram(p.ID); exists {
		op = "update_program"
	}
	var (
		before *Program
		stored Program
		res    Result
	)
	err := s.run(ctx, op, p.ID, string(p.ID), func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if current, ok := tx.FindProgram(p.ID); ok {
				before = &current
				var err error
				stored, err = tx.UpdateProgram(p.ID, func(target *Program) error {
					*target = p.Clone()
					return nil
				})
				return err
			}
			var err error
			stored, err = tx.CreateProgram(p)
			return err
		})
		return err
	})
	if err != nil {
		return Program{}, res, err
	}
	s.afterCommit(ctx, before, stored, res)
	return stored, res, nil
}

// DeleteProgram removes a stored program.
func (s *Service) DeleteProgram(ctx context.Context, id ProgramID) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_program", id, string(id), func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteProgram(id)
		})
		return err
	})
	if err != nil {
		return res, err
	}
	if r, ok := s.metrics.(ProgramTimeRecorder); ok {
		r.ForgetProgram(id)
	}
	return res, nil
}

// GetProgram returns a copy of the stored program.
func (s *Service) GetProgram(ctx context.Context, id ProgramID) (Program, error) {
	var p Program
	err := s.run(ctx, "get_program", id, string(id), func(context.Context) error {
		found, ok := s.store.GetProgram(id)
		if !ok {
			return domain.NotFoundError{Kind: domain.KindProgram, ID: string(id)}
		}
		p = found
		return nil
	})
	return p, err
}

// ListPrograms returns every stored program ordered by id.
func (s *Service) ListPrograms(ctx context.Context) []Program {
	var out []Program
	_ = s.run(ctx, "list_programs", "", "", func(context.Context) error {
		out = s.store.ListPrograms()
		return nil
	})
	return out
}

// MarkAtomObserved flags an atom as executed with the given QA state.
func (s *Service) MarkAtomObserved(ctx context.Context, programID ProgramID, obsID ObservationID, atomID string, qa domain.QAState) (Program, Result, error) {
	entity := fmt.Sprintf("%s/%s/%s", programID, obsID, atomID)
	p, res, err := s.mutate(ctx, "mark_atom_observed", programID, entity, func(p *Program) error {
		return p.MarkAtomObserved(obsID, atomID, qa)
	})
	if err != nil {
		return p, res, err
	}
	data := map[string]any{"qa_state": qa.String()}
	if used, ok := s.timeUsed(p); ok {
		data["program_used"] = used.ProgramUsed.String()
		data["partner_used"] = used.PartnerUsed.String()
	}
	s.publish(ctx, events.New(events.AtomObserved, string(programID), string(obsID)+"/"+atomID, s.clock.Now(), data))
	return p, res, nil
}

// SetPrevious records child index as the last executed child of an AND group.
func (s *Service) SetPrevious(ctx context.Context, programID ProgramID, groupID GroupID, index int) (Program, Result, error) {
	return s.mutate(ctx, "set_previous", programID, fmt.Sprintf("%s/%s", programID, groupID), func(p *Program) error {
		return p.SetPrevious(groupID, index)
	})
}

// ClearPrevious drops the progress of an AND group.
func (s *Service) ClearPrevious(ctx context.Context, programID ProgramID, groupID GroupID) (Program, Result, error) {
	return s.mutate(ctx, "clear_previous", programID, fmt.Sprintf("%s/%s", programID, groupID), func(p *Program) error {
		return p.ClearPrevious(groupID)
	})
}

// SetObservationStatus changes an observation's status and active flag.
func (s *Service) SetObservationStatus(ctx context.Context, programID ProgramID, obsID ObservationID, status domain.ObservationStatus, active bool) (Program, Result, error) {
	return s.mutate(ctx, "set_observation_status", programID, fmt.Sprintf("%s/%s", programID, obsID), func(p *Program) error {
		return p.UpdateObservation(obsID, func(o *domain.Observation) error {
			o.Status = status
			o.Active = active
			return nil
		})
	})
}

// mutate applies fn to a copy of the stored program inside a transaction.
// Readers holding the previous program are unaffected.
func (s *Service) mutate(ctx context.Context, op string, programID ProgramID, entityID string, fn func(*Program) error) (Program, Result, error) {
	var (
		before  Program
		updated Program
		res     Result
	)
	err := s.run(ctx, op, programID, entityID, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			current, ok := tx.FindProgram(programID)
			if !ok {
				return domain.NotFoundError{Kind: domain.KindProgram, ID: string(programID)}
			}
			before = current
			var err error
			updated, err = tx.UpdateProgram(programID, fn)
			return err
		})
		return err
	})
	if err != nil {
		return Program{}, res, err
	}
	s.afterCommit(ctx, &before, updated, res)
	return updated, res, nil
}

// timeUsed reports the time charged to p. Committed programs have normally
// passed the structural rules, so a failure is logged rather than returned.
func (s *Service) timeUsed(p Program) (domain.TimeUsed, bool) {
	used, err := p.TimeUsed()
	if err != nil {
		s.logger.Warn("time usage unavailable", "program", p.ID, "error", err)
		return domain.TimeUsed{}, false
	}
	return used, true
}

// afterCommit publishes the group state transitions between before and
// after and any over-allocation warnings, and updates time gauges.
func (s *Service) afterCommit(ctx context.Context, before *Program, after Program, res Result) {
	if r, ok := s.metrics.(ProgramTimeRecorder); ok {
		if used, ok := s.timeUsed(after); ok {
			r.ObserveProgramTime(after.ID, used.ProgramUsed, used.PartnerUsed)
		}
	}
	now := s.clock.Now()
	var out []events.Event
	if before != nil {
		prev := groupStates(*before)
		next := groupStates(after)
		ids := make([]GroupID, 0, len(next))
		for id := range next {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			from, known := prev[id]
			if !known || from == next[id] {
				continue
			}
			out = append(out, events.New(events.GroupStateChanged, string(after.ID), string(id), now, map[string]any{
				"from": string(from),
				"to":   string(next[id]),
			}))
		}
	}
	for _, v := range res.Violations {
		if v.Rule != TimeAllocationRuleName {
			continue
		}
		s.logger.Warn("time over-allocated", "program", v.ProgramID, "message", v.Message)
		out = append(out, events.New(events.TimeOverAllocated, string(v.ProgramID), v.Subject, now, map[string]any{
			"message": v.Message,
		}))
	}
	s.publish(ctx, out...)
}

// publish delivers events. Failures are logged and never fail the operation
// that produced the events, which has already committed.
func (s *Service) publish(ctx context.Context, evs ...events.Event) {
	if len(evs) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		s.logger.Warn("publish events failed", "count", len(evs), "error", err)
	}
}

// Rollup computes the time accounting and progress of a stored program.
func (s *Service) Rollup(ctx context.Context, id ProgramID) (ProgramRollup, error) {
	var r ProgramRollup
	err := s.run(ctx, "rollup", id, string(id), func(context.Context) error {
		p, ok := s.store.GetProgram(id)
		if !ok {
			return domain.NotFoundError{Kind: domain.KindProgram, ID: string(id)}
		}
		var err error
		r, err = BuildRollup(p, s.props, s.clock.Now())
		return err
	})
	return r, err
}

// ArchiveRollup computes a program's rollup and writes it to the archive
// under a fresh key.
func (s *Service) ArchiveRollup(ctx context.Context, id ProgramID) (archive.Info, ProgramRollup, error) {
	var (
		info archive.Info
		r    ProgramRollup
	)
	err := s.run(ctx, "archive_rollup", id, string(id), func(ctx context.Context) error {
		if s.archive == nil {
			return ErrNoArchive
		}
		p, ok := s.store.GetProgram(id)
		if !ok {
			return domain.NotFoundError{Kind: domain.KindProgram, ID: string(id)}
		}
		var err error
		if r, err = BuildRollup(p, s.props, s.clock.Now()); err != nil {
			return err
		}
		info, err = archive.PutJSON(ctx, s.archive, archive.RollupKey(string(id)), r, map[string]string{
			"program": string(id),
		})
		return err
	})
	return info, r, err
}
