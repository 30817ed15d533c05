// Package memory provides an in-memory implementation of the program snapshot
// store used for tests, ephemeral environments and as the transactional core
// of the SQL-backed stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"obscore/pkg/domain"
)

// Compile-time contract assertion ensuring Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Program aliases domain.Program for in-memory persistence operations.
	Program = domain.Program
	// ProgramID aliases domain.ProgramID.
	ProgramID = domain.ProgramID
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// ErrProgramExists is returned when creating a program whose id is taken.
var ErrProgramExists = errors.New("program already exists")

// Snapshot captures a point-in-time copy of the store state.
type Snapshot struct {
	Programs map[ProgramID]Program `json:"programs"`
}

type memoryState struct {
	programs map[ProgramID]Program
}

func newMemoryState() memoryState {
	return memoryState{programs: make(map[ProgramID]Program)}
}

// clone copies the program map. Programs are replaced wholesale on update and
// never mutated in place, so sharing the values between states is safe.
func (s memoryState) clone() memoryState {
	cloned := memoryState{programs: make(map[ProgramID]Program, len(s.programs))}
	for id, p := range s.programs {
		cloned.programs[id] = p
	}
	return cloned
}

func (s memoryState) sorted() []Program {
	ids := make([]ProgramID, 0, len(s.programs))
	for id := range s.programs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Program, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.programs[id].Clone())
	}
	return out
}

// Store provides an in-memory transactional store for programs.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{Programs: make(map[ProgramID]Program, len(s.state.programs))}
	for id, p := range s.state.programs {
		out.Programs[id] = p.Clone()
	}
	return out
}

// ImportState replaces the store state with the provided snapshot. Entries
// whose key disagrees with the program id are keyed by the program id.
func (s *Store) ImportState(snapshot Snapshot) {
	state := newMemoryState()
	for id, p := range snapshot.Programs {
		if p.ID == "" {
			p.ID = id
		}
		state.programs[p.ID] = p.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	state   memoryState
	changes []Change
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPrograms returns all programs within the snapshot ordered by id.
func (v transactionView) ListPrograms() []Program {
	return v.state.sorted()
}

// FindProgram returns the program with id from the snapshot.
func (v transactionView) FindProgram(id ProgramID) (Program, bool) {
	p, ok := v.state.programs[id]
	if !ok {
		return Program{}, false
	}
	return p.Clone(), true
}

// RunInTransaction executes fn against a private copy of the state. Rules are
// evaluated on the resulting state; blocking violations discard it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil && len(tx.changes) > 0 {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindProgram exposes program lookup within the transaction scope.
func (tx *transaction) FindProgram(id ProgramID) (Program, bool) {
	return transactionView{state: &tx.state}.FindProgram(id)
}

// CreateProgram stores a new program.
func (tx *transaction) CreateProgram(p Program) (Program, error) {
	if p.ID == "" {
		return Program{}, domain.DataIntegrityError{Kind: domain.KindProgram, Reason: "program id required"}
	}
	if _, exists := tx.state.programs[p.ID]; exists {
		return Program{}, fmt.Errorf("program %q: %w", p.ID, ErrProgramExists)
	}
	stored := p.Clone()
	tx.state.programs[p.ID] = stored
	after := stored.Clone()
	tx.recordChange(Change{Action: domain.ActionCreate, ProgramID: p.ID, After: &after})
	return stored.Clone(), nil
}

// UpdateProgram applies mutator to a copy of the program and stores the
// result. The program id cannot be changed.
func (tx *transaction) UpdateProgram(id ProgramID, mutator func(*Program) error) (Program, error) {
	current, ok := tx.state.programs[id]
	if !ok {
		return Program{}, domain.NotFoundError{Kind: domain.KindProgram, ID: string(id)}
	}
	before := current.Clone()
	next := current.Clone()
	if err := mutator(&next); err != nil {
		return Program{}, err
	}
	next.ID = id
	tx.state.programs[id] = next
	after := next.Clone()
	tx.recordChange(Change{Action: domain.ActionUpdate, ProgramID: id, Before: &before, After: &after})
	return next.Clone(), nil
}

// DeleteProgram removes a program from the transaction state.
func (tx *transaction) DeleteProgram(id ProgramID) error {
	current, ok := tx.state.programs[id]
	if !ok {
		return domain.NotFoundError{Kind: domain.KindProgram, ID: string(id)}
	}
	delete(tx.state.programs, id)
	before := current.Clone()
	tx.recordChange(Change{Action: domain.ActionDelete, ProgramID: id, Before: &before})
	return nil
}

// GetProgram retrieves a program by id from committed state.
func (s *Store) GetProgram(id ProgramID) (Program, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.programs[id]
	if !ok {
		return Program{}, false
	}
	return p.Clone(), true
}

// ListPrograms returns all committed programs ordered by id.
func (s *Store) ListPrograms() []Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.sorted()
}

// ProgramIDs returns the committed program ids in order.
func (s *Store) ProgramIDs() []ProgramID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ProgramID, 0, len(s.state.programs))
	for id := range s.state.programs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
