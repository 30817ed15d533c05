package domain

import "context"

// Transaction exposes the program operations that a persistence
// implementation must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateProgram(Program) (Program, error)
	UpdateProgram(id ProgramID, mutator func(*Program) error) (Program, error)
	DeleteProgram(id ProgramID) error
	FindProgram(id ProgramID) (Program, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListPrograms() []Program
	FindProgram(id ProgramID) (Program, bool)
}

// PersistentStore is a minimal abstraction over durable program snapshot
// backends. Programs handed out are copies; mutating them never affects the
// store.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProgram(id ProgramID) (Program, bool)
	ListPrograms() []Program
}
