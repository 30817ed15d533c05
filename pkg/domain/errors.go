package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrDataIntegrity = errors.New("data integrity violation")
)

// Kind labels used by NotFoundError and DataIntegrityError.
const (
	KindProgram     = "program"
	KindGroup       = "group"
	KindObservation = "observation"
	KindAtom        = "atom"
	KindTarget      = "target"
	KindResource    = "resource"
)

// NotFoundError is returned when a lookup by identifier or index has no match.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DataIntegrityError reports a violated structural invariant of a program tree.
type DataIntegrityError struct {
	Kind   string
	ID     string
	Reason string
}

func (e DataIntegrityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("data integrity: %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("data integrity: %s %s: %s", e.Kind, e.ID, e.Reason)
}

// Is reports whether target is ErrDataIntegrity.
func (e DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

func integrityf(kind, id, format string, args ...any) error {
	return DataIntegrityError{Kind: kind, ID: id, Reason: fmt.Sprintf(format, args...)}
}
