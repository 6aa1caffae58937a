package refactor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match with errors.Is.
var (
	ErrSchema      = errors.New("schema error")
	ErrAssociation = errors.New("association error")
	ErrStorage     = errors.New("storage error")
	ErrValidation  = errors.New("validation error")
)

// Error is a classified failure of one refactoring step.
type Error struct {
	Kind   error
	Op     string
	Table  string
	Column string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	switch {
	case e.Table != "" && e.Column != "":
		msg += fmt.Sprintf(" %s.%s", e.Table, e.Column)
	case e.Table != "":
		msg += " " + e.Table
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// SchemaError reports a missing or conflicting column.
func SchemaError(op, table, column string, err error) error {
	return &Error{Kind: ErrSchema, Op: op, Table: table, Column: column, Err: err}
}

// AssociationError reports a reference that cannot be derived or loaded.
func AssociationError(op, table string, err error) error {
	return &Error{Kind: ErrAssociation, Op: op, Table: table, Err: err}
}

// ValidationError reports a row rejected by a data constraint.
func ValidationError(op, table string, err error) error {
	return &Error{Kind: ErrValidation, Op: op, Table: table, Err: err}
}

// StorageError wraps err as a storage failure unless it is already classified.
func StorageError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if classified(err) {
		return errors.WithMessage(err, op)
	}
	return &Error{Kind: ErrStorage, Op: op, Table: table, Err: err}
}

func classified(err error) bool {
	return errors.Is(err, ErrSchema) || errors.Is(err, ErrAssociation) ||
		errors.Is(err, ErrStorage) || errors.Is(err, ErrValidation)
}
