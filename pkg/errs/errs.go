// Package errs defines the error taxonomy shared by every billing component.
//
// Domain packages keep snake_case sentinels and mark each one with exactly one
// kind so callers can branch on the kind without knowing the sentinel.
package errs

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidInput      = errors.New("invalid_input")
	ErrAlreadyExists     = errors.New("already_exists")
	ErrConflict          = errors.New("conflict")
	ErrDependencyFailure = errors.New("dependency_failure")
)

var kinds = []error{
	ErrNotFound,
	ErrInvalidInput,
	ErrAlreadyExists,
	ErrConflict,
	ErrDependencyFailure,
}

// NotFound returns a sentinel with the given code marked as ErrNotFound.
func NotFound(code string) error {
	return errors.Mark(errors.New(code), ErrNotFound)
}

func InvalidInput(code string) error {
	return errors.Mark(errors.New(code), ErrInvalidInput)
}

func AlreadyExists(code string) error {
	return errors.Mark(errors.New(code), ErrAlreadyExists)
}

func Conflict(code string) error {
	return errors.Mark(errors.New(code), ErrConflict)
}

// Dependency wraps a storage or collaborator failure. Errors that already
// carry a kind are returned with context but keep their kind.
func Dependency(err error, op string) error {
	if err == nil {
		return nil
	}
	if Kind(err) != "" {
		return errors.Wrap(err, op)
	}
	return errors.Mark(errors.Wrap(err, op), ErrDependencyFailure)
}

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsInvalidInput(err error) bool  { return errors.Is(err, ErrInvalidInput) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
func IsConflict(err error) bool      { return errors.Is(err, ErrConflict) }
func IsDependency(err error) bool    { return errors.Is(err, ErrDependencyFailure) }

// Kind returns the taxonomy name of err or "" when err is unclassified.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return ""
}
