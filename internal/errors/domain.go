// Package errors holds the typed domain errors surfaced by the ledger.
package errors

import stderrors "errors"

// DomainError is a typed, caller-visible ledger failure.
// Two DomainErrors match under errors.Is when their codes are equal, or when
// the target is the parent category of the error.
type DomainError struct {
	Code     string
	Message  string
	Category *DomainError
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on code and on category.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Category != nil && e.Category.Code == t.Code
}

// Code extracts the domain code of err, or "" when err is not a DomainError.
func Code(err error) string {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}
