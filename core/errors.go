package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError. A write that fails
	// validation never reaches the backend and runs no after callbacks.
	ErrValidation = errors.New("core: validation failed")
	// ErrUnsupported is returned when the backend cannot serve the operation,
	// e.g. GetNextID on a document store.
	ErrUnsupported = errors.New("core: operation not supported by backend")
	// ErrInvalidCriteria is returned when criteria arguments cannot be normalized.
	ErrInvalidCriteria = errors.New("core: invalid criteria")
	// ErrUnknownRelation is returned when With names an undeclared relation.
	ErrUnknownRelation = errors.New("core: unknown relation")
	// ErrUnknownEntity is returned by a Loader that cannot resolve a name.
	ErrUnknownEntity = errors.New("core: unknown entity")
)

// ValidationError carries the per-field messages of a failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports ErrValidation as the sentinel of every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
