package models

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidStatusTransition = errors.New("invalid run status transition")
	ErrRunAlreadyFinished      = errors.New("run is already finished")
	ErrEmptyScenario           = errors.New("finding scenario cannot be empty")
	ErrInvalidFindingKind      = errors.New("invalid finding kind")
	ErrRunNotFound             = errors.New("run not found")
)

// UnknownFilterError is returned when a symbolic filter name has no mapping
type UnknownFilterError struct {
	Kind string
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown %s filter: %q", e.Kind, e.Name)
}

// IsUnknownFilter reports whether err is, or wraps, an UnknownFilterError
func IsUnknownFilter(err error) bool {
	var target *UnknownFilterError
	return errors.As(err, &target)
}
