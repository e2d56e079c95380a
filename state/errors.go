package state

import (
	"errors"
	"fmt"
)

// ErrInvalidLevel is returned when a membership change names a level that
// doesn't exist.
var ErrInvalidLevel = errors.New("state: invalid level")

// EntityKind tells what kind of lookup an UnknownEntityError is about.
type EntityKind int

// Kinds of unknown entities.
const (
	UnknownUser EntityKind = iota + 1
	UnknownChannel
	UnknownHostmask
)

func (kind EntityKind) String() string {
	switch kind {
	case UnknownUser:
		return "user"
	case UnknownChannel:
		return "channel"
	case UnknownHostmask:
		return "user hostmask"
	default:
		return "entity"
	}
}

// UnknownEntityError is returned by every directory lookup that does not
// create what it can't find.
type UnknownEntityError struct {
	Kind EntityKind
	Name string
}

func (err *UnknownEntityError) Error() string {
	return fmt.Sprintf("state: unknown %s %q", err.Kind, err.Name)
}

// IsUnknown returns true if err is an UnknownEntityError of that kind.
func IsUnknown(err error, kind EntityKind) bool {
	var unknown *UnknownEntityError
	if !errors.As(err, &unknown) {
		return false
	}

	return unknown.Kind == kind
}

// ImmutableStateError is returned when something tries to change a snapshot,
// or to snapshot a snapshot. It means the caller has a bug.
type ImmutableStateError struct {
	Entity    string
	Name      string
	Operation string
}

func (err *ImmutableStateError) Error() string {
	if err.Name == "" {
		return fmt.Sprintf("state: %s on a %s snapshot", err.Operation, err.Entity)
	}

	return fmt.Sprintf("state: %s on a snapshot of %s %q", err.Operation, err.Entity, err.Name)
}

// IsImmutable returns true if err is an ImmutableStateError.
func IsImmutable(err error) bool {
	var immutable *ImmutableStateError
	return errors.As(err, &immutable)
}
