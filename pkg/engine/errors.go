package engine

import (
	"errors"
	"fmt"

	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
)

var (
	// ErrNotFound is returned when an id is not part of the local tree
	ErrNotFound = errors.New("entity not found")

	// ErrPasswordRequired is returned by content writes that must be
	// encrypted when no session password is available
	ErrPasswordRequired = gateway.ErrPasswordRequired
)

// ValidationError reports input rejected before any event was published
type ValidationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(op, reason string, err error) error {
	return &ValidationError{Op: op, Reason: reason, Err: err}
}

// IsValidation reports whether err was raised before the operation started
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func notInTree(op, kind, id string) error {
	return invalid(op, kind+" "+id, ErrNotFound)
}
