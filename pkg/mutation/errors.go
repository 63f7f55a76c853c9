package mutation

import (
	"errors"
	"fmt"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

var (
	// ErrNoProject is returned before any I/O when no project is open.
	ErrNoProject = errors.New("no project open")
	// ErrPendingDeleteUsed is returned when a pending delete is confirmed
	// after it was already confirmed or cancelled.
	ErrPendingDeleteUsed = errors.New("pending delete already confirmed or cancelled")
	// ErrProjectChanged is returned when a pending delete is confirmed after
	// a different project was opened.
	ErrProjectChanged = errors.New("project changed since delete was requested")
)

// OpError is a failed engine call made on behalf of a user action.
type OpError struct {
	Op   string
	Kind models.Kind
	ID   string
	Err  error
}

func (e *OpError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
