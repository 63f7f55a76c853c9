package persistence

import (
	"errors"
	"fmt"

	"github.com/mattsolo1/grove-quill/pkg/models"
)

var (
	// ErrNotFound is matched by every lookup failure, see NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrNotAProject is returned when a path holds no project database.
	ErrNotAProject = errors.New("not a quill project")
	// ErrProjectExists is returned by CreateProject when the target directory
	// is not empty.
	ErrProjectExists = errors.New("project directory already exists")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Kind models.Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind models.Kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
