package registry

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vramcache/model"
)

var (
	// ErrNotFound is returned when a hash is not registered.
	ErrNotFound = errors.New("resource not found")

	// ErrInUse is returned when removing a resource still referenced by a scene.
	ErrInUse = errors.New("resource in use by scene")

	// ErrInvalidArgument is returned for invalid types or nil payloads.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTypeMismatch is returned when a hash is re-registered with another type.
	ErrTypeMismatch = errors.New("resource type mismatch")
)

// StatusError reports an operation that is not allowed in the resource's status.
type StatusError struct {
	Op     string
	Hash   model.ResourceHash
	Status model.ResourceStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: resource %s is %s", e.Op, e.Hash, e.Status)
}

func notFound(op string, h model.ResourceHash) error {
	return fmt.Errorf("%s: %s: %w", op, h, ErrNotFound)
}
