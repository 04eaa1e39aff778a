package vramcache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/registry"
)

var (
	// ErrNotFound is returned when a hash is not known to the cache.
	ErrNotFound = errors.New("resource not found")

	// ErrInUse is returned when removing a resource still referenced by a scene.
	ErrInUse = errors.New("resource in use")

	// ErrInvalidArgument is returned for invalid types, empty data or nil payloads.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache closed")
)

// ErrTypeMismatch indicates a hash that is already known with another type.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrTypeMismatch struct {
	Hash     model.ResourceHash
	Expected model.ResourceType
	Actual   model.ResourceType
	cause    error
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch for %s: registered as %s, got %s", e.Hash, e.Expected, e.Actual)
}

func (e *ErrTypeMismatch) Unwrap() error { return e.cause }

// ErrInvalidStatus indicates an operation not allowed in the resource's
// current status, such as providing bytes for an uploaded resource.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidStatus struct {
	Hash   model.ResourceHash
	Status model.ResourceStatus
	cause  error
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("resource %s is %s", e.Hash, e.Status)
}

func (e *ErrInvalidStatus) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, registry.ErrInUse) {
		return fmt.Errorf("%w: %w", ErrInUse, err)
	}
	if errors.Is(err, registry.ErrInvalidArgument) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	var se *registry.StatusError
	if errors.As(err, &se) {
		return &ErrInvalidStatus{Hash: se.Hash, Status: se.Status, cause: err}
	}

	return err
}

func typeMismatch(h model.ResourceHash, expected, actual model.ResourceType, cause error) error {
	return &ErrTypeMismatch{Hash: h, Expected: expected, Actual: actual, cause: cause}
}
