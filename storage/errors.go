package storage

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.mongodb.org/mongo-driver/mongo"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindConflict
	KindTransient
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// StoreError is the single error type crossing the storage boundary. Callers
// branch on Kind; Message is safe to surface to the presentation layer.
type StoreError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) error {
	return &StoreError{Kind: KindValidation, Message: message}
}

func NewConflictError(message string, err error) error {
	return &StoreError{Kind: KindConflict, Message: message, Err: err}
}

func NewTransientError(message string, err error) error {
	return &StoreError{Kind: KindTransient, Message: message, Err: err}
}

func NewNotFoundError(entity string, id string) error {
	return &StoreError{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// KindOf extracts the taxonomy kind, defaulting to transient so that an
// unclassified failure stays retryable rather than silently terminal.
func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// classify maps a raw driver error onto the taxonomy.
func classify(err error, entity string, id string) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return NewNotFoundError(entity, id)
	case mongo.IsDuplicateKeyError(err):
		return NewConflictError(fmt.Sprintf("duplicate key on %s", entity), err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTransientError(fmt.Sprintf("timeout writing %s", entity), err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return NewTransientError(fmt.Sprintf("network failure on %s", entity), err)
		}
		if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
			return NewTransientError(fmt.Sprintf("store unavailable for %s", entity), err)
		}
		return NewTransientError(fmt.Sprintf("store error on %s", entity), err)
	}
}
