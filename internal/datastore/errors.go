package datastore

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("datastore: store is closed")

	// ErrNotFound is matched by every not-found error of the store.
	ErrNotFound = errors.New("datastore: document not found")

	// ErrFormModelNotFound is returned for an unknown form code.
	ErrFormModelNotFound = fmt.Errorf("%w: form model", ErrNotFound)

	// ErrEntityNotFound is returned for an unknown entity id or short code.
	ErrEntityNotFound = fmt.Errorf("%w: entity", ErrNotFound)

	// ErrDataRecordNotFound is returned for an unknown data record id.
	ErrDataRecordNotFound = fmt.Errorf("%w: data record", ErrNotFound)

	// ErrSubmissionLogNotFound is returned for an unknown submission id.
	ErrSubmissionLogNotFound = fmt.Errorf("%w: submission log", ErrNotFound)

	// ErrInvalidDocument is returned when a document fails validation.
	ErrInvalidDocument = errors.New("datastore: invalid document")

	// ErrDuplicateShortCode is returned when a short code is already taken
	// within an entity type.
	ErrDuplicateShortCode = errors.New("datastore: short code already in use")

	// ErrInvalidKey is returned for keys that cannot be encoded or decoded.
	ErrInvalidKey = errors.New("datastore: invalid view key")

	// ErrUnknownView is returned for a view name the store does not maintain.
	ErrUnknownView = errors.New("datastore: unknown view")

	// ErrNoReducer is returned when a reduce is requested on a map-only view.
	ErrNoReducer = errors.New("datastore: view has no reducer")
)
