package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/getpup/pupstore/es"
)

var (
	// ErrOptimisticConcurrency indicates a version conflict during append.
	ErrOptimisticConcurrency = errors.New("optimistic concurrency conflict")

	// ErrNoEvents indicates an attempt to append zero events.
	ErrNoEvents = errors.New("no events to append")

	// ErrAggregateNotFound indicates a stream query that required results found none.
	ErrAggregateNotFound = errors.New("aggregate not found")

	// ErrEmptyStreamID indicates a missing stream identifier.
	ErrEmptyStreamID = errors.New("stream identifier is empty")

	// ErrDuplicateEvent indicates an event identifier that is already stored.
	ErrDuplicateEvent = errors.New("duplicate event identifier")
)

// ConcurrencyError reports a lost append. Either the expected version did
// not match the stream (Err is nil), or another writer committed Version
// first and the unique (stream, version) constraint rejected the insert.
//
// The store never retries. Callers re-read the stream and retry the whole
// read-modify-append cycle.
type ConcurrencyError struct {
	Err      error
	Expected es.ExpectedVersion
	StreamID string
	// Version is the conflicting stream version
	Version int64
	// Current is the version observed before the write, when known
	Current int64
}

func (e *ConcurrencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("optimistic concurrency conflict on stream %s: expected %s, current version %d",
			e.StreamID, e.Expected, e.Current)
	}
	return fmt.Sprintf("optimistic concurrency conflict on stream %s at version %d: %v",
		e.StreamID, e.Version, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrOptimisticConcurrency) match.
func (e *ConcurrencyError) Is(target error) bool {
	return target == ErrOptimisticConcurrency
}

// AggregateNotFoundError reports a stream with no events at or after FromVersion.
type AggregateNotFoundError struct {
	StreamID    string
	FromVersion int64
}

func (e *AggregateNotFoundError) Error() string {
	return fmt.Sprintf("aggregate not found: stream %s has no events from version %d", e.StreamID, e.FromVersion)
}

// Is makes errors.Is(err, ErrAggregateNotFound) match.
func (e *AggregateNotFoundError) Is(target error) bool {
	return target == ErrAggregateNotFound
}

// HookError wraps the failure of an append hook. The append was rolled back.
type HookError struct {
	Err      error
	StreamID string
	Version  int64
}

func (e *HookError) Error() string {
	return fmt.Sprintf("append hook failed for stream %s at version %d: %v", e.StreamID, e.Version, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// DuplicateEventError reports an append rejected because an event with the
// same ID is already stored. Retrying with the same events fails again.
type DuplicateEventError struct {
	Err      error
	StreamID string
	ID       uuid.UUID
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("duplicate event %s on stream %s: %v", e.ID, e.StreamID, e.Err)
}

func (e *DuplicateEventError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDuplicateEvent) match.
func (e *DuplicateEventError) Is(target error) bool {
	return target == ErrDuplicateEvent
}
