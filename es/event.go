// Package es provides core event sourcing interfaces and types.
package es

import (
	"time"

	"github.com/google/uuid"
)

// NoStreamVersion is the version reported for a stream that has no events.
// The first event of a stream is recorded at version 1.
const NoStreamVersion int64 = 0

// Event represents an immutable domain event that has not been stored yet.
type Event struct {
	// RecordedAt is when the event was recorded.
	// A zero value is replaced by the current UTC time at write time.
	RecordedAt time.Time

	// Payload is the logical event content handed to the codec.
	Payload any

	// Metadata carries side-channel data such as causation or correlation ids (optional)
	Metadata map[string]any

	// Type identifies the type of event, e.g. "OrderCreated"
	Type string

	// ID is a unique identifier for this event.
	// A zero value is replaced by a random UUID at write time.
	ID uuid.UUID
}

// RecordedEvent is an event together with its position in a stream.
type RecordedEvent struct {
	Event

	// StreamID identifies the stream this event belongs to
	StreamID string

	// AggregateType is the aggregate type name used for polymorphic reconstruction
	AggregateType string

	// PayloadHash is the content hash of the serialized payload
	PayloadHash string

	// Version is the stream version after this event is applied
	Version int64

	// CommitVersion is the version of the owning commit.
	// Equal to Version when events are stored one row per append.
	CommitVersion int64

	// EventVersion is the 1-based position of the event inside its commit
	EventVersion int64
}

// Batch is an ordered list of events appended together under one
// batch-level version. Both storage models persist the same Batch value.
type Batch struct {
	StreamID      string
	AggregateType string
	Events        []RecordedEvent

	// FromVersion is the stream version before the batch is applied
	FromVersion int64

	// Version is the stream version after the batch is applied
	Version int64
}

// NewBatch assigns sequential versions to events, starting right after
// currentVersion, and fills in missing identifiers and timestamps.
func NewBatch(streamID, aggregateType string, currentVersion int64, events []Event, now time.Time) Batch {
	b := Batch{
		StreamID:      streamID,
		AggregateType: aggregateType,
		FromVersion:   currentVersion,
		Version:       currentVersion + int64(len(events)),
		Events:        make([]RecordedEvent, len(events)),
	}
	for i := range events {
		e := events[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.RecordedAt.IsZero() {
			e.RecordedAt = now
		}
		e.RecordedAt = e.RecordedAt.UTC().Truncate(time.Microsecond)
		b.Events[i] = RecordedEvent{
			Event:         e,
			StreamID:      streamID,
			AggregateType: aggregateType,
			Version:       currentVersion + int64(i) + 1,
			CommitVersion: b.Version,
			EventVersion:  int64(i) + 1,
		}
	}
	return b
}

// Len returns the number of events in the batch.
func (b Batch) Len() int {
	return len(b.Events)
}

// Stream is the materialized, version-ordered history of one stream
// as of Version.
type Stream struct {
	StreamID      string
	AggregateType string
	Events        []RecordedEvent
	Version       int64
}

// IsEmpty reports whether the stream holds no events.
func (s Stream) IsEmpty() bool {
	return len(s.Events) == 0
}

// Len returns the number of events in the stream.
func (s Stream) Len() int {
	return len(s.Events)
}

// Extend returns a new snapshot with the batch's events appended.
// The receiver is left untouched.
func (s Stream) Extend(b Batch) Stream {
	events := make([]RecordedEvent, 0, len(s.Events)+len(b.Events))
	events = append(events, s.Events...)
	events = append(events, b.Events...)
	aggregateType := s.AggregateType
	if aggregateType == "" {
		aggregateType = b.AggregateType
	}
	return Stream{
		StreamID:      b.StreamID,
		AggregateType: aggregateType,
		Events:        events,
		Version:       b.Version,
	}
}
