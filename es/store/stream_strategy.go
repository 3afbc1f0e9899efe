package store

import (
	"context"
	"fmt"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/dialect"
	"github.com/getpup/pupstore/es/schema"
)

// StreamStrategy stores one row per event in the stream table.
// Every event is its own commit: CommitVersion equals Version and
// EventVersion is 1.
type StreamStrategy struct {
	events eventTable
}

// NewStreamStrategy creates a single-table strategy.
func NewStreamStrategy(d dialect.Dialect, config TableConfig) *StreamStrategy {
	config = config.withDefaults()
	return &StreamStrategy{
		events: eventTable{dialect: d, codec: config.Codec, name: config.StreamTable},
	}
}

// Model implements Strategy.
func (s *StreamStrategy) Model() schema.Model {
	return schema.ModelStream
}

// CurrentVersion implements Strategy.
func (s *StreamStrategy) CurrentVersion(ctx context.Context, q es.DBTX, streamID string) (int64, error) {
	return maxVersion(ctx, q, s.events.dialect, s.events.name, "version", streamID)
}

// Write implements Strategy. Each row insert is checked against the
// unique (stream, version) index on its own.
func (s *StreamStrategy) Write(ctx context.Context, tx es.DBTX, batch es.Batch, hook Hook) error {
	for i := range batch.Events {
		batch.Events[i].CommitVersion = batch.Events[i].Version
		batch.Events[i].EventVersion = 1
	}

	rows, err := s.events.encode(batch)
	if err != nil {
		return err
	}
	return s.events.insert(ctx, tx, batch, rows, hook)
}

// ReadStream implements Strategy.
func (s *StreamStrategy) ReadStream(ctx context.Context, q es.DBTX, streamID string) ([]es.RecordedEvent, string, error) {
	return s.events.read(ctx, q, streamID, "", s.events.quote("version")+" ASC")
}

// ReadSince implements Strategy.
func (s *StreamStrategy) ReadSince(ctx context.Context, q es.DBTX, streamID string, fromVersion int64) ([]es.RecordedEvent, string, error) {
	condition := fmt.Sprintf(" AND %s >= ?", s.events.quote("version"))
	return s.events.read(ctx, q, streamID, condition, s.events.quote("version")+" DESC", fromVersion)
}

var _ Strategy = (*StreamStrategy)(nil)
