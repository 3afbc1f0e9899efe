// Package store appends events to streams and reads them back.
//
// A Store runs the append protocol (authoritative version read, expected
// version check, sequential version assignment, write, cache warm-up) on top
// of a Strategy. A Strategy persists a Batch in one of the two data models:
//   - StreamStrategy: one row per event in the stream table
//   - CommitStrategy: one row per batch in the commit table, then one
//     denormalized row per event in the stream table
//
// Both models share the unique (stream identifier hash, version) index on
// the stream table. A losing concurrent writer fails with *ConcurrencyError.
package store

import (
	"context"
	"fmt"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/codec"
	"github.com/getpup/pupstore/es/dialect"
	"github.com/getpup/pupstore/es/schema"
)

// Hook runs inside the append transaction, once per inserted event,
// right after the event's row is written. version is the stream version
// of the event. A non-nil error rolls back the whole append: a batch is
// never partially committed and hooks must not cause side effects outside tx.
type Hook func(ctx context.Context, tx es.DBTX, event es.RecordedEvent, version int64) error

// Strategy persists and reads batches in one data model.
type Strategy interface {
	// Model returns the data model the strategy writes.
	Model() schema.Model

	// CurrentVersion returns the stream version, or es.NoStreamVersion
	// when the stream has no events. It always queries storage.
	CurrentVersion(ctx context.Context, q es.DBTX, streamID string) (int64, error)

	// Write persists the batch within tx and calls hook (if not nil) after
	// each event row. A unique violation is returned as *ConcurrencyError.
	// Write fills in the PayloadHash of the batch's events.
	Write(ctx context.Context, tx es.DBTX, batch es.Batch, hook Hook) error

	// ReadStream returns all events of the stream in ascending version
	// order, together with the stream's aggregate type name.
	ReadStream(ctx context.Context, q es.DBTX, streamID string) ([]es.RecordedEvent, string, error)

	// ReadSince returns the events with version >= fromVersion in
	// descending version order.
	ReadSince(ctx context.Context, q es.DBTX, streamID string, fromVersion int64) ([]es.RecordedEvent, string, error)
}

// TableConfig configures the tables and codec of a strategy.
// Configuration is immutable after construction.
type TableConfig struct {
	// Codec serializes payloads and metadata
	Codec codec.Codec

	// StreamTable is the name of the per-event table
	StreamTable string

	// CommitTable is the name of the commit table (commit model only)
	CommitTable string
}

// DefaultTableConfig returns the default configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Codec:       codec.NewJSONCodec(nil),
		StreamTable: schema.DefaultStreamTable,
		CommitTable: schema.DefaultCommitTable,
	}
}

// TableOption is a functional option for configuring a TableConfig.
type TableOption func(*TableConfig)

// WithStreamTable sets a custom stream table name.
func WithStreamTable(tableName string) TableOption {
	return func(c *TableConfig) {
		c.StreamTable = tableName
	}
}

// WithCommitTable sets a custom commit table name.
func WithCommitTable(tableName string) TableOption {
	return func(c *TableConfig) {
		c.CommitTable = tableName
	}
}

// WithCodec sets the payload codec.
func WithCodec(c codec.Codec) TableOption {
	return func(cfg *TableConfig) {
		cfg.Codec = c
	}
}

// NewTableConfig creates a table configuration with functional options.
// It starts with the default configuration and applies the given options.
//
// Example:
//
//	config := store.NewTableConfig(
//	    store.WithStreamTable("order_events"),
//	    store.WithCodec(codec.NewScalarCodec(registry)),
//	)
func NewTableConfig(opts ...TableOption) TableConfig {
	config := DefaultTableConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// NewStrategy returns the strategy for a data model.
func NewStrategy(model schema.Model, d dialect.Dialect, config TableConfig) (Strategy, error) {
	switch model {
	case schema.ModelStream, "":
		return NewStreamStrategy(d, config), nil
	case schema.ModelCommit:
		return NewCommitStrategy(d, config), nil
	}
	return nil, fmt.Errorf("unknown storage model %q", model)
}

func (c TableConfig) withDefaults() TableConfig {
	def := DefaultTableConfig()
	if c.Codec == nil {
		c.Codec = def.Codec
	}
	if c.StreamTable == "" {
		c.StreamTable = def.StreamTable
	}
	if c.CommitTable == "" {
		c.CommitTable = def.CommitTable
	}
	return c
}
