package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/cache"
	"github.com/getpup/pupstore/es/codec"
)

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithLogger sets a logger for the store.
// If not set, logging is disabled (zero overhead).
func WithLogger(logger es.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithCache replaces the default LRU snapshot cache.
// Use &cache.Noop{} to disable caching.
func WithCache(c cache.Cache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// WithClock sets the time source for events without a RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// AppendOption configures a single append.
type AppendOption func(*appendOptions)

type appendOptions struct {
	hook Hook
}

// WithHook runs hook inside the append transaction once per inserted event.
// A hook error rolls back the whole append and is returned as *HookError.
func WithHook(hook Hook) AppendOption {
	return func(o *appendOptions) {
		o.hook = hook
	}
}

// Store appends events to streams and loads them back.
// It is safe for concurrent use.
type Store struct {
	db       es.TxBeginner
	strategy Strategy
	cache    cache.Cache
	logger   es.Logger
	now      func() time.Time
}

// New creates a Store writing through strategy.
func New(db es.TxBeginner, strategy Strategy, opts ...Option) *Store {
	s := &Store{
		db:       db,
		strategy: strategy,
		cache:    cache.NewLRU(cache.DefaultCapacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategy returns the persistence strategy of the store.
func (s *Store) Strategy() Strategy {
	return s.strategy
}

// Cache returns the snapshot cache of the store.
func (s *Store) Cache() cache.Cache {
	return s.cache
}

// Append atomically appends events to the stream and returns the new
// stream version.
//
// The current version is read from storage inside the transaction and
// checked against expected before anything is written. Events then get
// consecutive versions starting right after the current version. The
// unique (stream, version) constraint rejects a concurrent writer that
// committed in between; both cases return *ConcurrencyError. The store
// never retries.
//
// On success the snapshot cache is updated with the extended stream so an
// immediate Load needs no stream read.
func (s *Store) Append(ctx context.Context, streamID, aggregateType string, events []es.Event, expected es.ExpectedVersion, opts ...AppendOption) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && s.logger != nil {
			s.logger.Error(ctx, "append rollback failed", "stream_id", streamID, "error", rbErr)
		}
	}()

	batch, err := s.append(ctx, tx, streamID, aggregateType, events, expected, opts)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit append: %w", err)
	}

	s.warm(ctx, batch)

	return batch.Version, nil
}

// AppendTx appends within a caller-controlled transaction. The cache is
// not updated because the outcome of the transaction is unknown here.
func (s *Store) AppendTx(ctx context.Context, tx es.DBTX, streamID, aggregateType string, events []es.Event, expected es.ExpectedVersion, opts ...AppendOption) (int64, error) {
	batch, err := s.append(ctx, tx, streamID, aggregateType, events, expected, opts)
	if err != nil {
		return 0, err
	}
	return batch.Version, nil
}

func (s *Store) append(ctx context.Context, tx es.DBTX, streamID, aggregateType string, events []es.Event, expected es.ExpectedVersion, opts []AppendOption) (es.Batch, error) {
	if streamID == "" {
		return es.Batch{}, ErrEmptyStreamID
	}
	if len(events) == 0 {
		return es.Batch{}, ErrNoEvents
	}

	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	if s.logger != nil {
		s.logger.Debug(ctx, "append starting",
			"stream_id", streamID,
			"event_count", len(events),
			"expected_version", expected.String(),
			"model", s.strategy.Model())
	}

	current, err := s.strategy.CurrentVersion(ctx, tx, streamID)
	if err != nil {
		return es.Batch{}, err
	}

	if !expected.Matches(current) {
		if s.logger != nil {
			s.logger.Error(ctx, "expected version validation failed",
				"stream_id", streamID,
				"current_version", current,
				"expected_version", expected.String())
		}
		return es.Batch{}, &ConcurrencyError{
			StreamID: streamID,
			Version:  current + 1,
			Expected: expected,
			Current:  current,
		}
	}

	batch := es.NewBatch(streamID, aggregateType, current, events, s.now())

	if s.logger != nil {
		s.logger.Debug(ctx, "version calculated",
			"stream_id", streamID,
			"current_version", current,
			"next_version", batch.Version)
	}

	if err := s.strategy.Write(ctx, tx, batch, o.hook); err != nil {
		if s.logger != nil {
			if errors.Is(err, ErrOptimisticConcurrency) {
				s.logger.Error(ctx, "optimistic concurrency conflict",
					"stream_id", streamID,
					"version", batch.Version,
					"error", err)
			} else {
				s.logger.Error(ctx, "append failed", "stream_id", streamID, "error", err)
			}
		}
		return es.Batch{}, err
	}

	if s.logger != nil {
		s.logger.Info(ctx, "events appended",
			"stream_id", streamID,
			"event_count", batch.Len(),
			"version_range", fmt.Sprintf("%d-%d", batch.FromVersion+1, batch.Version))
	}

	return batch, nil
}

// warm stores the snapshot at the batch version when the previous
// snapshot is known.
func (s *Store) warm(ctx context.Context, batch es.Batch) {
	var base es.Stream
	if batch.FromVersion != es.NoStreamVersion {
		cached, ok := s.cache.Get(cache.Key{StreamID: batch.StreamID, Version: batch.FromVersion})
		if !ok {
			return
		}
		base = cached
	}

	// The hook saw the batch events, so the cache gets its own copy
	s.cache.Put(cache.Key{StreamID: batch.StreamID, Version: batch.Version}, *ownedCopy(base.Extend(batch)))

	if s.logger != nil {
		s.logger.Debug(ctx, "cache warmed", "stream_id", batch.StreamID, "version", batch.Version)
	}
}

// Load returns the full stream in ascending version order, or nil when
// the stream has no events. The current version is always read from
// storage; the events come from the cache when a snapshot at that
// version is present.
func (s *Store) Load(ctx context.Context, streamID string) (*es.Stream, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	version, err := s.strategy.CurrentVersion(ctx, s.db, streamID)
	if err != nil {
		return nil, err
	}
	if version == es.NoStreamVersion {
		return nil, nil
	}

	if cached, ok := s.cache.Get(cache.Key{StreamID: streamID, Version: version}); ok {
		if s.logger != nil {
			s.logger.Debug(ctx, "cache hit", "stream_id", streamID, "version", version)
		}
		return ownedCopy(cached), nil
	}

	if s.logger != nil {
		s.logger.Debug(ctx, "cache miss", "stream_id", streamID, "version", version)
	}

	events, aggregateType, err := s.strategy.ReadStream(ctx, s.db, streamID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	// A concurrent append may have landed after the version read
	snapshot := es.Stream{
		StreamID:      streamID,
		AggregateType: aggregateType,
		Events:        events,
		Version:       events[len(events)-1].Version,
	}
	s.cache.Put(cache.Key{StreamID: streamID, Version: snapshot.Version}, snapshot)

	if s.logger != nil {
		s.logger.Debug(ctx, "stream loaded", "stream_id", streamID, "event_count", len(events), "version", snapshot.Version)
	}

	return ownedCopy(snapshot), nil
}

// CurrentVersion returns the stream version from storage, or
// es.NoStreamVersion when the stream does not exist.
func (s *Store) CurrentVersion(ctx context.Context, streamID string) (int64, error) {
	if streamID == "" {
		return 0, ErrEmptyStreamID
	}
	return s.strategy.CurrentVersion(ctx, s.db, streamID)
}

// Contains reports whether the stream has at least one event.
func (s *Store) Contains(ctx context.Context, streamID string) (bool, error) {
	version, err := s.CurrentVersion(ctx, streamID)
	if err != nil {
		return false, err
	}
	return version > es.NoStreamVersion, nil
}

// PreviousEvents returns the events with version >= untilVersion, newest
// first. The snapshot's Version is the newest event version. It fails with
// *AggregateNotFoundError when no event matches.
func (s *Store) PreviousEvents(ctx context.Context, streamID string, untilVersion int64) (*es.Stream, error) {
	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	events, aggregateType, err := s.strategy.ReadSince(ctx, s.db, streamID, untilVersion)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, &AggregateNotFoundError{StreamID: streamID, FromVersion: untilVersion}
	}

	return &es.Stream{
		StreamID:      streamID,
		AggregateType: aggregateType,
		Events:        events,
		Version:       events[0].Version,
	}, nil
}

// ownedCopy returns a snapshot the caller may modify without touching the
// cache. Payloads and metadata are deep copies.
func ownedCopy(s es.Stream) *es.Stream {
	events := make([]es.RecordedEvent, len(s.Events))
	for i, e := range s.Events {
		e.Payload = codec.Clone(e.Payload)
		e.Metadata = codec.CloneMetadata(e.Metadata)
		events[i] = e
	}
	s.Events = events
	return &s
}
