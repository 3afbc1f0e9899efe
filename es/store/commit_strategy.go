package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/codec"
	"github.com/getpup/pupstore/es/dialect"
	"github.com/getpup/pupstore/es/schema"
)

// commitColumns lists the commit table columns in insert and select order
var commitColumns = []string{
	"identifier",
	"stream_identifier",
	"stream_identifier_hash",
	"version",
	"data",
	"data_hash",
	"created_at",
	"created_at_microseconds",
	"aggregate_name",
	"aggregate_name_hash",
}

// Commit is one row of the commit table with its decoded events.
type Commit struct {
	CreatedAt     time.Time
	StreamID      string
	AggregateType string
	DataHash      string
	Events        []es.RecordedEvent
	// Version is the stream version after the commit is applied
	Version int64
	ID      uuid.UUID
}

// CommitStrategy stores one row per batch in the commit table, then one
// denormalized row per event in the stream table tagged with the commit
// version. Replays read the stream table and never decode commit data.
type CommitStrategy struct {
	dialect     dialect.Dialect
	events      eventTable
	commitTable string
}

// NewCommitStrategy creates a commit + stream strategy.
func NewCommitStrategy(d dialect.Dialect, config TableConfig) *CommitStrategy {
	config = config.withDefaults()
	return &CommitStrategy{
		dialect:     d,
		events:      eventTable{dialect: d, codec: config.Codec, name: config.StreamTable},
		commitTable: config.CommitTable,
	}
}

// Model implements Strategy.
func (s *CommitStrategy) Model() schema.Model {
	return schema.ModelCommit
}

// CurrentVersion implements Strategy. The latest commit version is the
// stream version.
func (s *CommitStrategy) CurrentVersion(ctx context.Context, q es.DBTX, streamID string) (int64, error) {
	return maxVersion(ctx, q, s.dialect, s.commitTable, "version", streamID)
}

// Write implements Strategy. The commit row is inserted first: when it
// loses the race on (stream, version), no event row is written.
func (s *CommitStrategy) Write(ctx context.Context, tx es.DBTX, batch es.Batch, hook Hook) error {
	if batch.Len() == 0 {
		return ErrNoEvents
	}

	rows, err := s.events.encode(batch)
	if err != nil {
		return err
	}

	commitEvents := make([]codec.CommitEvent, len(batch.Events))
	for i, e := range batch.Events {
		commitEvents[i] = codec.CommitEvent{
			Identifier: e.ID.String(),
			Type:       e.Type,
			RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339Nano),
			Payload:    json.RawMessage(rows[i].payload),
			Version:    e.Version,
		}
		if rows[i].metadata.Valid {
			commitEvents[i].Metadata = json.RawMessage(rows[i].metadata.String)
		}
	}
	data, err := codec.EncodeCommit(commitEvents)
	if err != nil {
		return err
	}

	createdAt, micro := formatTimestamp(s.dialect.TimestampLayout(), batch.Events[0].RecordedAt)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(commitColumns)), ", ")
	query := s.dialect.Rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		s.dialect.QuoteIdentifier(s.commitTable), s.commitColumnList(), placeholders))

	_, err = tx.ExecContext(ctx, query,
		uuid.New().String(),
		batch.StreamID,
		codec.HashString(batch.StreamID),
		batch.Version,
		string(data),
		codec.Hash(data),
		createdAt,
		micro,
		batch.AggregateType,
		codec.HashString(batch.AggregateType),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return &ConcurrencyError{StreamID: batch.StreamID, Version: batch.Version, Current: batch.FromVersion, Err: err}
		}
		return fmt.Errorf("failed to insert commit: %w", err)
	}

	return s.events.insert(ctx, tx, batch, rows, hook)
}

// ReadStream implements Strategy. Events are ordered by commit, then by
// their position inside the commit.
func (s *CommitStrategy) ReadStream(ctx context.Context, q es.DBTX, streamID string) ([]es.RecordedEvent, string, error) {
	orderBy := fmt.Sprintf("%s ASC, %s ASC", s.events.quote("commit_version"), s.events.quote("event_version"))
	return s.events.read(ctx, q, streamID, "", orderBy)
}

// ReadSince implements Strategy.
func (s *CommitStrategy) ReadSince(ctx context.Context, q es.DBTX, streamID string, fromVersion int64) ([]es.RecordedEvent, string, error) {
	condition := fmt.Sprintf(" AND %s >= ?", s.events.quote("version"))
	orderBy := fmt.Sprintf("%s DESC, %s DESC", s.events.quote("commit_version"), s.events.quote("event_version"))
	return s.events.read(ctx, q, streamID, condition, orderBy, fromVersion)
}

// ReadCommits returns the stream's commits in ascending version order,
// decoding the events stored in each commit's data.
func (s *CommitStrategy) ReadCommits(ctx context.Context, q es.DBTX, streamID string) ([]Commit, error) {
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = ? AND %s = ?
		ORDER BY %s ASC
	`, s.commitColumnList(), s.dialect.QuoteIdentifier(s.commitTable),
		s.dialect.QuoteIdentifier("stream_identifier_hash"), s.dialect.QuoteIdentifier("stream_identifier"),
		s.dialect.QuoteIdentifier("version")))

	rows, err := q.QueryContext(ctx, query, codec.HashString(streamID), streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		var (
			c             Commit
			identifier    string
			streamHash    string
			data          string
			createdAt     string
			micro         int64
			aggregateHash string
		)
		if err := rows.Scan(&identifier, &c.StreamID, &streamHash, &c.Version, &data, &c.DataHash,
			&createdAt, &micro, &c.AggregateType, &aggregateHash); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}

		if c.ID, err = uuid.Parse(strings.TrimSpace(identifier)); err != nil {
			return nil, fmt.Errorf("failed to parse commit ID: %w", err)
		}
		if c.CreatedAt, err = parseTimestamp(createdAt, micro); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if c.Events, err = s.decodeCommit(c, []byte(data)); err != nil {
			return nil, err
		}

		commits = append(commits, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return commits, nil
}

func (s *CommitStrategy) decodeCommit(c Commit, data []byte) ([]es.RecordedEvent, error) {
	encoded, err := codec.DecodeCommit(data)
	if err != nil {
		return nil, err
	}

	events := make([]es.RecordedEvent, len(encoded))
	for i, ce := range encoded {
		e := es.RecordedEvent{
			StreamID:      c.StreamID,
			AggregateType: c.AggregateType,
			PayloadHash:   codec.Hash(ce.Payload),
			Version:       ce.Version,
			CommitVersion: c.Version,
			EventVersion:  int64(i) + 1,
		}
		e.Type = ce.Type

		if e.ID, err = uuid.Parse(ce.Identifier); err != nil {
			return nil, fmt.Errorf("failed to parse event ID: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, ce.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		e.RecordedAt = e.RecordedAt.UTC()
		if e.Payload, err = s.events.codec.Deserialize(ce.Payload, ce.Type); err != nil {
			return nil, err
		}
		if e.Metadata, err = s.events.codec.DeserializeMetadata(ce.Metadata); err != nil {
			return nil, err
		}

		events[i] = e
	}
	return events, nil
}

func (s *CommitStrategy) commitColumnList() string {
	quoted := make([]string, len(commitColumns))
	for i, c := range commitColumns {
		quoted[i] = s.dialect.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

var _ Strategy = (*CommitStrategy)(nil)
