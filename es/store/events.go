package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/codec"
	"github.com/getpup/pupstore/es/dialect"
)

// dateTimeFormats lists the formats drivers return datetime_micro values in
var dateTimeFormats = []string{
	dialect.SecondLayout,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// formatTimestamp renders t in UTC with layout and returns its
// microseconds for the companion column.
func formatTimestamp(layout string, t time.Time) (string, int) {
	t = t.UTC()
	return t.Format(layout), t.Nanosecond() / int(time.Microsecond)
}

// parseTimestamp rebuilds a timestamp from the stored text and microseconds.
func parseTimestamp(s string, microseconds int64) (time.Time, error) {
	for _, format := range dateTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC().Truncate(time.Second).Add(time.Duration(microseconds) * time.Microsecond), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// eventColumns lists the stream table columns in insert and select order
var eventColumns = []string{
	"identifier",
	"stream_identifier",
	"stream_identifier_hash",
	"version",
	"commit_version",
	"event_version",
	"type",
	"type_hash",
	"payload",
	"payload_hash",
	"metadata",
	"recorded_at",
	"recorded_at_microseconds",
	"aggregate_name",
	"aggregate_name_hash",
}

// eventRow is an event encoded for the stream table.
type eventRow struct {
	payload  string
	metadata sql.NullString
}

// eventTable reads and writes the stream table. Both strategies use it.
type eventTable struct {
	dialect dialect.Dialect
	codec   codec.Codec
	name    string
}

func (t *eventTable) quote(name string) string {
	return t.dialect.QuoteIdentifier(name)
}

func (t *eventTable) columnList() string {
	quoted := make([]string, len(eventColumns))
	for i, c := range eventColumns {
		quoted[i] = t.quote(c)
	}
	return strings.Join(quoted, ", ")
}

// encode serializes every event of the batch. It runs before any insert so
// a codec failure leaves no rows behind. Payload and metadata of the batch
// events are replaced by their decoded stored form, which is what a read
// of the same rows returns.
func (t *eventTable) encode(batch es.Batch) ([]eventRow, error) {
	rows := make([]eventRow, len(batch.Events))
	for i := range batch.Events {
		e := &batch.Events[i]

		payload, err := t.codec.Serialize(e.Payload)
		if err != nil {
			return nil, annotateSerialization(err, e.Type)
		}
		metadata, err := t.codec.SerializeMetadata(e.Metadata)
		if err != nil {
			return nil, annotateSerialization(err, e.Type)
		}

		if e.Payload, err = t.codec.Deserialize(payload, e.Type); err != nil {
			return nil, annotateSerialization(err, e.Type)
		}
		if e.Metadata, err = t.codec.DeserializeMetadata(metadata); err != nil {
			return nil, annotateSerialization(err, e.Type)
		}

		e.PayloadHash = codec.Hash(payload)
		rows[i].payload = string(payload)
		if metadata != nil {
			rows[i].metadata = sql.NullString{String: string(metadata), Valid: true}
		}
	}
	return rows, nil
}

// insert writes one row per event and calls hook after each row.
func (t *eventTable) insert(ctx context.Context, tx es.DBTX, batch es.Batch, rows []eventRow, hook Hook) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(eventColumns)), ", ")
	query := t.dialect.Rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		t.quote(t.name), t.columnList(), placeholders))

	streamHash := codec.HashString(batch.StreamID)
	aggregateHash := codec.HashString(batch.AggregateType)

	for i := range batch.Events {
		e := batch.Events[i]
		recordedAt, micro := formatTimestamp(t.dialect.TimestampLayout(), e.RecordedAt)

		_, err := tx.ExecContext(ctx, query,
			e.ID.String(),
			e.StreamID,
			streamHash,
			e.Version,
			e.CommitVersion,
			e.EventVersion,
			e.Type,
			codec.HashString(e.Type),
			rows[i].payload,
			e.PayloadHash,
			rows[i].metadata,
			recordedAt,
			micro,
			e.AggregateType,
			aggregateHash,
		)
		if err != nil {
			if t.dialect.IsPrimaryKeyViolation(err) {
				return &DuplicateEventError{StreamID: batch.StreamID, ID: e.ID, Err: err}
			}
			if t.dialect.IsUniqueViolation(err) {
				return &ConcurrencyError{StreamID: batch.StreamID, Version: e.Version, Current: batch.FromVersion, Err: err}
			}
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}

		if hook != nil {
			if err := hook(ctx, tx, e, e.Version); err != nil {
				return &HookError{StreamID: batch.StreamID, Version: e.Version, Err: err}
			}
		}
	}
	return nil
}

// maxVersion selects column from table for the stream, highest first.
func maxVersion(ctx context.Context, q es.DBTX, d dialect.Dialect, table, column, streamID string) (int64, error) {
	query := d.Rebind(fmt.Sprintf(`
		SELECT %[2]s
		FROM %[1]s
		WHERE %[3]s = ? AND %[4]s = ?
		ORDER BY %[2]s DESC
		LIMIT 1
	`, d.QuoteIdentifier(table), d.QuoteIdentifier(column),
		d.QuoteIdentifier("stream_identifier_hash"), d.QuoteIdentifier("stream_identifier")))

	var version int64
	err := q.QueryRowContext(ctx, query, codec.HashString(streamID), streamID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return es.NoStreamVersion, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	return version, nil
}

// read selects the stream's events matching the extra condition.
func (t *eventTable) read(ctx context.Context, q es.DBTX, streamID, condition, orderBy string, args ...any) ([]es.RecordedEvent, string, error) {
	query := t.dialect.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = ? AND %s = ?%s
		ORDER BY %s
	`, t.columnList(), t.quote(t.name), t.quote("stream_identifier_hash"), t.quote("stream_identifier"),
		condition, orderBy))

	args = append([]any{codec.HashString(streamID), streamID}, args...)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query stream: %w", err)
	}
	defer rows.Close()

	var (
		events        []es.RecordedEvent
		aggregateType string
	)
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			return nil, "", err
		}
		if aggregateType == "" {
			aggregateType = e.AggregateType
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("rows error: %w", err)
	}

	return events, aggregateType, nil
}

func (t *eventTable) scan(rows *sql.Rows) (es.RecordedEvent, error) {
	var (
		e             es.RecordedEvent
		identifier    string
		streamHash    string
		typeHash      string
		payload       string
		metadata      sql.NullString
		recordedAt    string
		micro         int64
		aggregateHash string
	)

	err := rows.Scan(
		&identifier,
		&e.StreamID,
		&streamHash,
		&e.Version,
		&e.CommitVersion,
		&e.EventVersion,
		&e.Type,
		&typeHash,
		&payload,
		&e.PayloadHash,
		&metadata,
		&recordedAt,
		&micro,
		&e.AggregateType,
		&aggregateHash,
	)
	if err != nil {
		return es.RecordedEvent{}, fmt.Errorf("failed to scan event: %w", err)
	}

	e.ID, err = uuid.Parse(strings.TrimSpace(identifier))
	if err != nil {
		return es.RecordedEvent{}, fmt.Errorf("failed to parse event ID: %w", err)
	}

	e.RecordedAt, err = parseTimestamp(recordedAt, micro)
	if err != nil {
		return es.RecordedEvent{}, fmt.Errorf("failed to parse recorded_at: %w", err)
	}

	e.Payload, err = t.codec.Deserialize([]byte(payload), e.Type)
	if err != nil {
		return es.RecordedEvent{}, err
	}

	if metadata.Valid {
		e.Metadata, err = t.codec.DeserializeMetadata([]byte(metadata.String))
		if err != nil {
			return es.RecordedEvent{}, err
		}
	}

	return e, nil
}

// annotateSerialization records the event type on codec errors.
func annotateSerialization(err error, eventType string) error {
	var serr *codec.SerializationError
	if errors.As(err, &serr) && serr.Type == "" {
		annotated := *serr
		annotated.Type = eventType
		return &annotated
	}
	return err
}
