// Package schema defines the event storage table layout and applies it.
//
// Tables are described as values (CreateStream, CreateCommit) without
// touching the database. A Manager diffs the desired Schema against the
// current database and executes the resulting DDL in one transaction.
package schema

import (
	"github.com/getpup/pupstore/es/dialect"
)

// Default logical table names.
const (
	DefaultStreamTable = "event_stream"
	DefaultCommitTable = "event_commit"
)

// Column lengths of the persisted row layout.
const (
	identifierLength = 36
	hashLength       = 32
	nameLength       = 1000
)

// Column describes one table column.
type Column struct {
	Name     string
	Type     dialect.Type
	Length   int
	Nullable bool
}

// Index describes a secondary or unique index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table describes a table to create.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Indexes    []Index
}

// AddColumn appends a NOT NULL column.
func (t *Table) AddColumn(name string, typ dialect.Type, length int) *Table {
	t.Columns = append(t.Columns, Column{Name: name, Type: typ, Length: length})
	return t
}

// AddNullableColumn appends a nullable column.
func (t *Table) AddNullableColumn(name string, typ dialect.Type, length int) *Table {
	t.Columns = append(t.Columns, Column{Name: name, Type: typ, Length: length, Nullable: true})
	return t
}

// AddIndex adds a secondary index named <table>_<suffix>.
func (t *Table) AddIndex(suffix string, columns ...string) *Table {
	t.Indexes = append(t.Indexes, Index{Name: t.Name + "_" + suffix, Columns: columns})
	return t
}

// AddUniqueIndex adds a unique index named <table>_<suffix>.
func (t *Table) AddUniqueIndex(suffix string, columns ...string) *Table {
	t.Indexes = append(t.Indexes, Index{Name: t.Name + "_" + suffix, Columns: columns, Unique: true})
	return t
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CreateStream describes the per-event stream table. It serves both the
// single-table model and, as the denormalized replay table, the commit model.
func CreateStream(name string) *Table {
	if name == "" {
		name = DefaultStreamTable
	}
	t := &Table{Name: name}

	// UUID of the event
	t.AddColumn("identifier", dialect.TypeFixedString, identifierLength)

	t.AddColumn("stream_identifier", dialect.TypeString, nameLength)
	t.AddColumn("stream_identifier_hash", dialect.TypeFixedString, hashLength)

	// Version of the stream after the event was recorded
	t.AddColumn("version", dialect.TypeBigInt, 0)
	t.AddColumn("commit_version", dialect.TypeBigInt, 0)
	t.AddColumn("event_version", dialect.TypeBigInt, 0)

	t.AddColumn("type", dialect.TypeString, nameLength)
	t.AddColumn("type_hash", dialect.TypeFixedString, hashLength)

	t.AddColumn("payload", dialect.TypeJSON, 0)
	t.AddColumn("payload_hash", dialect.TypeFixedString, hashLength)
	t.AddNullableColumn("metadata", dialect.TypeJSON, 0)

	t.AddColumn("recorded_at", dialect.TypeDateTimeMicro, 0)
	t.AddColumn("recorded_at_microseconds", dialect.TypeInteger, 0)

	t.AddColumn("aggregate_name", dialect.TypeString, nameLength)
	t.AddColumn("aggregate_name_hash", dialect.TypeFixedString, hashLength)

	t.PrimaryKey = []string{"identifier"}

	// Concurrency check on database level
	t.AddUniqueIndex("sv_uix", "stream_identifier_hash", "version")

	t.AddIndex("sih", "stream_identifier_hash")
	t.AddIndex("scv", "stream_identifier_hash", "commit_version", "event_version")
	t.AddIndex("th", "type_hash")
	t.AddIndex("ph", "payload_hash")
	t.AddIndex("anh", "aggregate_name_hash")

	return t
}

// CreateCommit describes the commit table of the two-table model.
func CreateCommit(name string) *Table {
	if name == "" {
		name = DefaultCommitTable
	}
	t := &Table{Name: name}

	t.AddColumn("identifier", dialect.TypeFixedString, identifierLength)

	t.AddColumn("stream_identifier", dialect.TypeString, nameLength)
	t.AddColumn("stream_identifier_hash", dialect.TypeFixedString, hashLength)

	// Version of the stream after the whole commit is applied
	t.AddColumn("version", dialect.TypeBigInt, 0)

	t.AddColumn("data", dialect.TypeJSON, 0)
	t.AddColumn("data_hash", dialect.TypeFixedString, hashLength)

	t.AddColumn("created_at", dialect.TypeDateTimeMicro, 0)
	t.AddColumn("created_at_microseconds", dialect.TypeInteger, 0)

	t.AddColumn("aggregate_name", dialect.TypeString, nameLength)
	t.AddColumn("aggregate_name_hash", dialect.TypeFixedString, hashLength)

	t.PrimaryKey = []string{"identifier"}

	// The only concurrency check of the commit model
	t.AddUniqueIndex("sv_uix", "stream_identifier_hash", "version")

	t.AddIndex("sih", "stream_identifier_hash")
	t.AddIndex("dh", "data_hash")
	t.AddIndex("anh", "aggregate_name_hash")

	return t
}
