package schema

import (
	"fmt"
	"strings"

	"github.com/getpup/pupstore/es/dialect"
)

// Model selects the storage layout.
type Model string

const (
	// ModelStream stores one row per event in the stream table.
	ModelStream Model = "stream"
	// ModelCommit stores one row per batch in the commit table plus one
	// denormalized row per event in the stream table.
	ModelCommit Model = "commit"
)

// ParseModel parses a model name. An empty name selects ModelStream.
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModelStream:
		return ModelStream, nil
	case ModelCommit:
		return ModelCommit, nil
	}
	return "", fmt.Errorf("unknown storage model %q (expected %q or %q)", s, ModelStream, ModelCommit)
}

// Schema is a desired change: tables to create and tables to drop.
type Schema struct {
	tables []*Table
	drops  []string
}

// New creates an empty Schema.
func New() *Schema {
	return &Schema{}
}

// ForModel returns the tables a model needs.
func ForModel(model Model, streamTable, commitTable string) *Schema {
	s := New()
	if model == ModelCommit {
		s.CreateCommit(commitTable)
	}
	s.CreateStream(streamTable)
	return s
}

// DropModel returns a Schema dropping the tables of a model.
func DropModel(model Model, streamTable, commitTable string) *Schema {
	s := New()
	s.Drop(orDefault(streamTable, DefaultStreamTable))
	if model == ModelCommit {
		s.Drop(orDefault(commitTable, DefaultCommitTable))
	}
	return s
}

// CreateStream adds the stream table and returns its definition.
func (s *Schema) CreateStream(name string) *Table {
	t := CreateStream(name)
	s.tables = append(s.tables, t)
	return t
}

// CreateCommit adds the commit table and returns its definition.
func (s *Schema) CreateCommit(name string) *Table {
	t := CreateCommit(name)
	s.tables = append(s.tables, t)
	return t
}

// AddTable adds a custom table definition.
func (s *Schema) AddTable(t *Table) {
	s.tables = append(s.tables, t)
}

// Drop marks a table for removal.
func (s *Schema) Drop(name string) {
	s.drops = append(s.drops, name)
}

// Tables returns the tables to create.
func (s *Schema) Tables() []*Table {
	return s.tables
}

// Drops returns the tables to drop.
func (s *Schema) Drops() []string {
	return s.drops
}

// TableNames returns the names of all tables the schema touches.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.tables)+len(s.drops))
	for _, t := range s.tables {
		names = append(names, t.Name)
	}
	names = append(names, s.drops...)
	return names
}

// CreateTableSQL renders the statements creating t: the table, then its indexes.
func CreateTableSQL(d dialect.Dialect, t *Table) []string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(d.QuoteIdentifier(t.Name))
	sb.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(c.Name))
		sb.WriteString(" ")
		sb.WriteString(d.ColumnType(c.Type, c.Length))
		if c.Nullable {
			sb.WriteString(" DEFAULT NULL")
		} else {
			sb.WriteString(" NOT NULL")
		}
	}
	if len(t.PrimaryKey) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		sb.WriteString(quoteAll(d, t.PrimaryKey))
		sb.WriteString(")")
	}
	sb.WriteString(")")
	if opts := d.TableOptions(); opts != "" {
		sb.WriteString(" ")
		sb.WriteString(opts)
	}

	statements := []string{sb.String()}
	for _, idx := range t.Indexes {
		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}
		statements = append(statements, fmt.Sprintf("CREATE %s %s ON %s (%s)",
			kind, d.QuoteIdentifier(idx.Name), d.QuoteIdentifier(t.Name), quoteAll(d, idx.Columns)))
	}
	return statements
}

// DropTableSQL renders the statement dropping a table.
func DropTableSQL(d dialect.Dialect, name string) string {
	return "DROP TABLE " + d.QuoteIdentifier(name)
}

// Statements renders every statement of s without consulting a database.
func Statements(d dialect.Dialect, s *Schema) []string {
	var statements []string
	for _, name := range s.drops {
		statements = append(statements, DropTableSQL(d, name))
	}
	for _, t := range s.tables {
		statements = append(statements, CreateTableSQL(d, t)...)
	}
	return statements
}

func quoteAll(d dialect.Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
