// Package dialect abstracts the SQL differences between supported backends.
package dialect

import (
	"fmt"
	"strings"
	"sync"
)

// Type is a logical column type. Dialects map it to a physical SQL type.
type Type string

// Logical column types used by the event storage schema.
const (
	// TypeString is a variable-width string with a maximum length
	TypeString Type = "string"
	// TypeFixedString is a fixed-width string, used for UUIDs and hashes
	TypeFixedString Type = "fixed_string"
	// TypeBigInt is a 64-bit integer
	TypeBigInt Type = "bigint"
	// TypeInteger is a 32-bit integer
	TypeInteger Type = "integer"
	// TypeJSON holds codec output as text
	TypeJSON Type = "json_array"
	// TypeDateTimeMicro is a UTC timestamp. Backends without native
	// microsecond support keep the microseconds in a companion column.
	TypeDateTimeMicro Type = "datetime_micro"
)

// BackendOptions describe how to reach a database.
type BackendOptions struct {
	Params   map[string]string `json:"params,omitempty"`
	Host     string            `json:"host,omitempty"`
	User     string            `json:"user,omitempty"`
	Password string            `json:"password,omitempty"`
	DBName   string            `json:"dbname,omitempty"`
	// Path is the database file for embedded backends
	Path string `json:"path,omitempty"`
	Port int    `json:"port,omitempty"`
}

// Dialect renders backend-specific SQL.
type Dialect interface {
	// Name returns the dialect name, e.g. "postgres".
	Name() string

	// DriverName returns the database/sql driver name.
	DriverName() string

	// DSN builds a driver connection string from backend options.
	DSN(opts BackendOptions) (string, error)

	// Rebind rewrites '?' placeholders into the dialect's placeholder syntax.
	Rebind(query string) string

	// QuoteIdentifier quotes a table, column or index name.
	QuoteIdentifier(name string) string

	// ColumnType returns the physical type for a logical type.
	// length is ignored by types without a length.
	ColumnType(t Type, length int) string

	// RegisterType overrides the physical type of a logical type.
	RegisterType(t Type, dbType string)

	// TableExistsQuery returns a query with one placeholder (the table name)
	// that selects the number of matching tables.
	TableExistsQuery() string

	// TableOptions returns the clause appended to CREATE TABLE statements.
	TableOptions() string

	// IsUniqueViolation reports whether err is a unique constraint violation.
	IsUniqueViolation(err error) bool

	// IsPrimaryKeyViolation reports whether err is a unique violation of a
	// table's primary key rather than of a unique index.
	IsPrimaryKeyViolation(err error) bool

	// TimestampLayout is the layout datetime_micro values are written in.
	TimestampLayout() string
}

// Timestamp layouts for TimestampLayout.
const (
	// SecondLayout is for backends storing timestamps as text; microseconds
	// live in the companion column only
	SecondLayout = "2006-01-02 15:04:05"
	// MicrosecondLayout is for backends with native microsecond timestamps
	MicrosecondLayout = "2006-01-02 15:04:05.000000"
)

// Base implements the type mapping and placeholder handling shared by dialects.
// Concrete dialects embed it and add the backend specific methods.
type Base struct {
	types map[Type]string

	// Placeholder returns the n-th (1-based) placeholder
	placeholder func(n int) string
	mu          sync.RWMutex
}

// NewBase creates a Base with the given type templates. A template may
// contain one %d verb for the column length.
func NewBase(types map[Type]string, placeholder func(n int) string) *Base {
	copied := make(map[Type]string, len(types))
	for k, v := range types {
		copied[k] = v
	}
	return &Base{types: copied, placeholder: placeholder}
}

// QuestionMark is the placeholder style of MySQL and SQLite.
func QuestionMark(int) string {
	return "?"
}

// Dollar is the placeholder style of PostgreSQL.
func Dollar(n int) string {
	return fmt.Sprintf("$%d", n)
}

// ColumnType implements Dialect.
func (b *Base) ColumnType(t Type, length int) string {
	b.mu.RLock()
	tmpl, ok := b.types[t]
	b.mu.RUnlock()
	if !ok {
		// Unknown logical types are passed through as raw SQL types
		return string(t)
	}
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, length)
	}
	return tmpl
}

// RegisterType implements Dialect.
func (b *Base) RegisterType(t Type, dbType string) {
	b.mu.Lock()
	b.types[t] = dbType
	b.mu.Unlock()
}

// Rebind implements Dialect. Placeholders inside quoted literals are not rewritten.
func (b *Base) Rebind(query string) string {
	if b.placeholder == nil {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteString(b.placeholder(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
