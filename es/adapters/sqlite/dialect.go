// Package sqlite provides the SQLite dialect for the event storage adapter.
package sqlite

import (
	"errors"
	"net/url"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/getpup/pupstore/es/dialect"
)

// Dialect is the SQLite dialect.
type Dialect struct {
	*dialect.Base
}

// NewDialect creates a SQLite dialect with the default type mapping.
// SQLite has no native datetime type: timestamps are stored as text with
// second precision and the microseconds live in the companion column.
func NewDialect() *Dialect {
	return &Dialect{
		Base: dialect.NewBase(map[dialect.Type]string{
			dialect.TypeString:        "VARCHAR(%d)",
			dialect.TypeFixedString:   "CHAR(%d)",
			dialect.TypeBigInt:        "BIGINT",
			dialect.TypeInteger:       "INTEGER",
			dialect.TypeJSON:          "TEXT",
			dialect.TypeDateTimeMicro: "TEXT",
		}, dialect.QuestionMark),
	}
}

// Name implements dialect.Dialect.
func (d *Dialect) Name() string {
	return "sqlite"
}

// DriverName implements dialect.Dialect.
func (d *Dialect) DriverName() string {
	return "sqlite"
}

// DefaultParams are added to every DSN unless overridden by Params.
// Write transactions take the database lock when they begin and wait up
// to busy_timeout for it, so concurrent appends serialize and the loser
// sees the winner's version instead of SQLITE_BUSY.
var DefaultParams = map[string]string{
	"_pragma": "busy_timeout(5000)",
	"_txlock": "immediate",
}

// DSN implements dialect.Dialect. Params are passed as query parameters
// on top of DefaultParams.
func (d *Dialect) DSN(opts dialect.BackendOptions) (string, error) {
	path := opts.Path
	if path == "" {
		path = opts.DBName
	}
	if path == "" {
		return "", errors.New("sqlite: database path is required")
	}

	q := url.Values{}
	for k, v := range DefaultParams {
		q.Set(k, v)
	}
	for k, v := range opts.Params {
		q.Set(k, v)
	}
	return "file:" + path + "?" + q.Encode(), nil
}

// QuoteIdentifier implements dialect.Dialect.
func (d *Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableExistsQuery implements dialect.Dialect.
func (d *Dialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

// TableOptions implements dialect.Dialect.
func (d *Dialect) TableOptions() string {
	return ""
}

// IsUniqueViolation implements dialect.Dialect.
func (d *Dialect) IsUniqueViolation(err error) bool {
	return IsUniqueViolation(err)
}

// IsUniqueViolation checks if an error is a SQLite unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "UNIQUE constraint failed")
}

// IsPrimaryKeyViolation implements dialect.Dialect.
func (d *Dialect) IsPrimaryKeyViolation(err error) bool {
	return IsPrimaryKeyViolation(err)
}

// IsPrimaryKeyViolation checks if an error is a SQLite primary key violation.
func IsPrimaryKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// TimestampLayout implements dialect.Dialect. Timestamps are text with
// second precision.
func (d *Dialect) TimestampLayout() string {
	return dialect.SecondLayout
}

var _ dialect.Dialect = (*Dialect)(nil)
