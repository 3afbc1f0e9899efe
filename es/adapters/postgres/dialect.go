// Package postgres provides the PostgreSQL dialect for the event storage adapter.
package postgres

import (
	"errors"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/getpup/pupstore/es/dialect"
)

// uniqueViolation is the SQLSTATE code of a unique constraint violation
const uniqueViolation = "23505"

// Dialect is the PostgreSQL dialect.
type Dialect struct {
	*dialect.Base
}

// NewDialect creates a PostgreSQL dialect with the default type mapping.
func NewDialect() *Dialect {
	return &Dialect{
		Base: dialect.NewBase(map[dialect.Type]string{
			dialect.TypeString:        "VARCHAR(%d)",
			dialect.TypeFixedString:   "CHAR(%d)",
			dialect.TypeBigInt:        "BIGINT",
			dialect.TypeInteger:       "INTEGER",
			dialect.TypeJSON:          "TEXT",
			dialect.TypeDateTimeMicro: "TIMESTAMP(6) WITHOUT TIME ZONE",
		}, dialect.Dollar),
	}
}

// Name implements dialect.Dialect.
func (d *Dialect) Name() string {
	return "postgres"
}

// DriverName implements dialect.Dialect.
func (d *Dialect) DriverName() string {
	return "postgres"
}

// DSN implements dialect.Dialect. It returns a postgres:// URL understood by lib/pq.
func (d *Dialect) DSN(opts dialect.BackendOptions) (string, error) {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	if opts.Port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(opts.Port))
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host,
		Path:   "/" + opts.DBName,
	}
	if opts.User != "" {
		if opts.Password != "" {
			u.User = url.UserPassword(opts.User, opts.Password)
		} else {
			u.User = url.User(opts.User)
		}
	}

	if len(opts.Params) > 0 {
		keys := make([]string, 0, len(opts.Params))
		for k := range opts.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		q := url.Values{}
		for _, k := range keys {
			q.Set(k, opts.Params[k])
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// QuoteIdentifier implements dialect.Dialect.
func (d *Dialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// TableExistsQuery implements dialect.Dialect.
func (d *Dialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
}

// TableOptions implements dialect.Dialect.
func (d *Dialect) TableOptions() string {
	return ""
}

// IsUniqueViolation implements dialect.Dialect.
func (d *Dialect) IsUniqueViolation(err error) bool {
	return IsUniqueViolation(err)
}

// IsUniqueViolation checks if an error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}

	// Fallback for wrapped driver errors that lost their type
	errMsg := err.Error()
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// IsPrimaryKeyViolation implements dialect.Dialect.
func (d *Dialect) IsPrimaryKeyViolation(err error) bool {
	return IsPrimaryKeyViolation(err)
}

// IsPrimaryKeyViolation checks if an error is a unique violation of a
// primary key. PostgreSQL names primary key constraints <table>_pkey.
func IsPrimaryKeyViolation(err error) bool {
	if !IsUniqueViolation(err) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasSuffix(pqErr.Constraint, "_pkey")
	}
	return strings.Contains(err.Error(), `_pkey"`)
}

// TimestampLayout implements dialect.Dialect.
func (d *Dialect) TimestampLayout() string {
	return dialect.MicrosecondLayout
}

var _ dialect.Dialect = (*Dialect)(nil)
