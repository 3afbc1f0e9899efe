// Package mysql provides the MySQL/MariaDB dialect for the event storage adapter.
package mysql

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/getpup/pupstore/es/dialect"
)

// erDupEntry is the MySQL error number for a duplicate key
const erDupEntry = 1062

// Dialect is the MySQL dialect.
type Dialect struct {
	*dialect.Base
}

// NewDialect creates a MySQL dialect with the default type mapping.
// DATETIME(6) keeps microseconds natively; the companion column is still written.
func NewDialect() *Dialect {
	return &Dialect{
		Base: dialect.NewBase(map[dialect.Type]string{
			dialect.TypeString:        "VARCHAR(%d)",
			dialect.TypeFixedString:   "CHAR(%d)",
			dialect.TypeBigInt:        "BIGINT",
			dialect.TypeInteger:       "INT",
			dialect.TypeJSON:          "LONGTEXT",
			dialect.TypeDateTimeMicro: "DATETIME(6)",
		}, dialect.QuestionMark),
	}
}

// Name implements dialect.Dialect.
func (d *Dialect) Name() string {
	return "mysql"
}

// DriverName implements dialect.Dialect.
func (d *Dialect) DriverName() string {
	return "mysql"
}

// DSN implements dialect.Dialect.
func (d *Dialect) DSN(opts dialect.BackendOptions) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.DBName = opts.DBName
	cfg.Net = "tcp"

	host := opts.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))

	if len(opts.Params) > 0 {
		cfg.Params = make(map[string]string, len(opts.Params))
		for k, v := range opts.Params {
			cfg.Params[k] = v
		}
	}

	return cfg.FormatDSN(), nil
}

// QuoteIdentifier implements dialect.Dialect.
func (d *Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// TableExistsQuery implements dialect.Dialect.
func (d *Dialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
}

// TableOptions implements dialect.Dialect.
func (d *Dialect) TableOptions() string {
	return "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
}

// IsUniqueViolation implements dialect.Dialect.
func (d *Dialect) IsUniqueViolation(err error) bool {
	return IsUniqueViolation(err)
}

// IsUniqueViolation checks if an error is a MySQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == erDupEntry
	}

	return strings.Contains(err.Error(), "Duplicate entry")
}

// IsPrimaryKeyViolation implements dialect.Dialect.
func (d *Dialect) IsPrimaryKeyViolation(err error) bool {
	return IsPrimaryKeyViolation(err)
}

// IsPrimaryKeyViolation checks if an error is a duplicate entry for the
// PRIMARY key. MySQL 8 qualifies the key name with the table name.
func IsPrimaryKeyViolation(err error) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "for key 'PRIMARY'") || strings.Contains(msg, ".PRIMARY'")
}

// TimestampLayout implements dialect.Dialect.
func (d *Dialect) TimestampLayout() string {
	return dialect.MicrosecondLayout
}

var _ dialect.Dialect = (*Dialect)(nil)
