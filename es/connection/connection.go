// Package connection provides lazily opened, memoized database handles
// built from backend configuration.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/adapters/mysql"
	"github.com/getpup/pupstore/es/adapters/postgres"
	"github.com/getpup/pupstore/es/adapters/sqlite"
	"github.com/getpup/pupstore/es/dialect"
)

// MappingType maps a logical column type to a backend type,
// e.g. "datetime_micro" to "DATETIME(6)".
type MappingType struct {
	DBType string `json:"db_type"`
}

// Config describes a database backend.
type Config struct {
	// MappingTypes overrides physical column types, keyed by logical type name
	MappingTypes map[string]MappingType `json:"mapping_types,omitempty"`

	// Driver selects the backend: postgres, mysql or sqlite
	Driver string `json:"driver"`

	dialect.BackendOptions

	// MaxOpenConns limits open connections (0 means unlimited)
	MaxOpenConns int `json:"max_open_conns,omitempty"`
}

// ConnectionError reports a backend that could not be reached. It is
// never retried by the provider.
type ConnectionError struct {
	Err    error
	Driver string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DialectFor returns the dialect of a driver name.
func DialectFor(driver string) (dialect.Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgsql":
		return postgres.NewDialect(), nil
	case "mysql", "mariadb":
		return mysql.NewDialect(), nil
	case "sqlite", "sqlite3":
		return sqlite.NewDialect(), nil
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

// Opener opens a database handle. sql.Open is the default.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets a logger for the provider.
func WithLogger(logger es.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(p *Provider) {
		p.open = open
	}
}

// Provider hands out one shared *sql.DB per configuration. The handle is
// opened and pinged on the first Get; failures are returned and not cached.
type Provider struct {
	dialect dialect.Dialect
	logger  es.Logger
	open    Opener
	db      *sql.DB
	cfg     Config
	mu      sync.Mutex
}

// NewProvider validates cfg and registers its mapping types on the
// dialect. It does not touch the database.
func NewProvider(cfg Config, opts ...Option) (*Provider, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, &ConnectionError{Driver: cfg.Driver, Err: err}
	}
	for name, mapping := range cfg.MappingTypes {
		if mapping.DBType == "" {
			return nil, &ConnectionError{Driver: cfg.Driver, Err: fmt.Errorf("mapping type %s has no db_type", name)}
		}
		d.RegisterType(dialect.Type(name), mapping.DBType)
	}

	p := &Provider{
		dialect: d,
		open:    sql.Open,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dialect returns the dialect with the configured mapping types registered.
func (p *Provider) Dialect() dialect.Dialect {
	return p.dialect
}

// Get returns the shared handle, opening and pinging it on first use.
func (p *Provider) Get(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}

	dsn, err := p.dialect.DSN(p.cfg.BackendOptions)
	if err != nil {
		return nil, &ConnectionError{Driver: p.cfg.Driver, Err: err}
	}

	db, err := p.open(p.dialect.DriverName(), dsn)
	if err != nil {
		return nil, &ConnectionError{Driver: p.cfg.Driver, Err: err}
	}
	if p.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		if p.logger != nil {
			p.logger.Error(ctx, "database unreachable", "driver", p.cfg.Driver, "host", p.cfg.Host, "error", err)
		}
		return nil, &ConnectionError{Driver: p.cfg.Driver, Err: err}
	}

	if p.logger != nil {
		p.logger.Info(ctx, "database connected", "driver", p.cfg.Driver, "host", p.cfg.Host, "dbname", p.cfg.DBName)
	}

	p.db = db
	return db, nil
}

// Close closes the handle if it was opened. A later Get opens a new one.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
