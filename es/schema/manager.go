package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/dialect"
)

// SchemaError reports a DDL statement that failed. The transaction it ran
// in has been rolled back.
type SchemaError struct {
	Err       error
	Statement string
}

func (e *SchemaError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("schema: %v", e.Err)
	}
	return fmt.Sprintf("schema: %q: %v", e.Statement, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for the manager.
func WithLogger(logger es.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStatementHook registers fn to be called with each statement right
// before it is executed.
func WithStatementHook(fn func(statement string)) ManagerOption {
	return func(m *Manager) {
		m.onStatement = fn
	}
}

// Manager materializes a Schema on a database.
type Manager struct {
	dialect     dialect.Dialect
	logger      es.Logger
	onStatement func(string)
}

// NewManager creates a Manager for the given dialect.
func NewManager(d dialect.Dialect, opts ...ManagerOption) *Manager {
	m := &Manager{dialect: d}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dialect returns the dialect used to render statements.
func (m *Manager) Dialect() dialect.Dialect {
	return m.dialect
}

// HasTable reports whether the named table exists.
func (m *Manager) HasTable(ctx context.Context, q es.DBTX, name string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, m.dialect.TableExistsQuery(), name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return count > 0, nil
}

// Diff returns the statements needed to move the database to s. Existing
// tables are never re-created and absent tables are never dropped, so
// applying the same Schema twice yields no statements the second time.
func (m *Manager) Diff(ctx context.Context, q es.DBTX, s *Schema) ([]string, error) {
	var statements []string

	for _, name := range s.Drops() {
		exists, err := m.HasTable(ctx, q, name)
		if err != nil {
			return nil, err
		}
		if exists {
			statements = append(statements, DropTableSQL(m.dialect, name))
		}
	}

	for _, t := range s.Tables() {
		exists, err := m.HasTable(ctx, q, t.Name)
		if err != nil {
			return nil, err
		}
		if !exists {
			statements = append(statements, CreateTableSQL(m.dialect, t)...)
		}
	}

	return statements, nil
}

// Apply diffs s against the database and executes the statements in one
// transaction. Any failure rolls the transaction back and returns a
// *SchemaError. The executed statements are returned.
//
// MySQL commits DDL implicitly, so a failure there can leave earlier
// statements applied.
func (m *Manager) Apply(ctx context.Context, db es.TxBeginner, s *Schema) ([]string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && m.logger != nil {
			m.logger.Error(ctx, "schema rollback failed", "error", rbErr)
		}
	}()

	statements, err := m.Diff(ctx, tx, s)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}

	if len(statements) == 0 {
		if m.logger != nil {
			m.logger.Info(ctx, "schema up to date", "tables", s.TableNames())
		}
		return nil, nil
	}

	for _, stmt := range statements {
		if m.onStatement != nil {
			m.onStatement(stmt)
		}
		if m.logger != nil {
			m.logger.Debug(ctx, "executing schema statement", "statement", stmt)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if m.logger != nil {
				m.logger.Error(ctx, "schema statement failed", "statement", stmt, "error", err)
			}
			return nil, &SchemaError{Statement: stmt, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("failed to commit schema: %w", err)}
	}

	if m.logger != nil {
		m.logger.Info(ctx, "schema applied", "statements", len(statements), "tables", s.TableNames())
	}

	return statements, nil
}
