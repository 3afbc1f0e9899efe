package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/getpup/pupstore/es/dialect"
)

func TestIsUniqueViolation_RealDriverError(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "unique.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE t (a TEXT NOT NULL, b INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX t_ab_uix ON t (a, b)`); err != nil {
		t.Fatalf("create index: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO t (a, b) VALUES ('x', 1)`); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO t (a, b) VALUES ('x', 1)`)
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO t (a, b) VALUES (NULL, 2)`)
	if err == nil {
		t.Fatal("expected NOT NULL violation")
	}
	if IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = true for a NOT NULL violation", err)
	}
}

func TestIsUniqueViolation_Nil(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Error("IsUniqueViolation(nil) = true")
	}
	if IsUniqueViolation(errors.New("disk I/O error")) {
		t.Error("unrelated error reported as unique violation")
	}
}

func TestIsPrimaryKeyViolation_RealDriverError(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "pk.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE t (id CHAR(36) NOT NULL, v INTEGER NOT NULL, PRIMARY KEY (id))`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX t_v_uix ON t (v)`); err != nil {
		t.Fatalf("create index: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO t (id, v) VALUES ('a', 1)`); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO t (id, v) VALUES ('a', 2)`)
	if !IsUniqueViolation(err) || !IsPrimaryKeyViolation(err) {
		t.Errorf("duplicate id: unique = %v, primary key = %v; want both true",
			IsUniqueViolation(err), IsPrimaryKeyViolation(err))
	}

	_, err = db.ExecContext(ctx, `INSERT INTO t (id, v) VALUES ('b', 1)`)
	if !IsUniqueViolation(err) || IsPrimaryKeyViolation(err) {
		t.Errorf("duplicate v: unique = %v, primary key = %v; want true and false",
			IsUniqueViolation(err), IsPrimaryKeyViolation(err))
	}

	if IsPrimaryKeyViolation(nil) {
		t.Error("IsPrimaryKeyViolation(nil) = true")
	}
}

func TestDialect_TimestampLayout(t *testing.T) {
	if got := NewDialect().TimestampLayout(); got != dialect.SecondLayout {
		t.Errorf("TimestampLayout() = %q, want %q", got, dialect.SecondLayout)
	}
}

func TestDialect_DSN(t *testing.T) {
	d := NewDialect()

	tests := []struct {
		name    string
		opts    dialect.BackendOptions
		want    string
		wantErr bool
	}{
		{
			"plain path",
			dialect.BackendOptions{Path: "/tmp/events.db"},
			"file:/tmp/events.db?_pragma=busy_timeout%285000%29&_txlock=immediate",
			false,
		},
		{
			"dbname as path",
			dialect.BackendOptions{DBName: "events.db"},
			"file:events.db?_pragma=busy_timeout%285000%29&_txlock=immediate",
			false,
		},
		{
			"params override defaults",
			dialect.BackendOptions{Path: "/tmp/events.db", Params: map[string]string{"_pragma": "busy_timeout(100)", "_txlock": "deferred"}},
			"file:/tmp/events.db?_pragma=busy_timeout%28100%29&_txlock=deferred",
			false,
		},
		{
			"extra params",
			dialect.BackendOptions{Path: "/tmp/events.db", Params: map[string]string{"_time_format": "sqlite"}},
			"file:/tmp/events.db?_pragma=busy_timeout%285000%29&_time_format=sqlite&_txlock=immediate",
			false,
		},
		{"missing path", dialect.BackendOptions{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.DSN(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DSN() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
