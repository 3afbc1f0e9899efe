package connection

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/getpup/pupstore/es/dialect"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Driver:         "sqlite",
		BackendOptions: dialect.BackendOptions{Path: filepath.Join(t.TempDir(), "events.db")},
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"postgres", "postgres", false},
		{"pgsql", "postgres", false},
		{"MySQL", "mysql", false},
		{"mariadb", "mysql", false},
		{"sqlite3", "sqlite", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := DialectFor(tt.driver)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DialectFor(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if err == nil && d.Name() != tt.want {
				t.Errorf("DialectFor(%q).Name() = %s, want %s", tt.driver, d.Name(), tt.want)
			}
		})
	}
}

func TestProvider_GetIsMemoized(t *testing.T) {
	p, err := NewProvider(sqliteConfig(t))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	ctx := context.Background()
	first, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if first != second {
		t.Error("Get returned a different handle on the second call")
	}
}

func TestProvider_RegistersMappingTypes(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.MappingTypes = map[string]MappingType{
		string(dialect.TypeDateTimeMicro): {DBType: "DATETIME"},
	}

	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if got := p.Dialect().ColumnType(dialect.TypeDateTimeMicro, 0); got != "DATETIME" {
		t.Errorf("ColumnType(datetime_micro) = %q, want DATETIME", got)
	}

	cfg.MappingTypes = map[string]MappingType{"json_array": {}}
	if _, err := NewProvider(cfg); err == nil {
		t.Error("NewProvider accepted a mapping type without db_type")
	}
}

func TestProvider_UnknownDriver(t *testing.T) {
	_, err := NewProvider(Config{Driver: "oracle"})

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("NewProvider error = %v, want *ConnectionError", err)
	}
	if connErr.Driver != "oracle" {
		t.Errorf("ConnectionError.Driver = %q, want oracle", connErr.Driver)
	}
}

func TestProvider_FailuresAreNotMemoized(t *testing.T) {
	errDown := errors.New("backend down")
	calls := 0
	opener := func(driverName, dsn string) (*sql.DB, error) {
		calls++
		if calls == 1 {
			return nil, errDown
		}
		return sql.Open(driverName, dsn)
	}

	p, err := NewProvider(sqliteConfig(t), WithOpener(opener))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	ctx := context.Background()
	_, err = p.Get(ctx)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || !errors.Is(err, errDown) {
		t.Fatalf("first Get error = %v, want *ConnectionError wrapping errDown", err)
	}

	if _, err := p.Get(ctx); err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("opener called %d times, want 2", calls)
	}
}

func TestProvider_MissingPath(t *testing.T) {
	p, err := NewProvider(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	_, err = p.Get(context.Background())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("Get error = %v, want *ConnectionError", err)
	}
}

func TestProvider_CloseReopens(t *testing.T) {
	p, err := NewProvider(sqliteConfig(t))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	ctx := context.Background()

	first, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	second, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get after Close failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	if first == second {
		t.Error("Get after Close returned the closed handle")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
