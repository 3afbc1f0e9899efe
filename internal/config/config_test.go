package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/getpup/pupstore/es"
	"github.com/getpup/pupstore/es/cache"
	"github.com/getpup/pupstore/es/schema"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model != schema.ModelStream {
		t.Errorf("Model = %q, want stream", cfg.Model)
	}
	if cfg.Name.Stream != "event_stream" || cfg.Name.Commit != "event_commit" {
		t.Errorf("Name = %+v", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pupstore.json")
	content := `{
		"persistence": {
			"driver": "mysql",
			"host": "db.internal",
			"port": 3307,
			"dbname": "events",
			"mapping_types": {"datetime_micro": {"db_type": "DATETIME(6)"}}
		},
		"name": {"stream": "order_stream"},
		"model": "commit"
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Persistence.Driver != "mysql" || cfg.Persistence.Host != "db.internal" || cfg.Persistence.Port != 3307 {
		t.Errorf("Persistence = %+v", cfg.Persistence)
	}
	if cfg.Persistence.MappingTypes["datetime_micro"].DBType != "DATETIME(6)" {
		t.Errorf("MappingTypes = %+v", cfg.Persistence.MappingTypes)
	}
	if cfg.Name.Stream != "order_stream" {
		t.Errorf("Name.Stream = %q, want order_stream", cfg.Name.Stream)
	}
	if cfg.Name.Commit != "event_commit" {
		t.Errorf("Name.Commit = %q, want the default", cfg.Name.Commit)
	}
	if cfg.Model != schema.ModelCommit {
		t.Errorf("Model = %q, want commit", cfg.Model)
	}
}

func TestLoad_CacheCapacity(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"from file", `{"cache_capacity": 2}`, 2},
		{"default when absent", `{}`, cache.DefaultCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pupstore.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.CacheCapacity != tt.want {
				t.Fatalf("CacheCapacity = %d, want %d", cfg.CacheCapacity, tt.want)
			}

			c := cfg.NewCache()
			for v := int64(1); v <= int64(tt.want)+1; v++ {
				c.Put(cache.Key{StreamID: "order-1", Version: v}, es.Stream{StreamID: "order-1", Version: v})
			}
			if c.Len() != tt.want {
				t.Errorf("cache Len() = %d, want the configured capacity %d", c.Len(), tt.want)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"model": `},
		{"unknown model", `{"model": "ledger"}`},
		{"empty stream table", `{"name": {"stream": ""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Persistence.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Persistence.Driver)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PUPSTORE_DRIVER", "postgres")
	t.Setenv("PUPSTORE_HOST", "pg.internal")
	t.Setenv("PUPSTORE_PORT", "6543")
	t.Setenv("PUPSTORE_PORT_IGNORED", "x")
	t.Setenv("PUPSTORE_MODEL", "commit")
	t.Setenv("PUPSTORE_STREAM_TABLE", "orders")
	t.Setenv("PUPSTORE_CACHE_CAPACITY", "not-a-number")
	t.Setenv("PUPSTORE_PARAMS", "sslmode=disable, connect_timeout=5")

	cfg := Default()
	FromEnv(&cfg)

	if cfg.Persistence.Driver != "postgres" || cfg.Persistence.Host != "pg.internal" || cfg.Persistence.Port != 6543 {
		t.Errorf("Persistence = %+v", cfg.Persistence)
	}
	if cfg.Model != schema.ModelCommit {
		t.Errorf("Model = %q, want commit", cfg.Model)
	}
	if cfg.Name.Stream != "orders" {
		t.Errorf("Name.Stream = %q, want orders", cfg.Name.Stream)
	}
	if cfg.CacheCapacity != Default().CacheCapacity {
		t.Errorf("invalid PUPSTORE_CACHE_CAPACITY changed CacheCapacity to %d", cfg.CacheCapacity)
	}
	if cfg.Persistence.Params["sslmode"] != "disable" || cfg.Persistence.Params["connect_timeout"] != "5" {
		t.Errorf("Params = %v", cfg.Persistence.Params)
	}
}
