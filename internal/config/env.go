package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/getpup/pupstore/es/schema"
)

// FromEnv overlays PUPSTORE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PUPSTORE_DRIVER"); v != "" {
		cfg.Persistence.Driver = v
	}
	if v := os.Getenv("PUPSTORE_HOST"); v != "" {
		cfg.Persistence.Host = v
	}
	if v := os.Getenv("PUPSTORE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Persistence.Port = n
		}
	}
	if v := os.Getenv("PUPSTORE_USER"); v != "" {
		cfg.Persistence.User = v
	}
	if v := os.Getenv("PUPSTORE_PASSWORD"); v != "" {
		cfg.Persistence.Password = v
	}
	if v := os.Getenv("PUPSTORE_DBNAME"); v != "" {
		cfg.Persistence.DBName = v
	}
	if v := os.Getenv("PUPSTORE_PATH"); v != "" {
		cfg.Persistence.Path = v
	}
	if v := os.Getenv("PUPSTORE_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Persistence.MaxOpenConns = n
		}
	}
	if v := os.Getenv("PUPSTORE_STREAM_TABLE"); v != "" {
		cfg.Name.Stream = v
	}
	if v := os.Getenv("PUPSTORE_COMMIT_TABLE"); v != "" {
		cfg.Name.Commit = v
	}
	if v := os.Getenv("PUPSTORE_MODEL"); v != "" {
		if m, err := schema.ParseModel(v); err == nil {
			cfg.Model = m
		}
	}
	if v := os.Getenv("PUPSTORE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheCapacity = n
		}
	}
	if v := os.Getenv("PUPSTORE_PARAMS"); v != "" {
		// key=value pairs separated by commas
		for _, pair := range strings.Split(v, ",") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || key == "" {
				continue
			}
			if cfg.Persistence.Params == nil {
				cfg.Persistence.Params = make(map[string]string)
			}
			cfg.Persistence.Params[key] = value
		}
	}
}
