// Package config loads the pupstore configuration from a JSON file and
// PUPSTORE_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/getpup/pupstore/es/cache"
	"github.com/getpup/pupstore/es/connection"
	"github.com/getpup/pupstore/es/schema"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Persistence   connection.Config `json:"persistence"`
	Name          Names             `json:"name"`
	Model         schema.Model      `json:"model"`
	CacheCapacity int               `json:"cache_capacity"`
}

// Names holds the logical table names.
type Names struct {
	Stream string `json:"stream"`
	Commit string `json:"commit"`
}

// Default returns built-in defaults: the stream model on a local SQLite file.
func Default() Config {
	cfg := Config{
		Name: Names{
			Stream: schema.DefaultStreamTable,
			Commit: schema.DefaultCommitTable,
		},
		Model:         schema.ModelStream,
		CacheCapacity: cache.DefaultCapacity,
	}
	cfg.Persistence.Driver = "sqlite"
	cfg.Persistence.Path = "pupstore.db"
	return cfg
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
// Values missing from the file keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewCache returns the stream cache sized by CacheCapacity.
func (c Config) NewCache() cache.Cache {
	return cache.NewLRU(c.CacheCapacity)
}

// Validate checks the model and the table names.
func (c Config) Validate() error {
	if _, err := schema.ParseModel(string(c.Model)); err != nil {
		return err
	}
	if c.Name.Stream == "" {
		return errors.New("name.stream must not be empty")
	}
	if c.Model == schema.ModelCommit && c.Name.Commit == "" {
		return errors.New("name.commit must not be empty for the commit model")
	}
	if c.Persistence.Driver == "" {
		return errors.New("persistence.driver must not be empty")
	}
	return nil
}
