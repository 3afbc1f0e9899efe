package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getpup/pupstore/es/dialect"
)

// GenerateConfig configures migration file generation.
type GenerateConfig struct {
	// OutputFolder is the directory where the migration file will be written
	OutputFolder string

	// OutputFilename is the name of the migration file
	OutputFilename string

	// StreamTable is the name of the stream table
	StreamTable string

	// CommitTable is the name of the commit table (commit model only)
	CommitTable string

	// Model selects which tables are generated
	Model Model
}

// DefaultGenerateConfig returns the default configuration.
func DefaultGenerateConfig() GenerateConfig {
	timestamp := time.Now().Format("20060102150405")
	return GenerateConfig{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_init_event_store.sql", timestamp),
		StreamTable:    DefaultStreamTable,
		CommitTable:    DefaultCommitTable,
		Model:          ModelStream,
	}
}

// Generate writes a migration file creating the tables of config.Model.
func Generate(d dialect.Dialect, config *GenerateConfig) error {
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(GenerateSQL(d, config)), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

// GenerateSQL renders the migration file content.
func GenerateSQL(d dialect.Dialect, config *GenerateConfig) string {
	s := ForModel(config.Model, config.StreamTable, config.CommitTable)

	var sb strings.Builder
	fmt.Fprintf(&sb, "-- Event Store Migration for %s (%s model)\n", d.Name(), config.Model)
	fmt.Fprintf(&sb, "-- Generated: %s\n", time.Now().Format(time.RFC3339))
	sb.WriteString("--\n")
	sb.WriteString("-- The unique index on (stream_identifier_hash, version) is the\n")
	sb.WriteString("-- optimistic concurrency gate: exactly one writer wins a stream position.\n")

	for _, t := range s.Tables() {
		fmt.Fprintf(&sb, "\n-- Table %s\n", t.Name)
		for _, stmt := range CreateTableSQL(d, t) {
			sb.WriteString(stmt)
			sb.WriteString(";\n")
		}
	}

	return sb.String()
}
