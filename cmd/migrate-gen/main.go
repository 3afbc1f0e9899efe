// Command migrate-gen generates SQL migration files for the event store tables.
//
// Usage:
//
//	go run github.com/getpup/pupstore/cmd/migrate-gen -output migrations -filename init.sql
//
// Or with go generate:
//
//	//go:generate go run github.com/getpup/pupstore/cmd/migrate-gen -output migrations
//
// Generate migrations for different database adapters and storage models:
//
//	go run github.com/getpup/pupstore/cmd/migrate-gen -adapter postgres -output migrations
//	go run github.com/getpup/pupstore/cmd/migrate-gen -adapter mysql -model commit -output migrations
//	go run github.com/getpup/pupstore/cmd/migrate-gen -adapter sqlite -stream-table order_events
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/getpup/pupstore/es/connection"
	"github.com/getpup/pupstore/es/schema"
)

func main() {
	var (
		adapter        = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, or sqlite")
		model          = flag.String("model", "stream", "Storage model: stream or commit")
		outputFolder   = flag.String("output", "migrations", "Output folder for migration file")
		outputFilename = flag.String("filename", "", "Output filename (default: timestamp-based)")
		streamTable    = flag.String("stream-table", schema.DefaultStreamTable, "Name of stream table")
		commitTable    = flag.String("commit-table", schema.DefaultCommitTable, "Name of commit table (commit model)")
	)

	flag.Parse()

	d, err := connection.DialectFor(*adapter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: unsupported adapter '%s'. Supported adapters are: postgres, mysql, sqlite\n", *adapter)
		os.Exit(1)
	}

	m, err := schema.ParseModel(*model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	config := schema.DefaultGenerateConfig()
	config.OutputFolder = *outputFolder
	config.StreamTable = *streamTable
	config.CommitTable = *commitTable
	config.Model = m

	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	if err := schema.Generate(d, &config); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s migration (%s model): %s/%s\n", *adapter, m, config.OutputFolder, config.OutputFilename)
}
