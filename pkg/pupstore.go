// Package pupstore provides relational event stream storage for Go applications.
//
// This package serves as the main entry point for the pupstore library.
// For the storage functionality, see the es package and its subpackages:
//
//	es                - Core types: events, batches, streams, expected versions
//	es/store          - Append and load engine with stream and commit strategies
//	es/schema         - Table definitions, schema diff and migration generation
//	es/connection     - Lazily opened database handles from configuration
//	es/codec          - Payload serialization and content hashing
//	es/cache          - Process-local stream snapshot cache
//	es/adapters/...   - PostgreSQL, MySQL and SQLite dialects
//
// Quick Start:
//
//  1. Generate migrations (or run `pupstore schema create`):
//     go run github.com/getpup/pupstore/cmd/migrate-gen -output migrations
//
//  2. Create store and append events:
//     s := store.New(db, store.NewStreamStrategy(postgres.NewDialect(), store.DefaultTableConfig()))
//     version, err := s.Append(ctx, "order-1", "Order", events, es.NoStream())
//
//  3. Load the stream:
//     stream, err := s.Load(ctx, "order-1")
//
// See the examples directory for a complete working example.
package pupstore

// Version returns the current version of the library.
func Version() string {
	return "0.1.0-dev"
}
