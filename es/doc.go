// Package es provides the core types of the pupstore event storage adapter.
//
// # Overview
//
// This package defines the fundamental types shared by every component:
//   - Event: an immutable domain fact, not yet stored
//   - RecordedEvent: an event with its position in a stream
//   - Batch: events appended together under one batch-level version
//   - Stream: the version-ordered history of one stream (read result)
//   - ExpectedVersion: the optimistic concurrency precondition
//   - DBTX / TxBeginner: database abstractions over *sql.DB and *sql.Tx
//   - Logger: optional structured logging
//
// # Versions
//
// Version 0 means the stream does not exist. The first event of a stream is
// recorded at version 1 and every following event increments the version by
// one, without gaps. The storage layer enforces this with a unique constraint
// on (stream identifier hash, version), which doubles as the optimistic
// concurrency gate: of two writers racing for the same position exactly one
// insert succeeds.
//
// # Storage models
//
// Events can be persisted with two strategies sharing the same contract
// (see the store package):
//   - Stream model: one row per event in the stream table
//   - Commit model: one row per batch in the commit table, followed by a
//     denormalized row per event in the stream table, tagged with the
//     commit version
//
// # Quick Start
//
//	db, _ := sql.Open("sqlite", "events.db")
//	manager := schema.NewManager(sqlite.NewDialect())
//	_, err := manager.Apply(ctx, db, schema.ForModel(schema.ModelStream, "", ""))
//
//	s := store.New(db, store.NewStreamStrategy(sqlite.NewDialect(), store.DefaultTableConfig()))
//	version, err := s.Append(ctx, "order-1", "Order", []es.Event{{Type: "OrderCreated", Payload: created}}, es.NoStream())
//
//	stream, err := s.Load(ctx, "order-1")
package es
