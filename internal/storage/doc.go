// Package storage provides SQLite-based persistence for normalized xAPI
// statements.
//
// The storage layer manages a small star schema:
//   - actor, verb, object, result: dimension tables, one row per distinct
//     natural key, insert-only
//   - statement: fact table referencing the four dimension ids
//
// # Dimension Resolution
//
// Resolvers perform an atomic lookup-or-insert per dimension: a SELECT by
// natural key using NULL-safe IS equality, then INSERT ... ON CONFLICT DO
// NOTHING with a re-SELECT when a concurrent request won the insert. Unique
// indexes on the natural keys make the conflict path race-free; composite
// keys containing NULLs are outside SQLite unique-index semantics and rely on
// the single-writer connection.
//
// Statements without result data resolve to the sentinel result row
// (SentinelResultID), seeded during migration.
//
// # Transactions
//
// The ingestion pipeline resolves all four dimensions and writes the fact row
// inside a single transaction:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	actorID, _ := tx.ResolveActor(ctx, &rec.Actor)
//	verbID, _ := tx.ResolveVerb(ctx, &rec.Verb)
//	// ...
//	_ = tx.InsertStatement(ctx, st)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Schema Migrations
//
// Migrations are semver-ordered Up/Down SQL blocks applied idempotently at
// startup (ApplyMigrations) and rolled back unconditionally on uninstall
// (DropSchema). Table names carry an installation prefix from the Config
// struct so the schema can share a database with unrelated tables.
//
// # Build Tags
//
// Two build configurations select the SQLite driver:
//
// CGO build (sqlite_cgo tag), using github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo
//
// Pure Go build (default), using modernc.org/sqlite:
//
//	CGO_ENABLED=0 go build
package storage
