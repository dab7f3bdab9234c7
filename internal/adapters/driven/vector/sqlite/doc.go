// Package sqlite provides a SQLite-backed implementation of driven.VectorIndex.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Vectors are stored as little-endian float32 blobs next to their JSON
// metadata and ranked by brute-force cosine similarity at query time.
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files; the
// last applied number is kept in PRAGMA user_version.
//
// # Data Location
//
// By default, the database is stored at ~/.earnings-rag/data/vectors.db
package sqlite
