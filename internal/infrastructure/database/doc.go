// Package database provides the SQLite connection used for call history.
//
// Open applies the pragmas robotctl relies on (WAL, busy timeout, foreign
// keys) and limits the pool to a single connection, which matches SQLite's
// single-writer model. Migrate applies SQL migrations from any fs.FS; the
// production set is embedded by the top-level migrations package.
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration runs in its own transaction
// and is recorded in schema_migrations.
//
// The special path ":memory:" opens a private in-memory database, which is
// what the package tests and the call store tests use.
package database
