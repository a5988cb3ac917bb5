// Package database opens the SQLite file backing the preset store.
//
// It owns the connection lifecycle only. Schema and queries live with
// the repositories built on top; they create their tables on first use.
// WAL mode is on so preset reads do not block saves, and the file is
// chmod 0600 on open.
package database
