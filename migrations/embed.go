package migrations

import "embed"

// Files exposes embedded SQL migration files ordered lexicographically.
// Top-level files target Postgres; sqlite/ holds the SQLite dialect.
//
//go:embed *.sql sqlite/*.sql
var Files embed.FS
