// Package db embeds the relational schema of the academic record.
package db

import _ "embed"

// Schema is idempotent; every statement uses IF NOT EXISTS.
//
//go:embed schema.sql
var Schema string
