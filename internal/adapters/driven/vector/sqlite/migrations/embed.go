// Package migrations ships the SQLite vector schema. Files are applied in
// name order, so new ones take the next numeric prefix.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
