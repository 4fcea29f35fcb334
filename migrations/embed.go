// Package migrations carries the schema as ordered SQL files applied by
// utils.ApplyMigrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
