// Package migrations ships the database schema alongside the module so the
// uniqueness constraints the engine relies on cannot drift from the code.
package migrations

import (
	_ "embed"
)

//go:embed schema.sql
var Schema string
