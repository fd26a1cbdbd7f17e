// Package migrations embeds the SQL migration files applied to the
// PostgreSQL lock table via golang-migrate.
package migrations

import "embed"

// FS holds the embedded migration files, consumed by golang-migrate's
// iofs source driver.
//
//go:embed *.sql
var FS embed.FS
