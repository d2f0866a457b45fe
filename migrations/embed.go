// Package migrations embeds the SQL migration files, one directory per dialect,
// so goose can run them from tests, cmd/dbtool and server bootstrap.
package migrations

import "embed"

// FS holds sqlite/*.sql and postgres/*.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
