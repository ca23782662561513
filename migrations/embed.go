// Package migrations embeds the SQL migration files so the migrate binary
// needs no copy of them on disk.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
