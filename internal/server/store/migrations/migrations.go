// Package migrations embeds the goose migration scripts for the server's
// Postgres schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
