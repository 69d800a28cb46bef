// Package migrations embeds the client database schema, applied with goose
// on every start. Migrations are idempotent per goose's version tracking.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
