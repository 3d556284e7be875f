// Package migrations embeds the gateway session registry schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
