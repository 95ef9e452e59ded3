// Package migrations embeds the SQL schema migrations of the saved-carts service.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql migration files.
//
//go:embed *.sql
var FS embed.FS
