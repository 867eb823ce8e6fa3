// Package migrations holds the embedded goose migrations for the user store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
