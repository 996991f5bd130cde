// Package migrations holds the embedded SQL schema and applies it in order.
package migrations

import "embed"

// FS contains the *.sql migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
