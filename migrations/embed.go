// Package migrations embeds the goose SQL migrations so the API and the
// DB-backed tests apply the same schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
