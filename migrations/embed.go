// Package migrations embeds the extraction-log schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
