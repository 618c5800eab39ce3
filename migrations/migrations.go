// Package migrations embeds the versioned SQL schema applied by the
// "migrate" subcommand.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
