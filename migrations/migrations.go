// Package migrations embeds the versioned schema files for the durable store.
package migrations

import "embed"

//go:embed sqlite/*.sql
var FS embed.FS
