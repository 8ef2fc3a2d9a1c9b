// Package migrations embeds the SQL schema migrations for each supported
// database driver. Files follow the golang-migrate naming scheme.
package migrations

import "embed"

// FS holds the postgres/ and sqlite/ migration directories.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
