// Package appfs embeds the files the binaries need at run time.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS
