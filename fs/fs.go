// Package appfs embeds static assets needed by the application.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
