// Package slides embeds the built-in deck.
package slides

import "embed"

// FS contains the markdown slides and _title.md.
//
//go:embed *.md
var FS embed.FS
