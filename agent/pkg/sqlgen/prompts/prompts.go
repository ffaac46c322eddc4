// Package prompts embeds the prompt templates used for SQL generation.
package prompts

import "embed"

// FS holds the embedded prompt markdown files.
//
//go:embed *.md
var FS embed.FS
