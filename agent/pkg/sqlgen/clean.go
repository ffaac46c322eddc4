package sqlgen

import (
	"regexp"
	"strings"
)

// minCleanedLength is the shortest cleaned response that could plausibly be
// a SQL query. Anything shorter is reported as EmptyOutputError.
const minCleanedLength = 10

var (
	// reasoningInnerRe matches an innermost reasoning block (no tag inside).
	// Removing innermost blocks first unwinds nested occurrences.
	reasoningInnerRe = regexp.MustCompile(`(?is)<(think|thinking|reasoning)>[^<]*</(?:think|thinking|reasoning)>`)

	// reasoningBlockRe matches one complete reasoning block non-greedily.
	// Removal is repeated until no block remains.
	reasoningBlockRe = regexp.MustCompile(`(?is)<(think|thinking|reasoning)>.*?</(?:think|thinking|reasoning)>`)

	// reasoningOpenRe matches a stray opening reasoning tag.
	reasoningOpenRe = regexp.MustCompile(`(?i)<(think|thinking|reasoning)>`)

	// reasoningCloseRe matches a stray closing reasoning tag left behind after
	// block removal (possible with malformed nesting).
	reasoningCloseRe = regexp.MustCompile(`(?i)</(think|thinking|reasoning)>`)

	sqlFenceRe     = regexp.MustCompile("(?s)```sql\\s*\\n?(.*?)\\n?```")
	genericFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\n?```")
)

// CleanResponse strips model reasoning leakage and markdown fencing from a
// raw Generator response. The result never contains a reasoning-block marker.
func CleanResponse(raw string) string {
	text := raw

	// Remove complete reasoning blocks, innermost first, repeating until
	// none remain.
	for {
		stripped := reasoningInnerRe.ReplaceAllString(text, "")
		if stripped == text {
			stripped = reasoningBlockRe.ReplaceAllString(text, "")
		}
		if stripped == text {
			break
		}
		text = stripped
	}

	// An unterminated opening tag means everything from the tag on is
	// reasoning output that never closed: truncate at the tag.
	if loc := reasoningOpenRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	// Orphaned closing tags can survive malformed nesting.
	text = reasoningCloseRe.ReplaceAllString(text, "")

	// Extract fenced content if the model wrapped the query in a code block.
	if m := sqlFenceRe.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	} else if m := genericFenceRe.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	return strings.TrimSpace(text)
}
