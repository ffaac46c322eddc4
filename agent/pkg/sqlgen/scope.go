package sqlgen

import (
	"regexp"
	"strings"
)

// Empty-placeholder tenant filters the model sometimes emits when no company
// was supplied, e.g. `u.company = ''` or `users.company = ""`.
const companyPlaceholder = `(?:[A-Za-z_]\w*\.)?company\s*=\s*(?:''|"")`

var (
	// WHERE <placeholder> AND ... -> WHERE ...
	scopeWhereAndRe = regexp.MustCompile(`(?i)(\bWHERE\s+)` + companyPlaceholder + `\s+AND\s+`)

	// ... AND <placeholder> -> ...
	scopeAndRe = regexp.MustCompile(`(?i)\s+AND\s+` + companyPlaceholder)

	// WHERE <placeholder> as the sole predicate -> drop the clause,
	// together with the whitespace that preceded it.
	scopeSoleRe = regexp.MustCompile(`(?i)\s*\bWHERE\s+` + companyPlaceholder)

	// A WHERE keyword left with no following predicate.
	danglingWhereRe = regexp.MustCompile(`(?i)\bWHERE\s*(GROUP\s+BY|ORDER\s+BY|HAVING\b|LIMIT\b|$)`)
)

// EnforceScope applies tenant scoping policy to a cleaned query.
//
// When a tenant is present the query passes through unchanged: the prompt
// already instructs the model to include the tenant filter, and this stage
// trusts it. When the tenant is absent (operator scope), every
// empty-placeholder company filter is removed, along with any WHERE keyword
// left dangling by the removal. A query with no placeholder filter comes
// back byte-for-byte untouched, whitespace and string literals included.
func EnforceScope(sql, tenant string) string {
	if tenant != "" {
		return sql
	}
	if !scopeWhereAndRe.MatchString(sql) && !scopeAndRe.MatchString(sql) && !scopeSoleRe.MatchString(sql) {
		return sql
	}

	out := scopeWhereAndRe.ReplaceAllString(sql, "$1")
	out = scopeAndRe.ReplaceAllString(out, "")
	out = scopeSoleRe.ReplaceAllString(out, "")
	out = danglingWhereRe.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}
