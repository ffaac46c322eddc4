package sqlgen

import (
	"regexp"
)

// dateArg matches a date sub-expression inside a strftime call: a run of
// paren-free text, optionally with one level of nested call such as
// date(b.billing_date). Deliberately not a SQL parser.
const dateArg = `((?:[^()]|\([^()]*\))+?)`

var (
	// strftime('%Y-%Q', d): %Q is not a real strftime specifier anywhere;
	// the model hallucinates it for quarter labels.
	yearQuarterRe = regexp.MustCompile(`(?i)strftime\(\s*'%Y-%Q'\s*,\s*` + dateArg + `\s*\)`)

	// strftime('%Q', d): standalone hallucinated quarter extraction.
	quarterRe = regexp.MustCompile(`(?i)strftime\(\s*'%Q'\s*,\s*` + dateArg + `\s*\)`)

	// strftime('%Y', d) AS quarter: the alias signals quarter intent even
	// though the expression only computes the year.
	yearAsQuarterRe = regexp.MustCompile(`(?i)strftime\(\s*'%Y'\s*,\s*` + dateArg + `\s*\)\s+AS\s+quarter\b`)

	// strftime('%Y', d) = 2023 / = '2023' / IN (2022, 2023): any hard-coded
	// absolute year compared against a year or year-month extraction. Also
	// covers strftime('%Y-%m', d) = '2023' (a bare year against a year-month
	// extraction, always a generation error). Year-month literals such as
	// '2025-05' are left alone: a named month is a literal detail to preserve.
	staleYearRe = regexp.MustCompile(`(?i)(strftime\(\s*('%Y(?:-%m)?')\s*,\s*` + dateArg + `\s*\))\s*(?:=\s*'(?:19|20)\d{2}'|=\s*(?:19|20)\d{2}\b|IN\s*\(\s*'?(?:19|20)\d{2}'?(?:\s*,\s*'?(?:19|20)\d{2}'?)*\s*\))`)
)

// quarterNumExpr returns the portable integer quarter computation
// ((month-1)/3)+1 over a date sub-expression.
func quarterNumExpr(d string) string {
	return "((CAST(strftime('%m', " + d + ") AS INTEGER) - 1) / 3 + 1)"
}

// quarterLabelExpr returns the YYYY-Qn label expression over a date
// sub-expression.
func quarterLabelExpr(d string) string {
	return "strftime('%Y', " + d + ") || '-Q' || " + quarterNumExpr(d)
}

// NormalizeDates rewrites non-portable date/quarter expressions and stale
// hard-coded year literals into current-date-relative forms. Each rewrite is
// a no-op when its pattern is absent, and the whole pass is idempotent.
func NormalizeDates(sql string) string {
	out := yearQuarterRe.ReplaceAllStringFunc(sql, func(m string) string {
		sub := yearQuarterRe.FindStringSubmatch(m)
		return quarterLabelExpr(sub[1])
	})

	out = quarterRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := quarterRe.FindStringSubmatch(m)
		return quarterNumExpr(sub[1])
	})

	out = yearAsQuarterRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := yearAsQuarterRe.FindStringSubmatch(m)
		return quarterLabelExpr(sub[1]) + " AS quarter"
	})

	out = staleYearRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := staleYearRe.FindStringSubmatch(m)
		return sub[1] + " = strftime(" + sub[2] + ", 'now')"
	})

	return out
}
