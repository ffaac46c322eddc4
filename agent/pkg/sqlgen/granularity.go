package sqlgen

import (
	"regexp"
	"strings"
)

// yearFilterRe matches a year-level filter on the billing date, e.g.
// strftime('%Y', b.billing_date) = strftime('%Y', 'now').
var yearFilterRe = regexp.MustCompile(`(?i)strftime\(\s*'%Y'\s*,\s*[A-Za-z_]\w*\.billing_date\s*\)\s*(?:=|IN\b)`)

// GuardGranularity upgrades a yearly filter with no time breakdown into a
// monthly time series. A query scoped to "this year" would otherwise
// collapse into a single row; users asking about a year want to see the
// months.
func GuardGranularity(sql string) string {
	alias, ok := factTableAlias(sql)
	if !ok || alias == "" {
		return sql
	}
	if !yearFilterRe.MatchString(sql) {
		return sql
	}
	// A month-level breakdown already present means nothing to upgrade.
	if strings.Contains(strings.ToLower(sql), "'%y-%m'") {
		return sql
	}

	monthExpr := "strftime('%Y-%m', " + alias + ".billing_date)"

	out := replaceFirst(selectRe, sql, "SELECT ${1}"+monthExpr+" AS month, ")

	if groupByKwRe.MatchString(out) {
		out = replaceFirst(groupByRe, out, "GROUP BY "+monthExpr+", ")
	} else {
		out = insertGroupBy(out, "GROUP BY "+monthExpr)
	}

	if loc := orderByKwRe.FindStringIndex(out); loc != nil {
		orderClause := out[loc[0]:]
		if !strings.Contains(orderClause, monthExpr) {
			out = replaceFirst(regexp.MustCompile(`(?i)\bORDER\s+BY\s+`), out, "ORDER BY "+monthExpr+", ")
		}
	}

	return out
}

// insertGroupBy places a new GROUP BY clause before ORDER BY if present,
// else before LIMIT, else at the end of the query.
func insertGroupBy(sql, clause string) string {
	if loc := orderByKwRe.FindStringIndex(sql); loc != nil {
		return sql[:loc[0]] + clause + " " + sql[loc[0]:]
	}
	if loc := limitKwRe.FindStringIndex(sql); loc != nil {
		return sql[:loc[0]] + clause + " " + sql[loc[0]:]
	}
	return strings.TrimRight(sql, " \t\n") + " " + clause
}
