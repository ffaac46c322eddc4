package sqlgen

import (
	"regexp"
	"strings"
)

var (
	sumUsageRe  = regexp.MustCompile(`(?i)\bSUM\s*\(\s*(?:[A-Za-z_]\w*\.)?usage_amount\s*\)`)
	factFromRe  = regexp.MustCompile(`(?i)\bFROM\s+billing_records(?:\s+(?:AS\s+)?([A-Za-z_]\w*))?`)
	factBareRe  = regexp.MustCompile(`(?i)\bFROM\s+billing_records\b`)
	selectRe    = regexp.MustCompile(`(?i)\bSELECT\s+(DISTINCT\s+)?`)
	groupByRe   = regexp.MustCompile(`(?i)\bGROUP\s+BY\s+`)
	whereKwRe   = regexp.MustCompile(`(?i)\bWHERE\b`)
	groupByKwRe = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
	orderByKwRe = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	limitKwRe   = regexp.MustCompile(`(?i)\bLIMIT\b`)
)

// sqlKeywords are tokens that can follow the fact table reference and must
// not be mistaken for an alias.
var sqlKeywords = map[string]bool{
	"where": true, "group": true, "order": true, "having": true,
	"limit": true, "join": true, "left": true, "right": true,
	"inner": true, "outer": true, "cross": true, "on": true,
	"union": true, "and": true, "or": true,
}

// replaceFirst rewrites only the first match of re. The heuristics assume a
// single simple SELECT, so clause keywords past the first are left alone.
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + string(re.ExpandString(nil, repl, s, loc)) + s[loc[1]:]
}

// factTableAlias finds the alias bound to billing_records in the FROM
// clause. Returns the alias and whether billing_records is referenced at all.
func factTableAlias(sql string) (string, bool) {
	m := factFromRe.FindStringSubmatch(sql)
	if m == nil {
		return "", false
	}
	alias := m[1]
	if alias == "" || sqlKeywords[strings.ToLower(alias)] {
		return "", true
	}
	return alias, true
}

// GuardAggregation prevents silent aggregation of incompatible measurement
// units. When a query sums usage_amount from billing_records without
// referencing the service_types dimension, it injects the service_types
// join and forces the dimension's descriptive columns into the SELECT list
// and GROUP BY, so kilobytes never get summed together with minutes.
func GuardAggregation(sql string) string {
	if !sumUsageRe.MatchString(sql) {
		return sql
	}
	lower := strings.ToLower(sql)
	if strings.Contains(lower, "service_types") || strings.Contains(lower, "service_type_id") {
		return sql
	}

	alias, ok := factTableAlias(sql)
	if !ok {
		return sql
	}
	out := sql
	if alias == "" {
		// Fact table referenced without an alias: bind the default one.
		out = replaceFirst(factBareRe, out, "FROM billing_records b")
		alias = "b"
	}

	join := "JOIN service_types st ON " + alias + ".service_type_id = st.id"
	out = insertClause(out, join)

	out = replaceFirst(selectRe, out, "SELECT ${1}st.name, st.unit, ")
	out = replaceFirst(groupByRe, out, "GROUP BY st.name, st.unit, ")

	return out
}

// insertClause places a join clause immediately before WHERE if present,
// else before GROUP BY, else appends it at the end of the query.
func insertClause(sql, clause string) string {
	if loc := whereKwRe.FindStringIndex(sql); loc != nil {
		return sql[:loc[0]] + clause + " " + sql[loc[0]:]
	}
	if loc := groupByKwRe.FindStringIndex(sql); loc != nil {
		return sql[:loc[0]] + clause + " " + sql[loc[0]:]
	}
	return strings.TrimRight(sql, " \t\n") + " " + clause
}
