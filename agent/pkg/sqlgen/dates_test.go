package sqlgen_test

import (
	"testing"

	"github.com/polarlink/cabinet/agent/pkg/sqlgen"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDates_YearQuarter(t *testing.T) {
	in := "SELECT strftime('%Y-%Q', b.billing_date) AS quarter, SUM(b.amount) FROM billing_records b GROUP BY quarter"
	out := sqlgen.NormalizeDates(in)

	assert.NotContains(t, out, "%Q")
	assert.Contains(t, out, "strftime('%Y', b.billing_date) || '-Q' || ((CAST(strftime('%m', b.billing_date) AS INTEGER) - 1) / 3 + 1)")
}

func TestNormalizeDates_StandaloneQuarter(t *testing.T) {
	in := "SELECT strftime('%Q', b.billing_date) FROM billing_records b"
	out := sqlgen.NormalizeDates(in)

	assert.NotContains(t, out, "%Q")
	assert.Contains(t, out, "((CAST(strftime('%m', b.billing_date) AS INTEGER) - 1) / 3 + 1)")
	// Standalone quarter stays an integer, not a YYYY-Qn label.
	assert.NotContains(t, out, "'-Q'")
}

func TestNormalizeDates_YearAliasedAsQuarter(t *testing.T) {
	in := "SELECT strftime('%Y', b.billing_date) AS quarter FROM billing_records b GROUP BY quarter"
	out := sqlgen.NormalizeDates(in)

	assert.Contains(t, out, "strftime('%Y', b.billing_date) || '-Q' || ((CAST(strftime('%m', b.billing_date) AS INTEGER) - 1) / 3 + 1) AS quarter")
}

func TestNormalizeDates_StaleYearLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "quoted year equality",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = '2023'",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = strftime('%Y', 'now')",
		},
		{
			name:     "unquoted year equality",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = 2024",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = strftime('%Y', 'now')",
		},
		{
			name:     "year membership",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) IN ('2022', '2023')",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = strftime('%Y', 'now')",
		},
		{
			name:     "current year literal is still rewritten",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = '2025'",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = strftime('%Y', 'now')",
		},
		{
			name:     "bare year against year-month extraction",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y-%m', b.billing_date) = '2024'",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y-%m', b.billing_date) = strftime('%Y-%m', 'now')",
		},
		{
			name:     "named month literal is preserved",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y-%m', b.billing_date) = '2025-05'",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y-%m', b.billing_date) = '2025-05'",
		},
		{
			name:     "now-relative comparison untouched",
			input:    "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = strftime('%Y', 'now')",
			expected: "SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = strftime('%Y', 'now')",
		},
		{
			name:     "non-date numeric literal untouched",
			input:    "SELECT * FROM billing_records b WHERE b.usage_amount = 2048",
			expected: "SELECT * FROM billing_records b WHERE b.usage_amount = 2048",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqlgen.NormalizeDates(tt.input))
		})
	}
}

func TestNormalizeDates_NestedDateExpression(t *testing.T) {
	in := "SELECT strftime('%Q', date(b.billing_date)) FROM billing_records b"
	out := sqlgen.NormalizeDates(in)

	assert.NotContains(t, out, "%Q")
	assert.Contains(t, out, "strftime('%m', date(b.billing_date))")
}

func TestNormalizeDates_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT strftime('%Y-%Q', b.billing_date) AS quarter, SUM(b.amount) FROM billing_records b GROUP BY quarter",
		"SELECT strftime('%Q', b.billing_date) FROM billing_records b",
		"SELECT strftime('%Y', b.billing_date) AS quarter FROM billing_records b",
		"SELECT * FROM billing_records b WHERE strftime('%Y', b.billing_date) = '2023'",
		"SELECT * FROM billing_records b WHERE strftime('%Y-%m', b.billing_date) IN (2022, 2023)",
		"SELECT * FROM billing_records b",
	}
	for _, in := range inputs {
		once := sqlgen.NormalizeDates(in)
		twice := sqlgen.NormalizeDates(once)
		assert.Equal(t, once, twice, "input: %s", in)
	}
}
