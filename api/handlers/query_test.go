package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polarlink/cabinet/api/handlers"
	apitesting "github.com/polarlink/cabinet/api/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postQuery(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(handlers.QueryRequest{Query: query})
	req := httptest.NewRequest(http.MethodPost, "/api/sql/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handlers.ExecuteQuery(rr, req)
	return rr
}

func TestExecuteQuery_Select(t *testing.T) {
	db := apitesting.SetupTestBilling(t)

	_, err := db.Exec(`INSERT INTO users (username, company, role) VALUES ('alice', 'Arctic Research Station', 'client'), ('bob', 'Nordic Shipping', 'client')`)
	require.NoError(t, err)

	rr := postQuery(t, "SELECT username, company FROM users ORDER BY username")
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Empty(t, response.Error)
	assert.Equal(t, []string{"username", "company"}, response.Columns)
	assert.Equal(t, 2, response.RowCount)
	assert.Equal(t, "alice", response.Rows[0][0])
	assert.True(t, response.ElapsedMs >= 0)
}

func TestExecuteQuery_Empty(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExecuteQuery_WhitespaceOnly(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "   \t\n  ")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExecuteQuery_RejectsNonSelect(t *testing.T) {
	apitesting.SetupTestBilling(t)

	for _, query := range []string{
		"DELETE FROM billing_records",
		"UPDATE users SET role = 'admin'",
		"DROP TABLE users",
		"INSERT INTO users (username, company) VALUES ('x', 'y')",
	} {
		rr := postQuery(t, query)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "query: %s", query)
	}
}

func TestExecuteQuery_AllowsCTE(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "WITH t AS (SELECT 1 AS one) SELECT one FROM t")
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Empty(t, response.Error)
	assert.Equal(t, 1, response.RowCount)
}

func TestExecuteQuery_InvalidSQL(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "SELECT * FROM nonexistent_table")

	// 200 OK with the error in the response body
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.NotEmpty(t, response.Error)
}

func TestExecuteQuery_InvalidRequestBody(t *testing.T) {
	apitesting.SetupTestBilling(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sql/query", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handlers.ExecuteQuery(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExecuteQuery_TrimsTrailingSemicolon(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "SELECT 1;")
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Empty(t, response.Error)
	assert.Equal(t, 1, response.RowCount)
}

func TestExecuteQuery_EmptyResult(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "SELECT id FROM billing_records")
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Empty(t, response.Error)
	assert.Equal(t, 0, response.RowCount)
	assert.Equal(t, []string{"id"}, response.Columns)
}

func TestExecuteQuery_SeededServiceTypes(t *testing.T) {
	apitesting.SetupTestBilling(t)

	rr := postQuery(t, "SELECT name, unit FROM service_types ORDER BY name")
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	require.Equal(t, 3, response.RowCount)
	assert.Equal(t, "Broadband", response.Rows[0][0])
	assert.Equal(t, "SBD", response.Rows[1][0])
	assert.Equal(t, "Voice", response.Rows[2][0])
}

func TestExecuteQuery_UsageAggregation(t *testing.T) {
	db := apitesting.SetupTestBilling(t)

	_, err := db.Exec(`INSERT INTO users (id, username, company) VALUES (1, 'alice', 'Arctic Research Station')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tariffs (id, service_type_id, name, price_per_unit) VALUES (1, 1, 'SBD Basic', 0.9)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO agreements (id, user_id, tariff_id, start_date) VALUES (1, 1, 1, '2025-01-01')`)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO billing_records (agreement_id, service_type_id, billing_date, usage_amount, amount)
		VALUES (1, 1, '2025-05-01', 120.5, 108.45),
		       (1, 1, '2025-05-02', 80.0, 72.0)
	`)
	require.NoError(t, err)

	rr := postQuery(t, `
		SELECT st.name, st.unit, SUM(b.usage_amount)
		FROM billing_records b
		JOIN service_types st ON b.service_type_id = st.id
		GROUP BY st.name, st.unit
	`)
	assert.Equal(t, http.StatusOK, rr.Code)

	var response handlers.QueryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Empty(t, response.Error)
	require.Equal(t, 1, response.RowCount)
	assert.Equal(t, "SBD", response.Rows[0][0])
	assert.Equal(t, "KB", response.Rows[0][1])
	assert.InDelta(t, 200.5, response.Rows[0][2], 0.001)
}
