package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/polarlink/cabinet/api/config"
	"github.com/polarlink/cabinet/api/metrics"
)

// toJSONSafe converts driver values to JSON-serializable types. SQLite hands
// back []byte for TEXT in some paths, and NaN/Inf are not valid JSON.
func toJSONSafe(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

type QueryRequest struct {
	Query string `json:"query"`
}

type QueryResponse struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Error     string   `json:"error,omitempty"`
}

// ExecuteQuery handles POST /api/sql/query. Only single SELECT statements
// are accepted, the endpoint exists to run generated queries.
func ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	query := strings.TrimSuffix(strings.TrimSpace(req.Query), ";")
	if query == "" {
		http.Error(w, "Query is required", http.StatusBadRequest)
		return
	}
	if !isSelect(query) {
		http.Error(w, "Only SELECT queries are allowed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	rows, err := config.DB.QueryContext(ctx, query)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordBillingQuery(duration, err)
		writeQueryError(w, err, duration)
		return
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		metrics.RecordBillingQuery(duration, err)
		writeQueryError(w, err, duration)
		return
	}

	var resultRows [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			metrics.RecordBillingQuery(duration, err)
			writeQueryError(w, err, duration)
			return
		}

		row := make([]any, len(values))
		for i, v := range values {
			row[i] = toJSONSafe(v)
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		metrics.RecordBillingQuery(duration, err)
		writeQueryError(w, err, duration)
		return
	}

	metrics.RecordBillingQuery(duration, nil)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(QueryResponse{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		ElapsedMs: duration.Milliseconds(),
	}); err != nil {
		// Response is already partially written at this point.
		slog.Error("JSON encoding error", "error", err)
	}
}

func isSelect(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

func writeQueryError(w http.ResponseWriter, err error, duration time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(QueryResponse{
		Error:     SanitizeError(err),
		ElapsedMs: duration.Milliseconds(),
	})
}
