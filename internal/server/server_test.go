package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/normalize"
	"github.com/lutivix/financeiro/internal/store"
	testdb "github.com/lutivix/financeiro/internal/testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, cleanup := testdb.NewTestDB(t, "server")
	t.Cleanup(cleanup)
	require.NoError(t, store.EnsureSchema(db.Conn()))
	txRepo := store.NewTransactionRepository(db.Conn(), zerolog.Nop())

	tx, err := domain.NewTransaction(
		time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC),
		"MERCADO CENTRAL", -230.00, domain.SourcePix, domain.OriginPixText)
	require.NoError(t, err)
	require.NoError(t, normalize.Transaction(tx))
	tx.SetCategory(domain.CategoryMarket)
	_, err = txRepo.InsertBatch(context.Background(), []*domain.Transaction{tx})
	require.NoError(t, err)

	return New(Config{Log: zerolog.Nop(), DB: db, TxRepo: txRepo, Port: 0})
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleTransactions(t *testing.T) {
	s := newTestServer(t)

	rec, body := get(t, s, "/api/transactions?start=2025-10-01&end=2025-10-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = get(t, s, "/api/transactions?start=2025-11-01&end=2025-11-30")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
}

func TestHandleTransactionsRejectsBadParams(t *testing.T) {
	s := newTestServer(t)

	rec, _ := get(t, s, "/api/transactions?start=2025-10-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, s, "/api/transactions?start=notadate&end=2025-10-31")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, s, "/api/transactions?start=2025-10-31&end=2025-10-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSummary(t *testing.T) {
	s := newTestServer(t)

	rec, body := get(t, s, "/api/summary?month=Outubro+2025")
	require.Equal(t, http.StatusOK, rec.Code)
	totals, ok := body["totals"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, -230.0, totals["Market"])

	rec, _ = get(t, s, "/api/summary")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMonths(t *testing.T) {
	s := newTestServer(t)

	rec, body := get(t, s, "/api/months")
	require.Equal(t, http.StatusOK, rec.Code)
	months, ok := body["months"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Outubro 2025"}, months)
}
