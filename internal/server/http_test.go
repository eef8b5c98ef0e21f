package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	srv := New(testConfig(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleTablesListsCreatedTables(t *testing.T) {
	srv := New(testConfig(), testLogger())
	require.NoError(t, srv.registry.CreateNamed("holdem", "main", "Main Table"))

	req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var summaries []TableSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "main", summaries[0].ID)
	assert.Equal(t, "Main Table", summaries[0].Name)
}

func TestHandleCreateTablePost(t *testing.T) {
	srv := New(testConfig(), testLogger())

	body, _ := json.Marshal(createTableRequest{Game: "holdem", Name: "High Stakes", TableID: "high"})
	req := httptest.NewRequest(http.MethodPost, "/api/tables", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var detail TableDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "high", detail.ID)
	assert.Equal(t, "idle", detail.Street)
}

func TestHandleCreateTableDuplicateRejected(t *testing.T) {
	srv := New(testConfig(), testLogger())
	require.NoError(t, srv.registry.CreateNamed("holdem", "high", ""))

	body, _ := json.Marshal(createTableRequest{Game: "holdem", TableID: "high"})
	req := httptest.NewRequest(http.MethodPost, "/api/tables", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTableDetailNotFound(t *testing.T) {
	srv := New(testConfig(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/tables/missing", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTableDetailFound(t *testing.T) {
	srv := New(testConfig(), testLogger())
	require.NoError(t, srv.registry.CreateNamed("holdem", "main", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/tables/main", nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var detail TableDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "main", detail.ID)
}
