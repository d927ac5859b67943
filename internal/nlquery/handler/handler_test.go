package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nlquery/internal/model"
	"github.com/kart-io/nlquery/internal/nlquery/store"
)

// fakeService is a canned biz.Service implementation.
type fakeService struct {
	connected  bool
	connectErr error
	lastQuery  string
}

func (f *fakeService) ProcessQuery(_ context.Context, query string, _ int) *model.Response {
	f.lastQuery = query
	return &model.Response{
		Query:     query,
		QueryType: model.QueryTypeSQL,
		Metrics:   model.Metrics{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	}
}

func (f *fakeService) History(int) []model.HistoryRecord {
	return []model.HistoryRecord{{Query: "earlier", QueryType: model.QueryTypeSQL}}
}

func (f *fakeService) ConnectDatabase(context.Context, string) (*model.SchemaSummary, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connected = true
	return &model.SchemaSummary{Tables: []model.Table{{Name: "employees"}}}, nil
}

func (f *fakeService) IngestDocuments(_ context.Context, files []store.IngestFile) (*store.IngestReport, error) {
	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Filename
	}
	return &store.IngestReport{
		Status:         "success",
		ProcessedFiles: names,
		TotalDocuments: len(names),
		TotalChunks:    len(names),
	}, nil
}

func (f *fakeService) Connected() bool { return f.connected }

func (f *fakeService) Stats() map[string]any {
	return map[string]any{"queries_total": int64(3)}
}

func newTestRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	query := NewQueryHandler(svc)
	admin := NewAdminHandler(svc)

	engine.GET("/healthz", admin.Health)
	v1 := engine.Group("/v1")
	v1.POST("/query", query.Query)
	v1.GET("/query/history", query.History)
	v1.POST("/database/connect", admin.ConnectDatabase)
	v1.POST("/documents", admin.UploadDocuments)
	v1.GET("/stats", admin.Stats)
	return engine
}

func TestQueryEndpoint(t *testing.T) {
	svc := &fakeService{connected: true}
	router := newTestRouter(svc)

	body := `{"query": "how many employees", "top_k_docs": 2}`
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "how many employees", svc.lastQuery)

	var envelope SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Code)
}

func TestQueryEndpointRejectsMissingQuery(t *testing.T) {
	router := newTestRouter(&fakeService{connected: true})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryEndpointRequiresDatabase(t *testing.T) {
	router := newTestRouter(&fakeService{})

	body := `{"query": "how many employees"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no database connected")
}

func TestHistoryEndpoint(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/query/history?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "earlier")
}

func TestConnectDatabaseEndpoint(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	body := `{"connection_string": "/tmp/test.db"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/database/connect", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.connected)
	assert.Contains(t, rec.Body.String(), `"tables":1`)
}

func TestConnectDatabaseEndpointRejectsMissingDSN(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/database/connect", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocumentsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", "policy.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("the policy text"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "policy.txt")
}

func TestUploadDocumentsEndpointRejectsEmptyForm(t *testing.T) {
	router := newTestRouter(&fakeService{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queries_total")
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database_connected":false`)
}
