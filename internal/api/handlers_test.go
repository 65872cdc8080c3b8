package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbench.io/workbench/internal/core"
	"docbench.io/workbench/internal/store"
)

type stubEngine struct{}

func (stubEngine) Extract(ctx context.Context, in core.ExtractInput) (*core.ExtractOutput, error) {
	return &core.ExtractOutput{ExtractedJSON: `{"ok":true}`}, nil
}

func (stubEngine) Explain(ctx context.Context, in core.ThinkingInput) (*core.ThinkingOutput, error) {
	return &core.ThinkingOutput{ThinkingProcess: "steps"}, nil
}

func (stubEngine) Close() {}

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jobService := core.NewJobServiceWithEngine(db, func(ctx context.Context, cfg *store.LLMConfig) (core.Engine, error) {
		return stubEngine{}, nil
	})
	router := NewRouter(NewAPIHandler(db, jobService), []string{"http://localhost:3000"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, db
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSchemaEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/schema", SchemaPayload{SchemaJSON: `{"type":"object"}`})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/schema", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got SchemaPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, `{"type":"object"}`, got.SchemaJSON)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/schema", SchemaPayload{SchemaJSON: `{"broken":`})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExampleValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/prompts/examples", AddExampleRequest{Input: "in", Output: `{"n":1}`})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/prompts/examples", AddExampleRequest{Input: "in", Output: "not json"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddTextDocument(t *testing.T) {
	srv, db := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/documents", AddDocumentRequest{
		Name:        "note.txt",
		TextContent: "hello world",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc store.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "text/plain", doc.MIMEType)
	assert.True(t, strings.HasPrefix(doc.DataURI, "data:text/plain;base64,"))
	assert.Equal(t, "hello world", doc.TextContent)

	docs, err := db.GetDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestAddBinaryDocumentDecodesTextualMIME(t *testing.T) {
	srv, _ := newTestServer(t)

	// A textual MIME type uploaded as base64 still gets decoded text.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/documents", AddDocumentRequest{
		Name:          "data.json",
		MIMEType:      "application/json",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte(`{"k":"v"}`)),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var doc store.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, `{"k":"v"}`, doc.TextContent)

	// A binary MIME type does not.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/documents", AddDocumentRequest{
		Name:          "scan.pdf",
		MIMEType:      "application/pdf",
		ContentBase64: base64.StdEncoding.EncodeToString([]byte("%PDF")),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	doc = store.Document{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Empty(t, doc.TextContent)
}

func TestLLMConfigNeverEchoesKey(t *testing.T) {
	srv, db := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/llm", LLMConfigRequest{
		Provider: "googleAI",
		Model:    "gemini-1.5-pro-latest",
		APIKey:   "AIzaSySecretSecretSecretSecretSecret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got LLMConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.APIKeySet)
	assert.True(t, got.KeyLooksValid)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/llm", nil)
	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	assert.NotContains(t, body.String(), "Secret", "the API key must never leave the server")

	cfg, err := db.GetLLMConfig()
	require.NoError(t, err)
	assert.Equal(t, "AIzaSySecretSecretSecretSecretSecret", cfg.APIKey)
}

func TestLLMConfigRejectsUnknownProvider(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/llm", LLMConfigRequest{Provider: "openAI"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartJobPreconditionErrors(t *testing.T) {
	srv, db := newTestServer(t)

	// No documents at all.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/jobs", StartJobRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Documents but no credential.
	doc := store.Document{Name: "a.txt", MIMEType: "text/plain", Size: 1, DataURI: "data:text/plain;base64,QQ=="}
	require.NoError(t, db.AddDocument(&doc))
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/jobs", StartJobRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad detail level.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/jobs", StartJobRequest{ThinkingEnabled: true, DetailLevel: "verbose"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobResultsEmptyList(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/jobs/results", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	assert.Equal(t, "[]", strings.TrimSpace(body.String()))
}

func TestCancelWithoutRunningJob(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/jobs/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
