package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/assistant"
	"github.com/xaenox/shopbot-experiment/internal/catalog"
	"github.com/xaenox/shopbot-experiment/internal/experiment"
	"github.com/xaenox/shopbot-experiment/internal/models"
	"github.com/xaenox/shopbot-experiment/internal/preference"
	"github.com/xaenox/shopbot-experiment/internal/storage"
)

type stubGenerator string

func (s stubGenerator) Generate(ctx context.Context, req assistant.Request) (string, error) {
	return string(s), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	products := []models.Product{
		{ID: "EAR001", Name: "静音 Pro", Price: 899, HeadsetType: "头戴式", CoreFunction: "降噪"},
		{ID: "EAR002", Name: "运动 Lite", Price: 199, HeadsetType: "入耳式", CoreFunction: "防水"},
	}
	store := catalog.NewStore(catalog.ProviderFunc(func() ([]models.Product, error) {
		return products, nil
	}))

	logger := zap.NewNop()
	orch := experiment.NewOrchestrator(store, stubGenerator("推荐静音 Pro ||REC: EAR001||"), time.Second, logger)
	svc := experiment.NewService(storage.NewMemoryStorage(), preference.NewAnalyzer(), orch, experiment.FixedAssigner("D"), logger)

	srv := httptest.NewServer(NewRouter(NewHandler(svc, logger), logger))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := post(t, srv.URL+"/api/sessions", `{"participant_id":"p-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "D", body["group_id"])
	assert.Equal(t, "HIGH", body["adaptivity"])
	assert.Equal(t, "HIGH", body["calibration"])
	assert.Equal(t, "p-1", body["participant_id"])

	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateSession_EmptyBody(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/sessions", "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestPostMessage(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	resp := post(t, srv.URL+"/api/sessions/"+id+"/messages", `{"msg":"想要降噪的头戴式耳机"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Response    string                  `json:"response"`
		Adaptivity  string                  `json:"adaptivity"`
		Calibration string                  `json:"calibration"`
		Focus       string                  `json:"focus"`
		Drift       float64                 `json:"drift"`
		TurnIndex   int                     `json:"turn_index"`
		Products    []models.ProductSummary `json:"products"`
	}
	decode(t, resp, &body)

	assert.Equal(t, "推荐静音 Pro", body.Response)
	assert.Equal(t, "HIGH", body.Adaptivity)
	assert.Equal(t, "HIGH", body.Calibration)
	assert.Equal(t, "function", body.Focus)
	assert.Equal(t, 0.0, body.Drift)
	assert.Equal(t, 1, body.TurnIndex)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "EAR001", body.Products[0].ProductID)
	assert.Equal(t, "静音 Pro", body.Products[0].ProductName)
}

func TestPostMessage_Errors(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"empty message", "/api/sessions/" + id + "/messages", `{"msg":"  "}`, http.StatusBadRequest},
		{"malformed body", "/api/sessions/" + id + "/messages", `{`, http.StatusBadRequest},
		{"unknown session", "/api/sessions/nope/messages", `{"msg":"耳机"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body errorResponse
			decode(t, resp, &body)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestEndSession(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	resp := post(t, srv.URL+"/api/sessions/"+id+"/end", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Ending again is harmless.
	resp = post(t, srv.URL+"/api/sessions/"+id+"/end", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = post(t, srv.URL+"/api/sessions/"+id+"/messages", `{"msg":"耳机"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, srv.URL+"/api/sessions/nope/end", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListTurns(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	post(t, srv.URL+"/api/sessions/"+id+"/messages", `{"msg":"便宜点的"}`)

	resp, err := http.Get(srv.URL + "/api/sessions/" + id + "/turns")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var turns []models.Turn
	decode(t, resp, &turns)
	require.Len(t, turns, 2)
	assert.Equal(t, models.SenderUser, turns[0].Sender)
	assert.Equal(t, "price", turns[0].Focus)
	assert.Equal(t, models.SenderAssistant, turns[1].Sender)
	assert.Equal(t, "推荐静音 Pro", turns[1].Content)

	resp2, err := http.Get(srv.URL + "/api/sessions/nope/turns")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
