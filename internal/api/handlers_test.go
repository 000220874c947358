package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "aegis-tiling"
)

type stubSubmissions struct {
	count int64
}

func (s *stubSubmissions) GetArtifactsByRunID(ctx context.Context, runID string) ([]*models.Artifact, error) {
	return nil, nil
}

func (s *stubSubmissions) CountArtifactsByRunID(ctx context.Context, runID string) (int64, error) {
	return s.count, nil
}

type stubResults struct {
	report      *models.RunReport
	comparisons []*models.ComparisonDoc
	lastLimit   int64
}

func (s *stubResults) ReplaceComparisons(ctx context.Context, runID string, comparisons []*models.ComparisonDoc) error {
	return nil
}

func (s *stubResults) GetComparisonsByRunID(ctx context.Context, runID string, limit int64) ([]*models.ComparisonDoc, error) {
	s.lastLimit = limit
	return s.comparisons, nil
}

func (s *stubResults) UpdateRunReport(ctx context.Context, report *models.RunReport) error {
	return nil
}

func (s *stubResults) GetLatestReportByRunID(ctx context.Context, runID string) (*models.RunReport, error) {
	return s.report, nil
}

// blockingRunner records run ids and holds each run until released
type blockingRunner struct {
	mu      sync.Mutex
	runs    []string
	started chan string
	release chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan string, 4),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) ComputeRun(ctx context.Context, runID string) (*models.RunReport, error) {
	r.mu.Lock()
	r.runs = append(r.runs, runID)
	r.mu.Unlock()
	r.started <- runID
	<-r.release
	return &models.RunReport{RunID: runID}, nil
}

func testToken(t *testing.T, issuer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":     issuer,
		"api_key": "client-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(h *Handler, rps float64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRoutes(RouteConfig{
		JWTSecret:    testSecret,
		JWTIssuer:    testIssuer,
		RateLimitRPS: rps,
	}, h)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken(t, testIssuer))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router := newTestRouter(NewHandler(&stubSubmissions{}, &stubResults{}, newBlockingRunner(), nil, 1, time.Minute), 100)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCompute_Accepted(t *testing.T) {
	runner := newBlockingRunner()
	defer close(runner.release)
	router := newTestRouter(NewHandler(&stubSubmissions{count: 3}, &stubResults{}, runner, nil, 1, time.Minute), 100)

	w := doRequest(t, router, http.MethodPost, "/api/v1/runs", `{"runId":"run-1"}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp models.ComputeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StepInitiated, resp.Step)
	assert.Equal(t, "run-1", resp.RunID)

	select {
	case runID := <-runner.started:
		assert.Equal(t, "run-1", runID)
	case <-time.After(2 * time.Second):
		t.Fatal("computation was not started")
	}
}

func TestCompute_Busy(t *testing.T) {
	runner := newBlockingRunner()
	router := newTestRouter(NewHandler(&stubSubmissions{count: 3}, &stubResults{}, runner, nil, 1, time.Minute), 100)

	require.Equal(t, http.StatusAccepted, doRequest(t, router, http.MethodPost, "/api/v1/runs", `{"runId":"run-1"}`).Code)
	<-runner.started

	w := doRequest(t, router, http.MethodPost, "/api/v1/runs", `{"runId":"run-2"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "COMPUTE_BUSY", decodeError(t, w).Code)

	close(runner.release)
}

func TestCompute_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		count  int64
		body   string
		status int
		code   string
	}{
		{name: "malformed body", count: 1, body: `{"runId":`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "missing runId", count: 1, body: `{}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "runId too long", count: 1, body: `{"runId":"` + strings.Repeat("x", 129) + `"}`, status: http.StatusBadRequest, code: "INVALID_RUN_ID"},
		{name: "unknown run", count: 0, body: `{"runId":"run-1"}`, status: http.StatusNotFound, code: "RUN_ID_NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(NewHandler(&stubSubmissions{count: tc.count}, &stubResults{}, newBlockingRunner(), nil, 1, time.Minute), 100)

			w := doRequest(t, router, http.MethodPost, "/api/v1/runs", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestGetRun(t *testing.T) {
	results := &stubResults{report: &models.RunReport{RunID: "run-1", Status: "completed", Comparisons: 3}}
	router := newTestRouter(NewHandler(&stubSubmissions{}, results, newBlockingRunner(), nil, 1, time.Minute), 100)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RunID  string            `json:"runId"`
		Step   models.Step       `json:"step"`
		Report *models.RunReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, models.StepIdle, resp.Step)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 3, resp.Report.Comparisons)
}

func TestGetRun_NotFound(t *testing.T) {
	router := newTestRouter(NewHandler(&stubSubmissions{}, &stubResults{}, newBlockingRunner(), nil, 1, time.Minute), 100)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decodeError(t, w).Code)
}

func TestGetComparisons(t *testing.T) {
	results := &stubResults{comparisons: []*models.ComparisonDoc{
		{RunID: "run-1", SubmissionA: "a", SubmissionB: "b", Similarity: 0.9},
	}}
	router := newTestRouter(NewHandler(&stubSubmissions{}, results, newBlockingRunner(), nil, 1, time.Minute), 100)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1/comparisons", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(100), results.lastLimit)

	var resp struct {
		Comparisons []*models.ComparisonDoc `json:"comparisons"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Comparisons, 1)
	assert.Equal(t, 0.9, resp.Comparisons[0].Similarity)

	w = doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1/comparisons?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), results.lastLimit)

	w = doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1/comparisons?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LIMIT", decodeError(t, w).Code)
}

func TestGetComparisons_EmptyList(t *testing.T) {
	router := newTestRouter(NewHandler(&stubSubmissions{}, &stubResults{}, newBlockingRunner(), nil, 1, time.Minute), 100)

	w := doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1/comparisons", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"comparisons":[]`)
}
