package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
)

type stubPipeline struct {
	recomputeCalls int
	refreshCalls   int
	err            error
}

func (p *stubPipeline) RecomputeTournament(context.Context) (usecase.RunResult, error) {
	p.recomputeCalls++
	return usecase.RunResult{RunID: "run-1", Mode: usecase.RunModeRecomputeTournament, Status: usecase.RunStatusSuccess}, p.err
}

func (p *stubPipeline) RefreshPredictions(context.Context) (usecase.RunResult, error) {
	p.refreshCalls++
	return usecase.RunResult{RunID: "run-2", Mode: usecase.RunModeRefreshPredictions, Status: usecase.RunStatusSuccess}, p.err
}

type stubReader struct {
	doc       *snapshot.Document
	history   []prediction.HistoryEntry
	lastLimit int
	health    usecase.HealthReport
}

func (r *stubReader) Latest(context.Context) (snapshot.Document, error) {
	if r.doc == nil {
		return snapshot.Document{}, fmt.Errorf("%w: no snapshot has been published yet", usecase.ErrNotFound)
	}
	return *r.doc, nil
}

func (r *stubReader) MatchHistory(_ context.Context, _ string, limit int) ([]prediction.HistoryEntry, error) {
	r.lastLimit = limit
	return r.history, nil
}

func (r *stubReader) Health(context.Context) usecase.HealthReport {
	return r.health
}

func newTestRouter(pipeline PipelineRunner, reader SnapshotReader) http.Handler {
	handler := NewHandler(pipeline, reader, logging.NewNop())
	return NewRouter(handler, logging.NewNop(), RouterConfig{InternalJobToken: "secret"})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	reader := &stubReader{health: usecase.HealthReport{Status: usecase.HealthStatusDegraded}}
	router := newTestRouter(&stubPipeline{}, reader)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status got=%d want=%d", rec.Code, http.StatusServiceUnavailable)
	}

	reader.health.Status = usecase.HealthStatusHealthy
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestHandler_GetLatestSnapshot(t *testing.T) {
	t.Parallel()

	reader := &stubReader{}
	router := newTestRouter(&stubPipeline{}, reader)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshot/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status got=%d want=%d", rec.Code, http.StatusNotFound)
	}

	reader.doc = &snapshot.Document{RunID: "run-9", UpdatedAt: time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshot/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status got=%d want=%d", rec.Code, http.StatusOK)
	}
	data, _ := decodeEnvelope(t, rec)["data"].(map[string]any)
	if got, _ := data["run_id"].(string); got != "run-9" {
		t.Fatalf("unexpected run id got=%v", data["run_id"])
	}
}

func TestHandler_ListMatchHistory(t *testing.T) {
	t.Parallel()

	reader := &stubReader{history: []prediction.HistoryEntry{{
		MatchID:    "wc26-001",
		Winner:     "Mexico",
		Reasoning:  "Stronger recent xG.",
		RecordedAt: time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC),
	}}}
	router := newTestRouter(&stubPipeline{}, reader)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/wc26-001/history?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if reader.lastLimit != 5 {
		t.Fatalf("unexpected limit got=%d want=5", reader.lastLimit)
	}
	items, _ := decodeEnvelope(t, rec)["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("unexpected items: %v", items)
	}

	for _, query := range []string{"limit=abc", "limit=500"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/wc26-001/history?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("query %q: unexpected status got=%d want=%d", query, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestHandler_InternalJobsRequireToken(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{}
	router := newTestRouter(pipeline, &stubReader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/recompute-tournament", nil)
	req.Header.Set("X-Internal-Job-Token", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
	if pipeline.recomputeCalls != 0 {
		t.Fatalf("pipeline must not run without a valid token")
	}
}

func TestHandler_InternalJobs(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{}
	router := newTestRouter(pipeline, &stubReader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/refresh-predictions", strings.NewReader(`{"reason":"manual"}`))
	req.Header.Set("X-Internal-Job-Token", "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || pipeline.refreshCalls != 1 {
		t.Fatalf("unexpected refresh response got=%d calls=%d", rec.Code, pipeline.refreshCalls)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/recompute-tournament", strings.NewReader(`{bad`))
	req.Header.Set("X-Internal-Job-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || pipeline.recomputeCalls != 0 {
		t.Fatalf("expected bad request for malformed body, got=%d calls=%d", rec.Code, pipeline.recomputeCalls)
	}

	pipeline.err = usecase.ErrRunInProgress
	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/recompute-tournament", nil)
	req.Header.Set("X-Internal-Job-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status got=%d want=%d", rec.Code, http.StatusConflict)
	}
}

func TestRouter_SwaggerToggle(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&stubPipeline{}, &stubReader{}, logging.NewNop())

	enabled := NewRouter(handler, logging.NewNop(), RouterConfig{SwaggerEnabled: true})
	rec := httptest.NewRecorder()
	enabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected openapi status got=%d want=%d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/yaml; charset=utf-8" {
		t.Fatalf("unexpected content type got=%q", got)
	}

	disabled := NewRouter(handler, logging.NewNop(), RouterConfig{})
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected docs status with swagger off got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}
