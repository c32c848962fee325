package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dubshorts/internal/api"
	"dubshorts/internal/history"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/workflow"
)

type controllerStub struct {
	result     workflow.TriggerResult
	sources    []string
	cancelled  bool
	status     Status
	runs       []history.Run
	runsErr    error
	lastFilter history.Filter
}

func (c *controllerStub) TriggerRun(_ context.Context, source string) workflow.TriggerResult {
	c.sources = append(c.sources, source)
	return c.result
}

func (c *controllerStub) CancelRun() bool { return c.cancelled }

func (c *controllerStub) ListRuns(_ context.Context, filter history.Filter) ([]history.Run, error) {
	c.lastFilter = filter
	return c.runs, c.runsErr
}

func (c *controllerStub) Status() Status { return c.status }

func serve(t *testing.T, srv *apiServer, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.routes("").ServeHTTP(w, req)
	return w
}

func TestAPIServerRunNowStarted(t *testing.T) {
	ctrl := &controllerStub{result: workflow.TriggerResult{Started: true, RunID: "run-1"}}
	srv := &apiServer{ctrl: ctrl}

	w := serve(t, srv, http.MethodPost, "/api/run-now", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	var resp api.RunNowResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "started" || resp.Message != "Automation started" || resp.RunID != "run-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(ctrl.sources) != 1 || ctrl.sources[0] != workflow.SourceAPI {
		t.Fatalf("expected api trigger source, got %v", ctrl.sources)
	}
}

func TestAPIServerRunNowAlreadyRunning(t *testing.T) {
	ctrl := &controllerStub{result: workflow.TriggerResult{Reason: workflow.ReasonAlreadyRunning}}
	srv := &apiServer{ctrl: ctrl}

	w := serve(t, srv, http.MethodPost, "/api/run-now", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var resp api.RunNowResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "error" || resp.Message != "Already running" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAPIServerRunNowRejectsGet(t *testing.T) {
	ctrl := &controllerStub{}
	w := serve(t, &apiServer{ctrl: ctrl}, http.MethodGet, "/api/run-now", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if len(ctrl.sources) != 0 {
		t.Fatal("GET must not trigger a run")
	}
}

func TestAPIServerStatus(t *testing.T) {
	next := time.Date(2026, 5, 2, 6, 30, 0, 0, time.UTC)
	ctrl := &controllerStub{status: Status{Workflow: workflow.Status{
		Running:       true,
		Stage:         pipeline.StatePublishing,
		URL:           "https://youtube.com/shorts/x",
		NextScheduled: next,
	}}}

	w := serve(t, &apiServer{ctrl: ctrl}, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["running"] != true {
		t.Fatalf("expected running=true, got %v", raw["running"])
	}
	if raw["next_scheduled"] != "2026-05-02T06:30:00Z" {
		t.Fatalf("unexpected next_scheduled %v", raw["next_scheduled"])
	}
	if raw["stage"] != "publishing" {
		t.Fatalf("unexpected stage %v", raw["stage"])
	}
}

func TestAPIServerRuns(t *testing.T) {
	ctrl := &controllerStub{runs: []history.Run{{RunID: "b", State: "failed"}, {RunID: "a", State: "failed"}}}

	w := serve(t, &apiServer{ctrl: ctrl}, http.MethodGet, "/api/runs?limit=1000&state=failed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ctrl.lastFilter.Limit != maxRunsLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxRunsLimit, ctrl.lastFilter.Limit)
	}
	if len(ctrl.lastFilter.States) != 1 || ctrl.lastFilter.States[0] != "failed" {
		t.Fatalf("unexpected states %v", ctrl.lastFilter.States)
	}
	var resp api.RunsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 2 || resp.Runs[0].RunID != "b" {
		t.Fatalf("unexpected runs %+v", resp.Runs)
	}
}

func TestAPIServerRunsErrors(t *testing.T) {
	ctrl := &controllerStub{}
	if w := serve(t, &apiServer{ctrl: ctrl}, http.MethodGet, "/api/runs?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
	ctrl.runsErr = errors.New("database is locked")
	if w := serve(t, &apiServer{ctrl: ctrl}, http.MethodGet, "/api/runs", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if ctrl.lastFilter.Limit != defaultRunsLimit {
		t.Fatalf("expected default limit, got %d", ctrl.lastFilter.Limit)
	}
}

func TestAPIServerCancel(t *testing.T) {
	ctrl := &controllerStub{}
	if w := serve(t, &apiServer{ctrl: ctrl}, http.MethodPost, "/api/cancel", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 without active run, got %d", w.Code)
	}
	ctrl.cancelled = true
	if w := serve(t, &apiServer{ctrl: ctrl}, http.MethodPost, "/api/cancel", ""); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ctrl := &controllerStub{}
	srv := &apiServer{ctrl: ctrl}
	handler := srv.routes("secret")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic secret", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer secret", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
