package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dubshorts/internal/api"
	"dubshorts/internal/config"
	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/services"
	"dubshorts/internal/workflow"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// controller is the daemon surface the HTTP handlers depend on.
type controller interface {
	TriggerRun(ctx context.Context, source string) workflow.TriggerResult
	CancelRun() bool
	ListRuns(ctx context.Context, filter history.Filter) ([]history.Run, error)
	Status() Status
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	ctrl   controller

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, ctrl controller, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || ctrl == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		ctrl:   ctrl,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/run-now", authMiddleware(token, s.handleRunNow))
	mux.HandleFunc("/api/cancel", authMiddleware(token, s.handleCancel))
	mux.HandleFunc("/api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("/api/runs", authMiddleware(token, s.handleRuns))
	return mux
}

func (s *apiServer) listen() error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// serve blocks until ctx is done, then shuts the server down.
func (s *apiServer) serve(ctx context.Context) error {
	if s == nil || s.listener == nil {
		return nil
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log().Warn("api server shutdown incomplete", logging.Error(err))
	}
	<-errCh
	return nil
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleRunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := services.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
	result := s.ctrl.TriggerRun(ctx, workflow.SourceAPI)
	if !result.Started {
		status := http.StatusConflict
		if result.Reason != workflow.ReasonAlreadyRunning {
			status = http.StatusServiceUnavailable
		}
		s.writeJSON(w, status, api.RunNowResponse{Status: api.RunNowError, Message: result.Reason})
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.RunNowResponse{
		Status:  api.RunNowStarted,
		Message: api.RunNowStartedMessage,
		RunID:   result.RunID,
	})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.ctrl.CancelRun() {
		s.writeError(w, http.StatusConflict, "no active run")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.ctrl.Status()
	s.writeJSON(w, http.StatusOK, api.FromStatus(status.Workflow))
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	limit := defaultRunsLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxRunsLimit)
	}
	var states []string
	for _, value := range query["state"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			states = append(states, trimmed)
		}
	}

	runs, err := s.ctrl.ListRuns(r.Context(), history.Filter{States: states, Limit: limit})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunsResponse{Runs: api.FromHistoryRuns(runs)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
