package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Server exposes the agent over HTTP: one POST endpoint for the operation
// envelope, plus health and metrics.
type Server struct {
	agent  *Agent
	logger *zap.Logger
	srv    *http.Server
}

// NewServer builds the HTTP front for agent on addr. gatherer serves
// /metrics; pass the same registry the Metrics were registered on.
func NewServer(addr string, a *Agent, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{agent: a, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/agent", s.handleAgent)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler, for mounting in tests or an
// existing mux.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed after a
// clean Shutdown is filtered out.
func (s *Server) ListenAndServe() error {
	s.logger.Info("agent server listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.respond(w, http.StatusMethodNotAllowed, Response{
			Success:   false,
			Status:    "error",
			Message:   "method not allowed",
			ErrorCode: CodeInvalidRequest,
		})
		return
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respond(w, http.StatusOK, Response{
			Success:   false,
			Status:    "error",
			Message:   "malformed request: " + err.Error(),
			ErrorCode: CodeInvalidRequest,
		})
		return
	}

	s.respond(w, http.StatusOK, s.agent.Handle(r.Context(), req))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
