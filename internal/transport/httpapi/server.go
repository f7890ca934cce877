// Package httpapi exposes the audit pipeline over HTTP: query
// submission, health and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/domain/state"
	"github.com/scranton-labs/auditdex/internal/metrics"
	"github.com/scranton-labs/auditdex/internal/usecase/evidence"
	healthuc "github.com/scranton-labs/auditdex/internal/usecase/health"
	"github.com/scranton-labs/auditdex/internal/usecase/pipeline"
)

const maxQueryLen = 4096

// Server is the HTTP API server.
type Server struct {
	pipeline *pipeline.Service
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(p *pipeline.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{pipeline: p, health: health, logger: logger}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/v1/query", s.RunQuery)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the result of one pipeline run.
type QueryResponse struct {
	QueryID         string              `json:"query_id"`
	Query           string              `json:"query"`
	QueryType       domain.QueryType    `json:"query_type"`
	Entities        []string            `json:"entities,omitempty"`
	Answer          string              `json:"answer"`
	EvidenceSummary string              `json:"evidence_summary,omitempty"`
	Stats           evidence.Stats      `json:"stats"`
	FraudAlerts     []domain.FraudAlert `json:"fraud_alerts,omitempty"`
	StagesVisited   []string            `json:"stages_visited"`
	Warning         string              `json:"warning,omitempty"`
}

// RunQuery handles POST /v1/query.
func (s *Server) RunQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}
	if len(query) > maxQueryLen {
		writeError(w, http.StatusBadRequest, "validation_failed", "query too long")
		return
	}

	queryID := uuid.NewString()
	st, err := s.pipeline.Run(r.Context(), query, nil)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stateToResponse(queryID, st))
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func stateToResponse(queryID string, st state.SharedState) QueryResponse {
	stats := evidence.Build(st).Stats
	return QueryResponse{
		QueryID:         queryID,
		Query:           st.Query,
		QueryType:       st.QueryType,
		Entities:        st.Entities,
		Answer:          st.FinalAnswer,
		EvidenceSummary: st.EvidenceSummary,
		Stats:           stats,
		FraudAlerts:     st.FraudAlerts,
		StagesVisited:   st.NodesVisited,
		Warning:         st.Err,
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))

	switch {
	case errors.Is(err, context.Canceled):
		writeError(w, statusClientClosedRequest, "canceled", "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "query timed out")
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusInternalServerError, "configuration_error", domain.ErrConfiguration.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// statusClientClosedRequest is the nginx convention for a canceled request.
const statusClientClosedRequest = 499

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
