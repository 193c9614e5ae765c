// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/answer"
	"github.com/taxdesk/answer-engine/internal/evidence"
	"github.com/taxdesk/answer-engine/internal/metrics"
	"github.com/taxdesk/answer-engine/internal/model"
)

// PackBuilder builds evidence packs. Satisfied by evidence.Builder.
type PackBuilder interface {
	Build(ctx context.Context, query string, opts evidence.BuildOptions) (*model.EvidencePack, error)
}

// Answerer runs the answer stage. Satisfied by answer.Service.
type Answerer interface {
	Answer(ctx context.Context, query, sessionID string, pack *model.EvidencePack) (*answer.Result, error)
}

// ConflictResolver scores draft disagreement. Satisfied by
// conflict.Resolver.
type ConflictResolver interface {
	Resolve(ctx context.Context, draftWithEvidence, draftWithoutEvidence string, pack *model.EvidencePack) (*model.ConflictAnalysis, error)
}

// Server routes HTTP requests into the pipeline.
type Server struct {
	builder  PackBuilder
	answerer Answerer
	resolver ConflictResolver
	sink     metrics.Sink
}

// New builds a Server over the pipeline components.
func New(builder PackBuilder, answerer Answerer, resolver ConflictResolver, sink metrics.Sink) *Server {
	return &Server{builder: builder, answerer: answerer, resolver: resolver, sink: sink}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/evidence-pack", s.handleEvidencePack)
		r.Post("/answer", s.handleAnswer)
		r.Post("/conflict", s.handleConflict)
		r.Get("/metrics", s.handleMetrics)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type evidencePackRequest struct {
	Query        string `json:"query"`
	ForceRefresh bool   `json:"force_refresh"`
	FastMode     bool   `json:"fast_mode"`
}

func (s *Server) handleEvidencePack(w http.ResponseWriter, r *http.Request) {
	var req evidencePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required", "")
		return
	}

	pack, err := s.builder.Build(r.Context(), req.Query, evidence.BuildOptions{
		ForceRefresh: req.ForceRefresh,
		Fast:         req.FastMode,
	})
	if err != nil {
		zap.L().Error("evidence pack build failed", zap.String("query", req.Query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "evidence pack build failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"evidence_pack": pack,
		"metadata":      pack.Metadata,
	})
}

type answerRequest struct {
	Query        string              `json:"query"`
	EvidencePack *model.EvidencePack `json:"evidence_pack,omitempty"`
	SessionID    string              `json:"session_id,omitempty"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required", "")
		return
	}

	pack := req.EvidencePack
	if pack == nil {
		built, err := s.builder.Build(r.Context(), req.Query, evidence.BuildOptions{})
		if err != nil {
			zap.L().Error("evidence pack build failed", zap.String("query", req.Query), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "evidence pack build failed", err.Error())
			return
		}
		pack = built
	}

	result, err := s.answerer.Answer(r.Context(), req.Query, req.SessionID, pack)
	if err != nil {
		zap.L().Error("answer failed", zap.String("query", req.Query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "answer assembly failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"answer": result.Answer.Sections,
		"metadata": map[string]any{
			"query":              req.Query,
			"latency_ms":         result.LatencyMS,
			"conflict_score":     result.Conflict.ConflictScore,
			"decision_mode":      result.Answer.Decision,
			"evidence_count":     len(pack.Evidence),
			"whitelist_coverage": pack.Metadata.WhitelistCoverage,
		},
	})
}

type conflictRequest struct {
	DraftA       string              `json:"draft_a"`
	DraftB       string              `json:"draft_b"`
	EvidencePack *model.EvidencePack `json:"evidence_pack,omitempty"`
	Query        string              `json:"query,omitempty"`
}

func (s *Server) handleConflict(w http.ResponseWriter, r *http.Request) {
	var req conflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.DraftA) == "" || strings.TrimSpace(req.DraftB) == "" {
		respondError(w, http.StatusBadRequest, "both draft_a and draft_b are required", "")
		return
	}

	analysis, err := s.resolver.Resolve(r.Context(), req.DraftA, req.DraftB, req.EvidencePack)
	if err != nil {
		zap.L().Error("conflict resolution failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "conflict resolution failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	lookback := 24 * time.Hour
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			respondError(w, http.StatusBadRequest, "hours must be a positive integer", "")
			return
		}
		lookback = time.Duration(hours) * time.Hour
	}

	snap, err := s.sink.Snapshot(r.Context(), lookback)
	if err != nil {
		zap.L().Error("metrics snapshot failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "metrics snapshot failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("response encoding failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg, details string) {
	respondJSON(w, status, map[string]string{"error": msg, "details": details})
}
