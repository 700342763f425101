package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/brainnova/brainnova-score/internal/remote"
	"github.com/brainnova/brainnova-score/internal/scoring"
)

// Resolver produces a score through the remote-then-local resolution.
type Resolver interface {
	Resolve(ctx context.Context, req scoring.Request) (*scoring.ScoreResult, error)
}

// LocalScorer computes scores and exposes the hierarchy from primary data.
type LocalScorer interface {
	Compute(ctx context.Context, req scoring.Request) (*scoring.ScoreResult, error)
	Hierarchy(ctx context.Context) ([]scoring.DimensionNode, error)
}

type ScoreHandler struct {
	resolver Resolver
	local    LocalScorer
	logger   *slog.Logger
}

func NewScoreHandler(r Resolver, l LocalScorer, logger *slog.Logger) *ScoreHandler {
	return &ScoreHandler{resolver: r, local: l, logger: logger}
}

// Resolve handles POST /api/v1/brainnova-score
func (h *ScoreHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScoreRequest(w, r)
	if !ok {
		return
	}
	result, err := h.resolver.Resolve(r.Context(), req)
	h.respond(w, result, err)
}

// Local handles POST /api/v1/brainnova-score/local, skipping any remote
// scorer. Peers point their remote URL here to use this node as authority.
func (h *ScoreHandler) Local(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScoreRequest(w, r)
	if !ok {
		return
	}
	result, err := h.local.Compute(r.Context(), req)
	h.respond(w, result, err)
}

// Hierarchy handles GET /api/v1/hierarchy
func (h *ScoreHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := h.local.Hierarchy(r.Context())
	if err != nil {
		h.logger.Error("failed to load hierarchy", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load hierarchy")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func decodeScoreRequest(w http.ResponseWriter, r *http.Request) (scoring.Request, bool) {
	var req scoring.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "pais and a positive periodo are required")
		return req, false
	}
	return req, true
}

func (h *ScoreHandler) respond(w http.ResponseWriter, result *scoring.ScoreResult, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, remote.EncodeResponse(result))
	case errors.Is(err, scoring.ErrNoDataForFilters):
		writeError(w, http.StatusNotFound, "insufficient data to compute the score for these filters")
	case errors.Is(err, scoring.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "pais and a positive periodo are required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error("score resolution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute score")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
