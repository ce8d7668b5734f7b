// Package server exposes the engine over HTTP: search and lookup endpoints,
// cache introspection and invalidation, dataset reload, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/internal/engine"
	"github.com/browniellc/emojitools/internal/history"
	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
	"github.com/browniellc/emojitools/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Reloader refreshes the dataset from its source. Satisfied by
// dataset.Loader.
type Reloader interface {
	Refresh(ctx context.Context) ([]emoji.Record, error)
}

// Handler serves the JSON API backed by one engine.
type Handler struct {
	engine   *engine.Engine
	loader   Reloader
	recorder *history.Recorder
	logger   *slog.Logger
}

// New builds a Handler. loader and rec may be nil; the dataset reload
// endpoint then responds 503 and searches are not recorded.
func New(eng *engine.Engine, loader Reloader, rec *history.Recorder) *Handler {
	return &Handler{
		engine:   eng,
		loader:   loader,
		recorder: rec,
		logger:   slog.Default().With("component", "api-handler"),
	}
}

type searchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []emoji.Record `json:"results"`
}

// Search handles GET /api/v1/search?q=...&exact=...&collection=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	opts := engine.SearchOptions{
		Collection: r.URL.Query().Get("collection"),
	}
	if v := r.URL.Query().Get("exact"); v != "" {
		exact, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "exact must be a boolean")
			return
		}
		opts.Exact = exact
	}

	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxLimit)
	}

	results, err := h.engine.Search(ctx, query, opts)
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}

	total := len(results)
	if total > limit {
		results = results[:limit]
	}
	log.Info("search completed",
		"query", query,
		"total", total,
		"returned", len(results),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if h.recorder != nil {
		h.recorder.Track(query, total)
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Count: total, Results: results})
}

// GetEmoji handles GET /api/v1/emoji/{character}
func (h *Handler) GetEmoji(w http.ResponseWriter, r *http.Request) {
	character := r.PathValue("character")
	rec, err := h.engine.GetByCharacter(character)
	if err != nil {
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Categories handles GET /api/v1/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.engine.Categories()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"count":      len(categories),
	})
}

// GetCategory handles GET /api/v1/categories/{category}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	records, err := h.engine.GetByCategory(category)
	if err != nil {
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"count":    len(records),
		"results":  records,
	})
}

// CacheStats handles GET /api/v1/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats":   h.engine.Stats(),
		"cache":   h.engine.CacheInfo(),
		"version": h.engine.Version(),
		"records": h.engine.Snapshot().Len(),
	})
}

type invalidateRequest struct {
	RebuildIndices bool `json:"rebuild_indices"`
}

// CacheInvalidate handles POST /api/v1/cache/invalidate. The body is an
// optional JSON object {"rebuild_indices": bool}.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.engine.ClearAll(req.RebuildIndices)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "invalidated",
		"rebuilt_indices": req.RebuildIndices,
	})
}

// StatsReset handles POST /api/v1/stats/reset. Prometheus series are
// monotonic and unaffected; only the engine counters reset.
func (h *Handler) StatsReset(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetStats()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// DatasetReload handles POST /api/v1/dataset/reload. It refreshes the
// dataset from the source and swaps in a new generation.
func (h *Handler) DatasetReload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if h.loader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "dataset loader not configured")
		return
	}

	records, err := h.loader.Refresh(r.Context())
	if err != nil {
		log.Error("dataset reload failed", "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), err.Error())
		return
	}

	snap := h.engine.Reload(records)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reloaded",
		"version": snap.Version,
		"records": snap.Len(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
