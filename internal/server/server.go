package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/browniellc/emojitools/pkg/config"
	"github.com/browniellc/emojitools/pkg/health"
	"github.com/browniellc/emojitools/pkg/metrics"
	"github.com/browniellc/emojitools/pkg/middleware"
)

// Server is the assembled HTTP API server.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewServer wires routes and middleware into an http.Server. m may be nil;
// the metrics endpoint and middleware are then omitted.
func NewServer(cfg config.ServerConfig, h *Handler, checker *health.Checker, m *metrics.Metrics) *Server {
	admin := middleware.AdminKey(cfg.AdminKey)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/emoji/{character}", h.GetEmoji)
	mux.HandleFunc("GET /api/v1/categories", h.Categories)
	mux.HandleFunc("GET /api/v1/categories/{category}", h.GetCategory)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("POST /api/v1/cache/invalidate", admin(http.HandlerFunc(h.CacheInvalidate)))
	mux.Handle("POST /api/v1/stats/reset", admin(http.HandlerFunc(h.StatsReset)))
	mux.Handle("POST /api/v1/dataset/reload", admin(http.HandlerFunc(h.DatasetReload)))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	var chain http.Handler = mux
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RateLimit(cfg.RateLimit, cfg.RateBurst)(chain)
	chain = middleware.Timeout(cfg.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      chain,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          slog.Default().With("component", "api-server"),
	}
}

// Handler returns the full middleware chain, for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
	}()

	s.logger.Info("api server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("api server stopped")
	return nil
}
