package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/metrics"
	"github.com/hpungsan/dose/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// ServerConfig holds what the web UI needs besides the engine.
type ServerConfig struct {
	Version string
	Bind    string
	Port    int
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewServer creates and configures the HTTP server for the Dose web UI.
func NewServer(engine *ops.Engine, sc ServerConfig) *http.Server {
	if sc.Logger == nil {
		sc.Logger = zap.NewNop()
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	h := &Handlers{
		engine:   engine,
		renderer: NewRenderer(templateSub, sc.Version, sc.Logger),
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", sc.Bind, sc.Port),
		Handler:           newRouter(h, staticSub, sc.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newRouter(h *Handlers, static fs.FS, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/today", http.StatusFound)
	})
	r.Get("/today", h.HandleToday)
	r.Get("/history", h.HandleHistory)

	r.Route("/medications", func(mr chi.Router) {
		mr.Get("/", h.HandleList)
		mr.Post("/", h.HandleCreate)
		mr.Get("/{id}", h.HandleDetail)
		mr.Post("/{id}", h.HandleUpdate)
		mr.Delete("/{id}", h.HandleDelete)
		mr.Post("/{id}/status", h.HandleMark)
	})

	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("dose UI running", zap.String("url", "http://"+srv.Addr))
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
