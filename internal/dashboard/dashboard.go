// Package dashboard serves the human-facing HTTP surface of ccmem: the
// kanban backlog, agent notifications, backlog analysis and read views of
// the work records.
//
// Every JSON reply carries "success"; failures add "error" and use the
// status of the failure class (404 missing, 409 constraint or conflict,
// 400 bad input, 500 otherwise).
package dashboard

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/metrics"
	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

//go:embed web/index.html
var webFS embed.FS

var indexTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

// Options tune the dashboard.
type Options struct {
	// BasePath mounts every route under a prefix such as "/ccmem".
	BasePath string
	// Project is the name shown in the page title and health reply.
	Project string
	Version string
}

// Server is the dashboard HTTP handler.
type Server struct {
	router  chi.Router
	store   *store.Store
	risks   *risk.Correlator
	metrics *metrics.Metrics
	opts    Options
	logger  *slog.Logger
}

// New builds the dashboard over s. m may be nil.
func New(s *store.Store, c *risk.Correlator, m *metrics.Metrics, opts Options) *Server {
	if opts.Project == "" {
		opts.Project = "ccmem"
	}
	srv := &Server{
		router:  chi.NewRouter(),
		store:   s,
		risks:   c,
		metrics: m,
		opts:    opts,
		logger:  logging.For("dashboard"),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.observe)

	if s.opts.BasePath == "" {
		s.mount(s.router)
		return
	}
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.opts.BasePath+"/", http.StatusFound)
	})
	s.router.Route(s.opts.BasePath, s.mount)
}

func (s *Server) mount(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/", s.handleIndex)

	r.Route("/api/backlog", func(r chi.Router) {
		r.Get("/", s.handleBacklog)
		r.Post("/", s.handleAddBacklog)
		r.Patch("/reorder", s.handleReorder)
		r.Patch("/{id}/priority", s.handlePriority)
		r.Post("/{id}/status", s.handleStatus)
	})
	r.Get("/api/dashboard", s.handleDashboard)

	r.Route("/api/prime", func(r chi.Router) {
		r.Get("/notifications", s.handleNotifications)
		r.Patch("/notifications/acknowledge", s.handleAcknowledge)
		r.Post("/analyze/{id}", s.handleAnalyze)
		r.Get("/analysis/{id}", s.handleAnalysis)
	})
	r.Post("/api/story/create-from-backlog", s.handleCreateFromBacklog)

	r.Get("/api/stories", s.handleStories)
	r.Get("/api/stories/{id}/tasks", s.handleStoryTasks)
	r.Get("/api/tasks/{id}", s.handleTask)
	r.Delete("/api/tasks/{id}", s.handleDeleteTask)
	r.Get("/api/landmines/{id}", s.handleLandmine)
	r.Get("/api/risks", s.handleRisks)
	r.Get("/api/export", s.handleExport)
}

// observe logs each request and counts it by route pattern and status.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(route, status)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"dur", time.Since(start), "remote", r.RemoteAddr)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTmpl.Execute(w, struct{ Title, BasePath string }{s.opts.Project, s.opts.BasePath})
	if err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"status":    "healthy",
		"project":   s.opts.Project,
		"version":   s.opts.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		body["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}
