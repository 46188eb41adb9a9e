package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/neooriginal/FSCS/internal/chat"
	"github.com/neooriginal/FSCS/internal/finetune"
	"github.com/neooriginal/FSCS/internal/metrics"
	"github.com/neooriginal/FSCS/internal/session"
	"github.com/neooriginal/FSCS/internal/userdata"
)

const apiVersion = "1.0.0"

type Options struct {
	Port           int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

type Deps struct {
	Chat      *chat.Service
	FineTune  *finetune.Orchestrator
	Workspace *userdata.Workspace
	Sessions  session.SessionStore
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Server struct {
	router  *chi.Mux
	http    *http.Server
	opts    Options
	chat    *chat.Service
	tuning  *finetune.Orchestrator
	files   *userdata.Workspace
	store   session.SessionStore
	metrics *metrics.Metrics
	limiter *rateLimiter
	logger  *slog.Logger
}

func NewServer(opts Options, deps Deps) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 50 << 20
	}

	router := chi.NewRouter()
	s := &Server{
		router:  router,
		opts:    opts,
		chat:    deps.Chat,
		tuning:  deps.FineTune,
		files:   deps.Workspace,
		store:   deps.Sessions,
		metrics: deps.Metrics,
		limiter: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		logger:  deps.Logger,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(s.observe)

	router.Get("/health", s.health)
	router.Handle("/metrics", s.metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(s.requireCredential)
		r.Use(s.rateLimit)
		r.Use(s.limitBody)

		r.Route("/api", func(r chi.Router) {
			r.Get("/status", s.status)
			r.Get("/models", s.listModels)
			r.Post("/chat", s.chatMessage)
		})

		r.Route("/fine-tuning", func(r chi.Router) {
			r.Post("/", s.submitJob)
			r.Get("/checkFiles", s.checkFiles)
			r.Post("/uploadFiles", s.uploadFiles)
			r.Get("/models", s.fineTunedModels)
			r.Post("/askAI", s.askAI)
			r.Delete("/deleteUserData", s.deleteUserData)
			r.Get("/{jobID}", s.jobStatus)
		})
	})

	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "online",
		"message":       "API is functioning correctly",
		"version":       apiVersion,
		"authenticated": true,
		"user_id":       userIDFrom(r.Context()),
	})
}
