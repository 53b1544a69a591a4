package server

import (
	"context"
	"net/http"
	"time"

	"quillboard/internal/auth"
	"quillboard/internal/service"
	"quillboard/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	articles *service.ArticleService
	store    store.Store
	queue    store.ImportQueue
	sessions *auth.JWTManager
	logger   *zap.Logger
	views    *views
	router   *mux.Router
	server   *http.Server
}

// NewServer wires the route table. queue may be nil, which disables imports.
func NewServer(articles *service.ArticleService, st store.Store, queue store.ImportQueue, sessions *auth.JWTManager, logger *zap.Logger) *Server {
	s := &Server{
		articles: articles,
		store:    st,
		queue:    queue,
		sessions: sessions,
		logger:   logger,
		views:    loadViews(),
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestID, s.logRequests, recordMetrics, s.sessions.Middleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Fixed paths first: mux matches in registration order
	s.router.HandleFunc("/articles", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/articles/create", s.handleCreate).Methods("GET")
	s.router.Handle("/articles", s.requireUser(s.handleStore)).Methods("POST")
	if s.queue != nil {
		s.router.Handle("/articles/import", s.requireUser(s.handleImport)).Methods("POST")
	}

	s.router.HandleFunc("/articles/{id}", s.handleShow).Methods("GET")
	s.router.HandleFunc("/articles/{id}/edit", s.handleEdit).Methods("GET")
	s.router.Handle("/articles/{id}", s.requireUser(s.handleUpdate)).Methods("PUT", "PATCH", "POST")
	s.router.Handle("/articles/{id}", s.requireUser(s.handleDelete)).Methods("DELETE")

	s.router.Handle("/", http.RedirectHandler("/articles", http.StatusSeeOther)).Methods("GET")
}

// Handler returns the full request pipeline, method override included.
func (s *Server) Handler() http.Handler {
	return methodOverride(s.router)
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
