package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/awgman/awgman/pkg/httputil"
	"github.com/awgman/awgman/pkg/middleware"
	"github.com/awgman/awgman/pkg/observability"
	"github.com/awgman/awgman/pkg/provision"
	"github.com/awgman/awgman/pkg/store"
)

// Provisioner is the lifecycle manager surface the API layer depends on.
type Provisioner interface {
	CreateUser(ctx context.Context, id, name string) (store.User, string, error)
	GetUser(ctx context.Context, id string) (store.User, string, bool)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) []provision.UserSummary
	ServerStatus(ctx context.Context) provision.Status
}

// Server is the HTTP API server.
type Server struct {
	manager Provisioner
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Options configures the server.
type Options struct {
	// APIKey gates /api routes when non-empty.
	APIKey string
	// Logger defaults to an info-level JSON logger.
	Logger *observability.Logger
	// Metrics enables the /metrics endpoint and request instrumentation
	// when non-nil.
	Metrics *observability.Metrics
	// MaxBodyBytes bounds request bodies; defaults to 1 MiB.
	MaxBodyBytes int64
}

// NewServer creates the API server and sets up its routes.
func NewServer(manager Provisioner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		manager: manager,
		router:  mux.NewRouter(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options) {
	s.router.Use(
		mux.MiddlewareFunc(httputil.RequestIDMiddleware(s.logger)),
		mux.MiddlewareFunc(httputil.RecoveryMiddleware(s.logger)),
		mux.MiddlewareFunc(httputil.LoggingMiddleware()),
		mux.MiddlewareFunc(httputil.MaxBytesMiddleware(opts.MaxBodyBytes)),
	)
	if s.metrics != nil {
		s.router.Use(s.instrument)
	}

	// Liveness and metrics stay outside the shared-secret gate.
	s.router.HandleFunc("/health", s.health).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(middleware.NewAPIKeyMiddleware(opts.APIKey).Handler))

	api.HandleFunc("/users", s.createUser).Methods("POST")
	api.HandleFunc("/users", s.listUsers).Methods("GET")
	api.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	api.HandleFunc("/users/{id}", s.deleteUser).Methods("DELETE")
	api.HandleFunc("/server/status", s.serverStatus).Methods("GET")
}

// instrument counts and times requests using the route template as the
// path label so per-user URLs do not explode metric cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		s.metrics.InstrumentHandler(path, next).ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
