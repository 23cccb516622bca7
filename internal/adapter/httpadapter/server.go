// Package httpadapter serves the JSON page endpoints of the web client,
// plus health, readiness and metrics routes.
package httpadapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jonboulle/clockwork"
	"github.com/machintel/machintel-service/internal/adapter/backend"
	"github.com/machintel/machintel-service/internal/domain"
	"github.com/machintel/machintel-service/internal/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"
)

// Backend is the subset of the analytics backend used by the page handlers.
type Backend interface {
	Register(ctx context.Context, in backend.RegisterRequest) (domain.User, error)
	Login(ctx context.Context, email, password string) (backend.TokenPair, error)
	LoginAsGuest(ctx context.Context) (backend.GuestSession, error)
	Refresh(ctx context.Context, refresh string) (backend.TokenPair, error)
	Logout(ctx context.Context, creds domain.Credentials, refresh string) error

	ListDatasets(ctx context.Context, creds domain.Credentials) ([]domain.Dataset, error)
	GetDataset(ctx context.Context, creds domain.Credentials, id int64) (domain.Dataset, error)
	DatasetStats(ctx context.Context, creds domain.Credentials, id int64) (domain.DatasetStats, error)
	DeleteDataset(ctx context.Context, creds domain.Credentials, id int64) error
	UploadDataset(ctx context.Context, creds domain.Credentials, filename string, r io.Reader) (domain.Dataset, error)

	ListPredictions(ctx context.Context, creds domain.Credentials) ([]domain.Prediction, error)
	ListPredictionsByDataset(ctx context.Context, creds domain.Credentials, datasetID int64) ([]domain.Prediction, error)
	GetPrediction(ctx context.Context, creds domain.Credentials, id int64) (domain.Prediction, error)

	ListInsights(ctx context.Context, creds domain.Credentials) ([]domain.Insight, error)
	ListInsightsByDataset(ctx context.Context, creds domain.Credentials, datasetID int64) ([]domain.Insight, error)
	GetInsight(ctx context.Context, creds domain.Credentials, id int64) (domain.Insight, error)
	GenerateInsights(ctx context.Context, creds domain.Credentials, datasetIDs []int64) (backend.GenerateResult, error)
	InsightTaskStatus(ctx context.Context, creds domain.Credentials, taskID string) (backend.TaskStatus, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	Backend         Backend
	Sessions        *session.Store
	Ready           sharedobs.ReadinessChecker
	Logger          *slog.Logger
	Clock           clockwork.Clock
	SessionTTL      time.Duration
	GuestSessionTTL time.Duration
	CookieSecure    bool
	AllowedOrigins  []string
	AuthRateLimit   int // requests per minute per IP on the auth routes
}

// Server exposes the page endpoints and the health, readiness and metrics
// routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	backend   Backend
	sessions  *session.Store
	refreshes singleflight.Group
	clock     clockwork.Clock

	sessionTTL      time.Duration
	guestSessionTTL time.Duration
	cookieSecure    bool
}

// NewServer builds the router and the underlying http.Server.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 20
	}

	s := &Server{
		logger:          opts.Logger,
		backend:         opts.Backend,
		sessions:        opts.Sessions,
		clock:           opts.Clock,
		sessionTTL:      opts.SessionTTL,
		guestSessionTTL: opts.GuestSessionTTL,
		cookieSecure:    opts.CookieSecure,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(opts.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(opts.AuthRateLimit, time.Minute))
		r.Post("/login", s.handleLogin)
		r.Post("/login/guest", s.handleGuestLogin)
		r.Post("/register", s.handleRegister)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.loadSession)
		r.Post("/logout", s.handleLogout)
		r.Get("/", s.handleLanding)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/datasets", s.handleListDatasets)
			r.Get("/datasets/{id}", s.handleDataset)
			r.Delete("/datasets/{id}", s.handleDeleteDataset)
			r.Post("/upload", s.handleUpload)
			r.Get("/predictions", s.handleListPredictions)
			r.Get("/predictions/{id}", s.handlePrediction)

			r.Route("/recommendations", func(r chi.Router) {
				r.Use(requireRegistered)
				r.Get("/", s.handleListRecommendations)
				r.Post("/", s.handleGenerateRecommendations)
				r.Get("/tasks/{taskID}", s.handleRecommendationTask)
				r.Get("/{id}", s.handleRecommendation)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "page not found: "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
