// Package api serves the search, chat, transcription, speech and promotion
// endpoints over HTTP, and provides a client for them.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/metrics"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/service"
)

// UserHeader carries the authenticated user ID, set by the auth proxy in
// front of the server.
const UserHeader = "X-User-ID"

// Matcher finds promotions relevant to a query.
type Matcher interface {
	Match(ctx context.Context, query string, promotions []model.Promotion) (model.RelevanceResult, error)
}

// Responder answers a question over a promotion list.
type Responder interface {
	Answer(ctx context.Context, message string, promotions []model.Promotion) (string, error)
}

// Options configures a Server.
type Options struct {
	Matcher        Matcher
	Responder      Responder
	Audio          llm.AudioClient
	Store          service.PromotionStore
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxBodySize    int64
	MaxAudioSize   int64
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	matcher        Matcher
	responder      Responder
	audio          llm.AudioClient
	store          service.PromotionStore
	metrics        *metrics.Metrics
	logger         *slog.Logger
	allowedOrigins []string
	maxBodySize    int64
	maxAudioSize   int64
}

// NewServer creates a server from opts.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 10 << 20 // 10MB default
	}
	if opts.MaxAudioSize <= 0 {
		opts.MaxAudioSize = 25 << 20 // provider upload limit
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	return &Server{
		matcher:        opts.Matcher,
		responder:      opts.Responder,
		audio:          opts.Audio,
		store:          opts.Store,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		allowedOrigins: opts.AllowedOrigins,
		maxBodySize:    opts.MaxBodySize,
		maxAudioSize:   opts.MaxAudioSize,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader, chimw.RequestIDHeader},
		ExposedHeaders:   []string{chimw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/chat", s.Chat)
		r.Post("/transcribe", s.Transcribe)
		r.Post("/speak", s.Speak)

		r.Route("/promotions", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", s.ListPromotions)
			r.Post("/", s.UpsertPromotions)
			r.Delete("/", s.DeletePromotion)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

// requestLogger logs every request with slog and records request metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, status, elapsed)
		}
		s.logger.Info("HTTP request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", chimw.GetReqID(r.Context()))
	})
}

type userKey struct{}

// requireUser rejects requests without a user header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			respondError(w, http.StatusUnauthorized, UserHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}
