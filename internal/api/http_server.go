package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"
	"roombook/internal/metrics"
	"roombook/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 * 1024

// Services are the application services the transports call into.
type Services struct {
	Booking *service.BookingService
	Catalog *service.CatalogService
	Users   *service.UserService
	// Quota backs the cross-instance write limit; nil disables it.
	Quota domain.RateLimitStore
	// Checks are run by /readyz.
	Checks map[string]func(context.Context) error
}

// HTTPServer exposes the booking API over HTTP.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	auth    *Authenticator
	limiter *rateLimiter
	quota   *writeQuota
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, auth *Authenticator, logger *zerolog.Logger) *HTTPServer {
	l := logger.With().Str("component", "http").Logger()
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		auth:    auth,
		limiter: newRateLimiter(cfg.RateLimit),
		quota:   newWriteQuota(svc.Quota, cfg.RateLimit),
		logger:  &l,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(metricsMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	origins := s.cfg.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", s.auth.apiKeyHeader(), s.auth.extraHeader(), userEmailHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.rateLimit)

		r.Route("/reservations", func(r chi.Router) {
			r.With(s.writeLimit).Post("/", s.handleCreateReservation)
			r.Post("/validate", s.handleValidateReservation)
			r.Get("/{id}", s.handleGetReservation)
			r.With(s.writeLimit).Patch("/{id}", s.handleUpdateReservation)
			r.With(s.writeLimit).Delete("/{id}", s.handleDeleteReservation)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.With(requireAdmin).Post("/", s.handleCreateRoom)
			r.Get("/{id}", s.handleGetRoom)
			r.Get("/{id}/reservations", s.handleRoomReservations)
			r.With(requireAdmin).Patch("/{id}", s.handleUpdateRoom)
			r.With(requireAdmin).Delete("/{id}", s.handleDeleteRoom)
		})

		r.Route("/timeslots", func(r chi.Router) {
			r.Get("/", s.handleListTimeSlots)
			r.With(requireAdmin).Post("/", s.handleCreateTimeSlot)
			r.Get("/{id}", s.handleGetTimeSlot)
			r.With(requireAdmin).Delete("/{id}", s.handleDeleteTimeSlot)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(requireAdmin).Get("/", s.handleListUsers)
			r.With(requireAdmin).Post("/", s.handleCreateUser)
			r.Get("/{key}", s.handleGetUser)
			r.With(requireAdmin).Delete("/{key}", s.handleDeleteUser)
		})
	})

	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	result := make(map[string]string, len(s.svc.Checks))
	code := http.StatusOK
	for name, check := range s.svc.Checks {
		if err := check(ctx); err != nil {
			result[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}
	writeJSON(w, code, map[string]any{"checks": result})
}

// authenticate resolves the caller and stores the identity in the context.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		get := func(name string) string { return strings.TrimSpace(r.Header.Get(name)) }
		id, err := s.auth.Authenticate(r.Context(), get)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(s.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) writeLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.quota.Allow(r.Context(), s.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "write quota exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return s.auth.ClientKey(func(name string) string { return strings.TrimSpace(r.Header.Get(name)) }, host)
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, _ := IdentityFrom(r.Context()); !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", errPermissionDenied.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request.
func requestLogger(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("duration", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// metricsMiddleware labels requests by route pattern to keep cardinality low.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		metrics.ObserveHTTP(route, strconv.Itoa(code), time.Since(start).Seconds())
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return invalidInput("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidInput("invalid %s %q", name, chi.URLParam(r, name))
	}
	return id, nil
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	if e.HTTPStatus >= http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeError(w, e.HTTPStatus, e.Code, e.Message)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "code": code})
}
