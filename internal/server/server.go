// Package server provides the HTTP REST API for verifications, credit ledgers, notifications
// and profiles.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/veridate/veridate/internal/logger"
	"github.com/veridate/veridate/internal/notify"
	"github.com/veridate/veridate/internal/server/middleware"
	"github.com/veridate/veridate/internal/server/ratelimit"
	"github.com/veridate/veridate/internal/store"
	"github.com/veridate/veridate/internal/types"
	"github.com/veridate/veridate/internal/verification"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultKeepAlive       = 25 * time.Second
	maxBodyBytes           = 1 << 20
)

// Options holds listener settings.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// KeepAlive is the interval between comment frames on notification streams.
	KeepAlive time.Duration
}

// Deps are the collaborators the server is built from. Bus and Limiter are optional.
type Deps struct {
	Store   store.Store
	Emitter *notify.Emitter
	Hub     *notify.Hub
	Bus     *notify.RedisBus
	JWT     *JWTService
	Limiter *ratelimit.Limiter
	Log     *logger.Logger
}

// Server represents the HTTP server
type Server struct {
	opts    Options
	store   store.Store
	engine  *verification.Engine
	reader  *notify.Reader
	emitter *notify.Emitter
	hub     *notify.Hub
	bus     *notify.RedisBus
	jwt     *JWTService
	limiter *ratelimit.Limiter
	log     *logger.Logger

	handler    http.Handler
	httpServer *http.Server

	closeOnce sync.Once
	closing   chan struct{}
}

// New wires the routes and middleware.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("server requires a store")
	}
	if deps.Emitter == nil || deps.Hub == nil {
		return nil, fmt.Errorf("server requires a notification emitter and hub")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("server requires a JWT service")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}

	s := &Server{
		opts:    opts,
		store:   deps.Store,
		engine:  verification.NewEngine(deps.Store, deps.Log),
		reader:  notify.NewReader(deps.Store),
		emitter: deps.Emitter,
		hub:     deps.Hub,
		bus:     deps.Bus,
		jwt:     deps.JWT,
		limiter: deps.Limiter,
		log:     deps.Log.With("component", "server"),
		closing: make(chan struct{}),
	}

	auth := middleware.AuthMiddleware(s.jwt.AsTokenValidator())
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Verification and ledger
	mux.Handle("POST /verify/profiles/{targetUserId}/verify/education/{eduId}", protect(s.handleVerify(types.CategoryEducation, "eduId")))
	mux.Handle("POST /verify/profiles/{targetUserId}/verify/experience/{expId}", protect(s.handleVerify(types.CategoryExperience, "expId")))
	mux.Handle("GET /verify/credits", protect(s.handleGetCredits))

	// Notifications
	mux.Handle("GET /notifications", protect(s.handleListNotifications))
	mux.Handle("GET /notifications/stream", protect(s.handleStreamNotifications))
	mux.Handle("PATCH /notifications/read-all", protect(s.handleMarkAllNotificationsRead))
	mux.Handle("PATCH /notifications/{id}/read", protect(s.handleMarkNotificationRead))

	// Profiles
	mux.Handle("GET /profiles/me", protect(s.handleGetMyProfile))
	mux.Handle("GET /profiles/{userId}", protect(s.handleGetProfile))
	mux.Handle("PUT /profiles/me", protect(s.handleUpsertProfile))
	mux.Handle("POST /profiles/me/education", protect(s.handleAddEducation))
	mux.Handle("POST /profiles/me/experience", protect(s.handleAddExperience))
	mux.Handle("PUT /profiles/me/experience/{expId}/line-manager", protect(s.handleSetLineManager))

	s.handler = s.withRequestID(s.withLogging(s.withRateLimit(s.withCORS(mux))))
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: notification streams stay open.
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully. When a Redis bus is
// configured its messages are fed to the local hub for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.bus != nil {
		err := s.bus.Forward(gctx, func(n types.Notification) {
			_ = s.hub.Publish(gctx, n)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to notification bus: %w", err)
		}
	}

	g.Go(func() error {
		s.log.Info("server starting", "addr", s.opts.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")
		s.closeStreams()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.limiter.Stop()
	s.log.Info("server stopped")
	return err
}

// closeStreams ends open notification streams so Shutdown does not wait on them.
func (s *Server) closeStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their per-endpoint budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.limiter.Allow(clientIP(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())+1))
			}
			s.log.Warn("rate limit exceeded",
				"request_id", requestIDFrom(r.Context()),
				"client", clientIP(r),
				"path", r.URL.Path,
				"limit", info.Limit,
			)
			s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness and whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.log.Warn("health check failed", "error", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"message": message})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &types.ErrValidation{Field: "body", Message: "invalid JSON body"}
	}
	return nil
}

// callerID returns the authenticated user, writing a 401 when absent.
func (s *Server) callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// clientIP uses the connection's remote address; forwarded headers are not trusted.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}
