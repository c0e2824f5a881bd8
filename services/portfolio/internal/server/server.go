package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"portfolioai/internal/ratelimit"
	"portfolioai/internal/util"
	"portfolioai/pkg/domain"
	"portfolioai/pkg/storage"
	"portfolioai/services/portfolio/internal/app"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxJSONBodyBytes      = 8 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App  *app.App
	Host string
	Port string
	// Limiters are optional; nil disables limiting for that route.
	SignupLimiter      ratelimit.Limiter
	LoginLimiter       ratelimit.Limiter
	TrustedProxies     *util.TrustedProxies
	CORSAllowedOrigins []string
	MaxUploadBytes     int64
}

// Server exposes the portfolio HTTP API.
type Server struct {
	app            *app.App
	host           string
	port           string
	mux            *http.ServeMux
	signupLimiter  ratelimit.Limiter
	loginLimiter   ratelimit.Limiter
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	s := &Server{
		app:            cfg.App,
		host:           cfg.Host,
		port:           cfg.Port,
		mux:            http.NewServeMux(),
		signupLimiter:  cfg.SignupLimiter,
		loginLimiter:   cfg.LoginLimiter,
		trustedProxies: cfg.TrustedProxies,
		corsOrigins:    cfg.CORSAllowedOrigins,
		maxUploadBytes: maxUpload,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigins)(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/user", s.authenticated(s.handleCurrentUser))

	// chats & publishing
	s.mux.Handle("/api/chats", s.authenticated(s.handleChats))
	s.mux.Handle("/api/chats/", s.authenticated(s.handleChatByID))
	s.mux.Handle("/api/deploy", s.authenticated(s.handleDeploy))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Server is running on http://%s:%s\n", s.host, s.port)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

// authenticated resolves the bearer token to a stored user on every call.
func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "portfolio.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		user, err := s.app.UserFromToken(r.Context(), token)
		if err != nil {
			s.audit(r, "portfolio.authorize", "fail", "reason", err.Error())
			s.writeAppError(w, r, err)
			return
		}
		ctx := util.ContextWithLogger(r.Context(), util.LoggerFromContext(r.Context()).With("user_id", user.ID))
		next(w, r.WithContext(ctx), user)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// writeAppError maps workflow errors onto HTTP statuses. Server-side
// failures are logged with their cause; the client only sees the category.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrMissingFields):
		return http.StatusBadRequest, "missing required fields"
	case errors.Is(err, app.ErrWeakPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, app.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, app.ErrChatForbidden):
		return http.StatusForbidden, "you do not have access to this chat"
	case errors.Is(err, app.ErrChatNotFound):
		return http.StatusNotFound, "chat not found"
	case errors.Is(err, app.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, app.ErrEmailExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, app.ErrGenerationFailed):
		return http.StatusInternalServerError, "failed to generate response"
	case errors.Is(err, app.ErrResumeUpload):
		return http.StatusInternalServerError, "failed to upload resume"
	case errors.Is(err, app.ErrResumeFetch):
		return http.StatusInternalServerError, "failed to fetch resume"
	case errors.Is(err, app.ErrPublishFailed):
		return http.StatusInternalServerError, "failed to deploy page"
	case errors.Is(err, storage.ErrMalformedLocator):
		return http.StatusInternalServerError, "invalid resume location"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	ok, retryAfter := limiter.Allow(r.Context(), key)
	if ok {
		return true
	}
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	level := slog.LevelWarn
	if outcome == "success" {
		level = slog.LevelInfo
	}
	util.LoggerFromContext(r.Context()).Log(r.Context(), level, "security_event", logAttrs...)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
