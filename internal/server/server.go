package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tubemindai/internal/app"
	"tubemindai/internal/otp"
	"tubemindai/internal/ratelimit"
	"tubemindai/internal/util"
	"tubemindai/pkg/domain"
	"tubemindai/pkg/store"
)

const maxJSONBody = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	AuthLimiter    *ratelimit.FixedWindowLimiter
	Logger         *slog.Logger
	MaxUploadBytes int64
}

// Server exposes the HTTP API consumed by the mobile client.
type Server struct {
	app            *app.App
	authLimiter    *ratelimit.FixedWindowLimiter
	logger         *slog.Logger
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: App is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		authLimiter:    cfg.AuthLimiter,
		logger:         logger,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	// auth (rate limited per client IP)
	s.mux.Handle("/api/auth/register", s.limited(s.onlyPost(s.handleRegister)))
	s.mux.Handle("/api/auth/verify-otp", s.limited(s.onlyPost(s.handleVerifyOTP)))
	s.mux.Handle("/api/auth/login", s.limited(s.onlyPost(s.handleLogin)))
	s.mux.Handle("/api/auth/forgot-password", s.limited(s.onlyPost(s.handleForgotPassword)))
	s.mux.Handle("/api/auth/forgot-password/verify-otp", s.limited(s.onlyPost(s.handleVerifyResetOTP)))
	s.mux.Handle("/api/auth/reset-password-simple", s.limited(s.onlyPost(s.handleResetPassword)))

	// videos and video chat
	s.mux.Handle("/api/video/generate", s.withUser(s.handleVideoGenerate))
	s.mux.Handle("/api/video", s.withUser(s.handleVideoList))
	s.mux.Handle("/api/video/", s.withUser(s.handleVideoPath))

	// pdfs and pdf chat
	s.mux.Handle("/api/pdf/upload", s.withUser(s.handlePDFUpload))
	s.mux.Handle("/api/pdf", s.withUser(s.handlePDFList))
	s.mux.Handle("/api/pdf/", s.withUser(s.handlePDFPath))

	// admin surface
	s.mux.Handle("/api/admin/stats", s.adminOnly(s.handleAdminStats))
	s.mux.Handle("/api/admin/users", s.adminOnly(s.handleAdminUsers))
	s.mux.Handle("/api/admin/users/", s.adminOnly(s.handleAdminUserPath))
	s.mux.Handle("/api/admin/videos", s.adminOnly(s.handleAdminVideos))
	s.mux.Handle("/api/admin/videos/", s.adminOnly(s.handleAdminVideoPath))
	s.mux.Handle("/api/admin/pdfs", s.adminOnly(s.handleAdminPDFs))
	s.mux.Handle("/api/admin/pdfs/", s.adminOnly(s.handleAdminPDFPath))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		user, ok, err := s.app.AuthenticateToken(token)
		if err != nil {
			s.logger.Error("authenticate token", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next userHandler) http.Handler {
	return s.withUser(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if !user.IsAdmin {
			s.logger.Warn("security_event", "event", "admin_access_denied",
				"user_id", user.ID, "path", r.URL.Path, "ip", util.ClientIP(r))
			writeError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next(w, r, user)
	})
}

// limited applies the fixed-window rate limit keyed by client IP.
func (s *Server) limited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authLimiter != nil && !s.authLimiter.Allow(util.ClientIP(r)) {
			s.logger.Warn("security_event", "event", "auth_rate_limited",
				"ip", util.ClientIP(r), "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onlyPost(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		next(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(dst)
}

// listOptions reads skip/limit/search/saved query parameters with clamping.
func listOptions(r *http.Request) store.ListOptions {
	q := r.URL.Query()
	opts := store.ListOptions{Limit: 20, Search: strings.TrimSpace(q.Get("search"))}
	if v, err := strconv.Atoi(q.Get("skip")); err == nil && v > 0 {
		opts.Skip = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts.Limit = min(v, 100)
	}
	if saved := q.Get("saved"); saved == "true" || saved == "1" {
		opts.SavedOnly = true
	}
	return opts
}

func pathID(raw string) (uint, bool) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not_found", "not found")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// writeAppError translates application sentinels into HTTP responses.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, app.ErrInvalidOTP), errors.Is(err, app.ErrExpiredOTP):
		return http.StatusBadRequest, "invalid_otp"
	case errors.Is(err, app.ErrResetTokenInvalid), errors.Is(err, app.ErrPasswordMismatch):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, app.ErrSelfDeactivation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, app.ErrUserNotVerified):
		return http.StatusForbidden, "email_not_verified"
	case errors.Is(err, app.ErrAccountInactive):
		return http.StatusForbidden, "account_inactive"
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, app.ErrResourceNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, app.ErrEmailAlreadyExists):
		return http.StatusConflict, "email_exists"
	case errors.Is(err, app.ErrGenerationInFlight):
		return http.StatusConflict, "generation_in_flight"
	case errors.Is(err, otp.ErrSendRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, app.ErrGenerationFailed):
		return http.StatusBadGateway, "generation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
