package http

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/security"
	"bluecollar-backend/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags the request context with the caller's X-Request-ID or a
// fresh one, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Recoverer turns a handler panic into a 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "Handler panic", "panic", rec, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Authenticator resolves the bearer token into a principal and enforces the
// role policy of the matched route.
func Authenticator(auth service.AuthService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var name string
			if route := mux.CurrentRoute(r); route != nil {
				name = route.GetName()
			}
			policy := config.GetRoutePolicy(name)
			if policy.Public {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authorization token is not provided")
				return
			}
			principal, err := auth.ResolvePrincipal(r.Context(), token)
			if err != nil {
				if errors.Is(err, security.ErrInvalidToken) || errors.Is(err, security.ErrExpiredToken) {
					writeError(w, http.StatusUnauthorized, codeInvalidToken, err.Error())
					return
				}
				writeServiceError(w, r, err)
				return
			}
			if !policy.Allows(string(principal.Role)) {
				writeError(w, http.StatusForbidden, codeForbidden, "role "+string(principal.Role)+" may not call "+name)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		token := strings.TrimSpace(h[7:])
		return token, token != ""
	}
	return "", false
}
