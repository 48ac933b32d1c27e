package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type ctxKey string

const (
	userIDKey     ctxKey = "user_id"
	credentialKey ctxKey = "credential"

	HeaderUserID = "X-User-Id"
)

// AuthMiddleware extracts the bearer credential and the claimed user id. The credential is
// verified against the identity service when a checkout begins, later commands must present
// the same credential.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		credential, ok := strings.CutPrefix(auth, "Bearer ")
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if !ok || strings.TrimSpace(credential) == "" || userID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, credentialKey, strings.TrimSpace(credential))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func getCredentialFromContext(ctx context.Context) string {
	if credential, ok := ctx.Value(credentialKey).(string); ok {
		return credential
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// LoggerMiddleware logs every request once it completes and turns a panic into a 500.
func LoggerMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			defer func() {
				event := logger.Info()
				if rec := recover(); rec != nil {
					event = logger.Error().Str("error", fmt.Sprintf("%v", rec))
					if recorder.status == 0 {
						respondError(recorder, http.StatusInternalServerError, "internal_error", "internal server error")
					}
				}
				event.
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("user_id", getUserIDFromContext(r.Context())).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Int("status", recorder.Status()).
					Dur("duration", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}
