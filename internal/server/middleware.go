package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cicconee/nugulmap/internal/app"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const (
	loggerKey ctxKey = iota
	tokenKey
)

// RequestLogger tags each request with an id, taken from the
// X-Request-ID header when it holds a UUID and generated otherwise,
// and logs its outcome. Handlers find the tagged logger with
// loggerFrom.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			l := logger.With("request_id", id)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey, l)))

			l.Debug("request finished",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}

	return fallback
}

// TokenSource is the interface that wraps the Token method.
//
// Token returns the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// AuthRequired rejects requests made while logged out. The request
// context passed to next holds the bearer token, see tokenFrom.
func AuthRequired(tokens TokenSource, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := tokens.Token()
			if token == "" {
				err := app.NewServerResponseError(
					errors.New("no access token"),
					app.MsgLoginRequired,
					http.StatusUnauthorized)
				NewLogWriter(loggerFrom(r.Context(), logger), w, r).WriteError(err)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), tokenKey, token)))
		}
	}
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
