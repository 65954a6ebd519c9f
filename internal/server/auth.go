package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cicconee/nugulmap/internal/app"
	"github.com/cicconee/nugulmap/internal/auth"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.NewLogWriter(w, r).Write(Response{
			Status: http.StatusOK,
			Body:   h.session.Status(),
		})
	}
}

func (h *Handler) HandlePostToken() http.HandlerFunc {
	type req struct {
		Token string `json:"token"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writer.WriteError(app.BadRequest(fmt.Errorf("decoding token request: %w", err), "Invalid request body"))
			return
		}

		saved, err := h.session.SaveToken(r.Context(), body.Token)
		if err != nil {
			writer.WriteError(err)
			return
		}
		if !saved {
			writer.WriteError(app.NewServerResponseError(
				errors.New("token rejected"),
				auth.MsgTokenRejected,
				http.StatusUnauthorized))
			return
		}

		writer.Write(Response{
			Status: http.StatusOK,
			Body:   h.session.Status(),
		})
	}
}

func (h *Handler) HandleDeleteToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		// The session is logged out even when storage fails.
		if err := h.session.ClearToken(r.Context()); err != nil {
			loggerFrom(r.Context(), h.logger).Error("failed clearing stored token", "error", err)
		}

		writer.Write(Response{
			Status: http.StatusOK,
			Body:   h.session.Status(),
		})
	}
}

// HandleLogin redirects the browser to the social login page of the
// provider path parameter.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := strings.ToLower(chi.URLParam(r, "provider"))

		u, err := h.session.LoginURL(provider)
		if err != nil {
			h.NewLogWriter(w, r).WriteError(app.BadRequest(err, auth.MsgLoginPageFailed))
			return
		}

		http.Redirect(w, r, u, http.StatusFound)
	}
}

// HandleCallback finishes a social login when the API redirects the
// browser back to this server. The redirect URI must then point at
// this route.
func (h *Handler) HandleCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := h.NewLogWriter(w, r)

		result, err := h.session.HandleCallbackURL(r.Context(), requestURL(r))
		if err != nil {
			writer.WriteError(err)
			return
		}

		status := http.StatusOK
		switch {
		case !result.Handled:
			writer.WriteError(app.BadRequest(
				fmt.Errorf("callback %s does not match the redirect uri", r.URL.Path),
				"Unexpected login callback"))
			return
		case !result.LoggedIn:
			status = http.StatusUnauthorized
		}

		writer.Write(Response{
			Status: status,
			Body:   result,
		})
	}
}

// requestURL rebuilds the absolute URL the client requested.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}

	u := scheme + "://" + r.Host + r.URL.Path
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}

	return u
}
