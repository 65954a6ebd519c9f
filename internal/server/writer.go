package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type LogWriter struct {
	logger *slog.Logger
	rw     http.ResponseWriter
	r      *http.Request
}

func NewLogWriter(l *slog.Logger, rw http.ResponseWriter, r *http.Request) *LogWriter {
	return &LogWriter{l, rw, r}
}

func (l *LogWriter) Write(r Response) {
	l.rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	l.rw.WriteHeader(r.Status)
	if err := json.NewEncoder(l.rw).Encode(r.Body); err != nil {
		l.logger.Error("failed to write json to http.ResponseWriter", "error", err)
	}
}

type ServerErrorResponser interface {
	ServerErrorResponse() (int, string)
}

// WriteError answers with the status and message of err when it is a
// ServerErrorResponser, and with a generic 500 otherwise. The error
// itself is only logged.
func (l *LogWriter) WriteError(err error) {
	errResp := ErrorResponse{
		Status:   http.StatusInternalServerError,
		ErrorMsg: "Something went wrong",
	}

	var apiError ServerErrorResponser
	if errors.As(err, &apiError) {
		errResp.Status, errResp.ErrorMsg = apiError.ServerErrorResponse()
	}

	level := slog.LevelInfo
	if errResp.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	l.logger.Log(l.r.Context(), level, "request failed",
		"method", l.r.Method,
		"path", l.r.URL.Path,
		"status", errResp.Status,
		"error", err)

	l.Write(errResp.AsResponse())
}
