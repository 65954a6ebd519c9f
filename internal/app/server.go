// Package app holds the errors shared between the NugulMap client
// packages and the HTTP server.
package app

import "net/http"

// ServerResponseError is an error that carries the HTTP status code
// and the message a server should answer with. The message is safe
// to show to callers; the wrapped error is only logged.
type ServerResponseError struct {
	// The wrapped error.
	error

	// The HTTP response body.
	msg string

	// The HTTP status code.
	statusCode int
}

func NewServerResponseError(err error, msg string, statusCode int) *ServerResponseError {
	return &ServerResponseError{
		error:      err,
		msg:        msg,
		statusCode: statusCode,
	}
}

// BadRequest wraps err as a 400 answered with msg.
func BadRequest(err error, msg string) *ServerResponseError {
	return NewServerResponseError(err, msg, http.StatusBadRequest)
}

// NotFound wraps err as a 404 answered with msg.
func NotFound(err error, msg string) *ServerResponseError {
	return NewServerResponseError(err, msg, http.StatusNotFound)
}

// ServerErrorResponse returns the status code and the response body.
func (e *ServerResponseError) ServerErrorResponse() (int, string) {
	return e.statusCode, e.msg
}

func (e *ServerResponseError) Unwrap() error {
	return e.error
}
