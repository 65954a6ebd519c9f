package nugul

import (
	"errors"
	"fmt"
)

// ErrAuthTokenRequired is returned, before any request is made,
// by operations that cannot be attempted without a bearer token.
var ErrAuthTokenRequired = errors.New("auth token required")

// StatusCodeError is returned when the NugulMap API answers a
// write request with a non-2xx status. Body holds the raw
// response text for diagnostics.
type StatusCodeError struct {
	StatusCode int
	Body       string
}

func (s *StatusCodeError) Error() string {
	return fmt.Sprintf("API call failed: %d %s", s.StatusCode, s.Body)
}
