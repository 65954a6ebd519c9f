package app

import (
	"errors"
	"net/http"

	"github.com/cicconee/nugulmap/internal/nugul"
)

// Messages for failed NugulMap API calls.
const (
	MsgLoginRequired = "로그인이 필요합니다."
	MsgForbidden     = "권한이 없습니다."
	MsgZoneNotFound  = "구역을 찾을 수 없습니다."
	MsgAPIFailed     = "서버와 통신할 수 없습니다."
)

// APIError translates an error from the nugul client into a
// ServerResponseError. Auth failures keep their status, a 4xx
// rejection is passed through with the API's status and anything
// else is reported as a bad gateway. A nil err stays nil.
func APIError(err error) error {
	if err == nil {
		return nil
	}

	var resErr *ServerResponseError
	if errors.As(err, &resErr) {
		return err
	}

	if errors.Is(err, nugul.ErrAuthTokenRequired) {
		return NewServerResponseError(err, MsgLoginRequired, http.StatusUnauthorized)
	}

	var statusErr *nugul.StatusCodeError
	if !errors.As(err, &statusErr) {
		return NewServerResponseError(err, MsgAPIFailed, http.StatusBadGateway)
	}

	switch code := statusErr.StatusCode; {
	case code == http.StatusUnauthorized:
		return NewServerResponseError(err, MsgLoginRequired, code)
	case code == http.StatusForbidden:
		return NewServerResponseError(err, MsgForbidden, code)
	case code == http.StatusNotFound:
		return NewServerResponseError(err, MsgZoneNotFound, code)
	case code >= 400 && code < 500:
		return NewServerResponseError(err, http.StatusText(code), code)
	default:
		return NewServerResponseError(err, MsgAPIFailed, http.StatusBadGateway)
	}
}
