package auth

import (
	"context"
	"net/url"
	"strings"
)

// Messages shown to the user after a social login attempt.
const (
	MsgLoginSucceeded   = "로그인 성공"
	MsgProfileRequired  = "로그인은 완료되었지만 추가 프로필 설정이 필요합니다."
	MsgTokenMissing     = "로그인 응답에 accessToken 이 없습니다."
	MsgTokenRejected    = "토큰 검증에 실패했습니다. 다시 로그인해 주세요."
	MsgLoginPageFailed  = "로그인 페이지를 열 수 없습니다."
	msgLoginFailedLabel = "로그인 실패: "
)

// LoginURL returns the URL that starts a social login with provider.
// Any previous login message is cleared.
func (s *Session) LoginURL(provider string) (string, error) {
	s.mu.Lock()
	s.message = ""
	s.mu.Unlock()

	u, err := s.API.AuthorizationURL(provider, s.RedirectURI)
	if err != nil {
		s.mu.Lock()
		s.message = MsgLoginPageFailed
		s.mu.Unlock()
		return "", err
	}

	return u, nil
}

// CallbackResult describes what HandleCallbackURL did with a URL.
type CallbackResult struct {
	// Handled is false when the URL is not the login redirect.
	Handled bool `json:"handled"`

	LoggedIn bool `json:"loggedIn"`

	// NeedsProfile is set when the account still has to finish
	// its profile setup.
	NeedsProfile bool   `json:"needsProfile"`
	Message      string `json:"message"`
}

// HandleCallbackURL finishes a social login. rawURL is the redirect
// the API sent the browser to; it is only handled when it points at
// RedirectURI, compared without query, trailing slash or case. The
// access token in the query is saved through SaveToken.
func (s *Session) HandleCallbackURL(ctx context.Context, rawURL string) (CallbackResult, error) {
	expected := strings.ToLower(normalizeURI(s.RedirectURI))
	if expected == "" || strings.ToLower(normalizeURI(rawURL)) != expected {
		return CallbackResult{}, nil
	}

	s.setAuthenticating(true)
	defer s.setAuthenticating(false)

	params := queryParams(rawURL)
	result := CallbackResult{Handled: true}

	switch {
	case params.Get("error") != "":
		result.Message = msgLoginFailedLabel + params.Get("error")
	case params.Get("accessToken") == "":
		result.Message = MsgTokenMissing
	default:
		saved, err := s.SaveToken(ctx, params.Get("accessToken"))
		if err != nil {
			result.Message = MsgTokenRejected
			s.setMessage(result.Message)
			return result, err
		}
		if !saved {
			result.Message = MsgTokenRejected
			break
		}

		result.LoggedIn = true
		result.NeedsProfile = params.Get("profileComplete") == "false"
		result.Message = MsgLoginSucceeded
		if result.NeedsProfile {
			result.Message = MsgProfileRequired
		}
	}

	s.setMessage(result.Message)
	return result, nil
}

func (s *Session) setAuthenticating(v bool) {
	s.mu.Lock()
	s.authenticating = v
	s.mu.Unlock()
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// normalizeURI drops the query and a trailing slash.
func normalizeURI(uri string) string {
	uri = strings.TrimSpace(strings.SplitN(uri, "?", 2)[0])
	return strings.TrimSuffix(uri, "/")
}

// queryParams reads the query of rawURL, ignoring any fragment.
// Custom schemes such as nugulmap://oauth/callback are accepted.
func queryParams(rawURL string) url.Values {
	i := strings.Index(rawURL, "?")
	if i < 0 {
		return url.Values{}
	}

	raw := rawURL[i+1:]
	if j := strings.Index(raw, "#"); j >= 0 {
		raw = raw[:j]
	}

	// ParseQuery keeps every pair it could decode.
	values, _ := url.ParseQuery(raw)
	return values
}
