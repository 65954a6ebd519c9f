package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoToken is returned by Claims when the session is logged out.
var ErrNoToken = errors.New("no access token")

// Claims are the registered claims of an access token as the client
// sees them. The signature is not verified here; the API does that
// on every request.
type Claims struct {
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the token carries an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the payload of the current token.
func (s *Session) Claims() (Claims, error) {
	token := s.Token()
	if token == "" {
		return Claims{}, ErrNoToken
	}

	return ParseClaims(token)
}

// ParseClaims decodes the registered claims of a JWT without
// checking its signature.
func ParseClaims(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("parsing access token: %w", err)
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time.UTC()
	}

	return c, nil
}
