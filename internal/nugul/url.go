package nugul

import (
	"fmt"
	"net/url"
	"strings"
)

// Providers are the social login providers the API accepts.
var Providers = []string{"kakao", "naver", "google"}

// ImageURL resolves an image reference. Absolute URLs and paths
// already under /api/ pass through, bare file names are served
// from the image endpoint. An empty name resolves to "".
func (c *Client) ImageURL(name string) string {
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"):
		return name
	case strings.HasPrefix(name, "/api/"):
		return c.base() + name
	default:
		return c.base() + "/api/images/" + url.PathEscape(name)
	}
}

// AuthorizationURL returns the browser redirect target that
// starts a social login with provider. After login the API
// redirects to redirectURI with the access token in the query.
func (c *Client) AuthorizationURL(provider string, redirectURI string) (string, error) {
	if !isProvider(provider) {
		return "", fmt.Errorf("unsupported login provider %q", provider)
	}

	query := url.Values{}
	if redirectURI != "" {
		query.Set("redirect_uri", redirectURI)
	}

	return c.endpoint("/api/oauth2/authorization/"+provider, query), nil
}

func isProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}

	return false
}
