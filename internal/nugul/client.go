package nugul

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public NugulMap API.
const DefaultBaseURL = "https://api.nugulmap.com"

type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the NugulMap REST API. The zero value is usable
// and talks to DefaultBaseURL. A Client holds no session state: the
// bearer token is passed to every call that needs it.
type Client struct {
	BaseURL   string
	HTTP      HTTPDoer
	UserAgent string
	Logger    *slog.Logger
}

var DefaultClient = &Client{
	BaseURL: DefaultBaseURL,
	HTTP:    defaultHTTP(),
}

// New returns a Client for baseURL using the default transport.
func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    defaultHTTP(),
		Logger:  logger,
	}
}

func (c *Client) http() HTTPDoer {
	if c.HTTP == nil {
		return DefaultClient.HTTP
	}

	return c.HTTP
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}

func (c *Client) base() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}

	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	token       string
}

func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return nil, fmt.Errorf("failed creating %s request: %w", r.method, err)
	}

	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	res, err := c.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s %s: %w", r.method, r.path, err)
	}

	return res, nil
}

// fetch executes r and returns the status code and the full
// response body. Transport failures, including a body that
// cannot be read, are returned as errors.
func (c *Client) fetch(ctx context.Context, r request) (int, []byte, error) {
	res, err := c.do(ctx, r)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("failed reading response body: %w", err)
	}

	return res.StatusCode, body, nil
}

// send is fetch for calls that must fail loudly. A non-2xx status
// is returned as a *StatusCodeError carrying the body text.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	status, body, err := c.fetch(ctx, r)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		return nil, &StatusCodeError{StatusCode: status, Body: string(body)}
	}

	return body, nil
}
