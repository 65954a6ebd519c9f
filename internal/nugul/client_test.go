package nugul

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cicconee/nugulmap/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawZone = `{
	"id": "10",
	"region": "서울특별시",
	"type": "실외",
	"subtype": "테스트 부스",
	"description": "테스트 설명",
	"latitude": "37.5",
	"longitude": "126.9",
	"address": "서울 중구 테스트로 1",
	"user": "tester@nugulmap.com",
	"image": null
}`

var testBounds = geometry.Bounds{MinLat: 37.4, MaxLat: 37.6, MinLng: 126.8, MaxLng: 127.0}

// doerFunc adapts a func into an HTTPDoer and counts calls.
type doerFunc struct {
	calls atomic.Int32
	fn    func(*http.Request) (*http.Response, error)
}

func (d *doerFunc) Do(r *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	return d.fn(r)
}

func failingDoer() *doerFunc {
	return &doerFunc{fn: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	}}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &Client{BaseURL: srv.URL, HTTP: srv.Client()}
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestFetchZonesByBounds(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		assert.Equal(t, "/api/zones/bounds", r.URL.Path)
		io.WriteString(w, `{"success":true,"data":{"zones":[`+rawZone+`]}}`)
	})

	zones := c.FetchZonesByBounds(context.Background(), testBounds)

	require.Len(t, zones, 1)
	assert.Equal(t, 10, zones[0].ID)
	assert.Equal(t, "테스트 부스", zones[0].Subtype)
	assert.Equal(t, 37.5, zones[0].Latitude)
	assert.Equal(t, 126.9, zones[0].Longitude)
	assert.Contains(t, query, "minLat=37.4")
	assert.Contains(t, query, "maxLng=127")
}

func TestFetchZonesByBoundsFallback(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusBadGateway} {
			c := newTestClient(t, respond(status, `{"success":false}`))

			zones := c.FetchZonesByBounds(context.Background(), geometry.Bounds{MaxLat: 1, MaxLng: 1})

			require.NotEmpty(t, zones, "status %d", status)
			assert.Equal(t, 1, zones[0].ID)
		}
	})

	t.Run("network failure", func(t *testing.T) {
		d := failingDoer()
		c := &Client{HTTP: d}

		zones := c.FetchZonesByBounds(context.Background(), testBounds)

		assert.Equal(t, FallbackZones(), zones)
		assert.EqualValues(t, 1, d.calls.Load())
	})

	t.Run("ok but unparsable", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, "not-json"))

		zones := c.FetchZonesByBounds(context.Background(), testBounds)

		require.NotNil(t, zones)
		assert.Empty(t, zones)
	})

	t.Run("ok with unknown shape", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"items":[]}`))

		assert.Empty(t, c.FetchZonesByBounds(context.Background(), testBounds))
	})
}

func TestFallbackZonesIsACopy(t *testing.T) {
	zones := FallbackZones()
	zones[0].ID = 99

	assert.Equal(t, 1, FallbackZones()[0].ID)
}

func TestSearchZones(t *testing.T) {
	t.Run("network failure is empty", func(t *testing.T) {
		c := &Client{HTTP: failingDoer()}

		zones := c.SearchZones(context.Background(), "광화문", nil)

		require.NotNil(t, zones)
		assert.Empty(t, zones)
	})

	t.Run("non-2xx is empty", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusInternalServerError, ""))

		assert.Empty(t, c.SearchZones(context.Background(), "시청", nil))
	})

	t.Run("coordinates appended", func(t *testing.T) {
		var rawQuery string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rawQuery = r.URL.RawQuery
			io.WriteString(w, `{"success":true,"data":{"zones":[`+rawZone+`]}}`)
		})

		zones := c.SearchZones(context.Background(), "시청", geometry.NewPoint(126.9, 37.5))

		assert.Len(t, zones, 1)
		assert.Contains(t, rawQuery, "&lat=37.5&lng=126.9")
	})

	t.Run("coordinates omitted", func(t *testing.T) {
		var rawQuery string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			rawQuery = r.URL.RawQuery
			io.WriteString(w, `[]`)
		})

		c.SearchZones(context.Background(), "시청", nil)

		assert.NotContains(t, rawQuery, "lat=")
	})
}

func TestFetchMyZones(t *testing.T) {
	t.Run("unauthorized is empty", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusUnauthorized, `{}`))

		zones := c.FetchMyZones(context.Background(), "token-123")

		require.NotNil(t, zones)
		assert.Empty(t, zones)
	})

	t.Run("no token no request", func(t *testing.T) {
		d := failingDoer()
		c := &Client{HTTP: d}

		assert.Empty(t, c.FetchMyZones(context.Background(), ""))
		assert.Zero(t, d.calls.Load())
	})

	t.Run("sends bearer", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			io.WriteString(w, `{"zones":[`+rawZone+`]}`)
		})

		assert.Len(t, c.FetchMyZones(context.Background(), "token-123"), 1)
	})
}

func TestFetchZone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/zones/10" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `{"success":true,"data":{"zone":`+rawZone+`}}`)
	})

	zone := c.FetchZone(context.Background(), 10)
	require.NotNil(t, zone)
	assert.Equal(t, 10, zone.ID)
	assert.Equal(t, "테스트 부스", zone.Subtype)

	assert.Nil(t, c.FetchZone(context.Background(), 11))
}

func TestCreateZone(t *testing.T) {
	payload := CreateZonePayload{
		Region:      "서울특별시",
		Type:        "BOOTH",
		Subtype:     "부스",
		Description: "테스트",
		Latitude:    37.5,
		Longitude:   126.9,
		Address:     "서울 중구",
		User:        "mobile-user",
	}

	t.Run("multipart with auth header", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/zones", r.URL.Path)
			assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseMultipartForm(1<<20))

			var got CreateZonePayload
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("data")), &got))
			assert.Equal(t, payload, got)

			file, header, err := r.FormFile("image")
			require.NoError(t, err)
			defer file.Close()
			b, _ := io.ReadAll(file)
			assert.Equal(t, "zone.jpg", header.Filename)
			assert.Equal(t, "jpeg-bytes", string(b))

			io.WriteString(w, `{"success":true,"data":{"zone":`+rawZone+`}}`)
		})

		zone, err := c.CreateZone(context.Background(), payload, &Upload{
			Filename:    "zone.jpg",
			ContentType: "image/jpeg",
			Data:        strings.NewReader("jpeg-bytes"),
		}, "token-abc")

		require.NoError(t, err)
		assert.Equal(t, 10, zone.ID)
	})

	t.Run("without token still sends", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Empty(t, r.Header.Get("Authorization"))
			io.WriteString(w, `{"zone":`+rawZone+`}`)
		})

		zone, err := c.CreateZone(context.Background(), payload, nil, "")

		require.NoError(t, err)
		assert.Equal(t, 10, zone.ID)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("non-2xx carries body", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusUnauthorized, "login required"))

		_, err := c.CreateZone(context.Background(), payload, nil, "")

		var statusErr *StatusCodeError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
		assert.Equal(t, "login required", statusErr.Body)
		assert.Contains(t, err.Error(), "401 login required")
	})

	t.Run("response without zone", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusCreated, `{"success":true}`))

		_, err := c.CreateZone(context.Background(), payload, nil, "t")

		assert.Error(t, err)
	})
}

func TestDeleteZone(t *testing.T) {
	t.Run("without token", func(t *testing.T) {
		d := failingDoer()
		c := &Client{HTTP: d}

		err := c.DeleteZone(context.Background(), 10, "")

		assert.ErrorIs(t, err, ErrAuthTokenRequired)
		assert.EqualError(t, err, "auth token required")
		assert.Zero(t, d.calls.Load())
	})

	t.Run("with token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/zones/10", r.URL.Path)
			assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		})

		assert.NoError(t, c.DeleteZone(context.Background(), 10, "t"))
	})

	t.Run("forbidden", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusForbidden, "not yours"))

		var statusErr *StatusCodeError
		assert.ErrorAs(t, c.DeleteZone(context.Background(), 10, "t"), &statusErr)
	})
}

func TestValidateToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "token-123", body["token"])
			io.WriteString(w, `{"success":true,"valid":true}`)
		})

		assert.True(t, c.ValidateToken(context.Background(), "token-123"))
	})

	t.Run("nested valid", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"data":{"valid":true}}`))

		assert.True(t, c.ValidateToken(context.Background(), "t"))
	})

	t.Run("invalid", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusOK, `{"valid":false}`))

		assert.False(t, c.ValidateToken(context.Background(), "t"))
	})

	t.Run("status failure", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusInternalServerError, `{"valid":true}`))

		assert.False(t, c.ValidateToken(context.Background(), "t"))
	})

	t.Run("network failure", func(t *testing.T) {
		c := &Client{HTTP: failingDoer()}

		assert.False(t, c.ValidateToken(context.Background(), "t"))
	})
}

func TestCurrentUser(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		d := failingDoer()
		c := &Client{HTTP: d}

		assert.Nil(t, c.CurrentUser(context.Background(), ""))
		assert.Zero(t, d.calls.Load())
	})

	t.Run("unauthorized", func(t *testing.T) {
		c := newTestClient(t, respond(http.StatusUnauthorized, ""))

		assert.Nil(t, c.CurrentUser(context.Background(), "t"))
	})

	t.Run("profile", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/me", r.URL.Path)
			io.WriteString(w, `{"success":true,"data":{"user":{"id":7,"email":"a@b.c","nickname":"너굴","profileImage":"p.jpg","createdAt":"2025-01-01"}}}`)
		})

		u := c.CurrentUser(context.Background(), "t")
		require.NotNil(t, u)
		assert.Equal(t, 7, u.ID)
		assert.Equal(t, "너굴", u.Nickname)
		require.NotNil(t, u.ProfileImage)
		assert.Equal(t, "p.jpg", *u.ProfileImage)
	})
}

func TestUserEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/users/7":
			io.WriteString(w, `{"id":7,"nickname":"너굴"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/users/7":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.JSONEq(t, `{"nickname":"새이름"}`, r.FormValue("userData"))
			io.WriteString(w, `{"data":{"user":{"id":7,"nickname":"새이름"}}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/users/7/profile-image":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, _, err := r.FormFile("profileImage")
			assert.NoError(t, err)
			io.WriteString(w, `{"profileImage":"new.jpg"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	u, err := c.FetchUser(ctx, 7, "t")
	require.NoError(t, err)
	assert.Equal(t, "너굴", u.Nickname)

	u, err = c.UpdateNickname(ctx, 7, "새이름", "t")
	require.NoError(t, err)
	assert.Equal(t, "새이름", u.Nickname)

	err = c.UpdateProfileImage(ctx, 7, &Upload{Filename: "me.png", Data: strings.NewReader("png")}, "t")
	assert.NoError(t, err)

	_, err = c.FetchUser(ctx, 8, "t")
	var statusErr *StatusCodeError
	assert.ErrorAs(t, err, &statusErr)
}

func TestImageURL(t *testing.T) {
	c := &Client{BaseURL: "https://api.example.com/"}

	assert.Equal(t, "", c.ImageURL(""))
	assert.Equal(t, "https://cdn.example.com/a.jpg", c.ImageURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "http://cdn.example.com/a.jpg", c.ImageURL("http://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://api.example.com/api/images/a.jpg", c.ImageURL("/api/images/a.jpg"))
	assert.Equal(t, "https://api.example.com/api/images/profile20251230_143056_570ea469.jpg",
		c.ImageURL("profile20251230_143056_570ea469.jpg"))
}

func TestAuthorizationURL(t *testing.T) {
	c := &Client{BaseURL: "https://api.example.com"}

	u, err := c.AuthorizationURL("kakao", "nugulmap://oauth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/oauth2/authorization/kakao?redirect_uri=nugulmap%3A%2F%2Foauth%2Fcallback", u)

	_, err = c.AuthorizationURL("facebook", "")
	assert.Error(t, err)
}
