package nugul

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// UserProfile is the account behind a bearer token.
type UserProfile struct {
	ID           int     `json:"id"`
	Email        string  `json:"email"`
	Nickname     string  `json:"nickname"`
	ProfileImage *string `json:"profileImage"`
	CreatedAt    string  `json:"createdAt"`
}

type userRecord struct {
	ID           number `json:"id"`
	Email        text   `json:"email"`
	Nickname     text   `json:"nickname"`
	ProfileImage text   `json:"profileImage"`
	CreatedAt    text   `json:"createdAt"`
}

func (r userRecord) profile() UserProfile {
	p := UserProfile{
		ID:        int(r.ID),
		Email:     string(r.Email),
		Nickname:  string(r.Nickname),
		CreatedAt: string(r.CreatedAt),
	}

	if r.ProfileImage != "" {
		img := string(r.ProfileImage)
		p.ProfileImage = &img
	}

	return p
}

// ValidateToken asks the API whether token is still valid. It
// never fails: any transport or status error reads as invalid.
func (c *Client) ValidateToken(ctx context.Context, token string) bool {
	b, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return false
	}

	status, body, err := c.fetch(ctx, request{
		method:      http.MethodPost,
		path:        "/api/auth/validate",
		body:        bytes.NewReader(b),
		contentType: "application/json",
	})
	if err != nil || !isSuccess(status) {
		c.logger().Debug("token validation failed", "status", status, "error", err)
		return false
	}

	payload, err := parsePayload(body)
	if err != nil {
		return false
	}

	for _, path := range [][]string{{"valid"}, {"data", "valid"}} {
		if raw, ok := member(payload, path...); ok {
			var valid bool
			if err := json.Unmarshal(raw, &valid); err == nil {
				return valid
			}
		}
	}

	return false
}

// CurrentUser returns the profile behind token. It returns nil
// without a request when token is empty, and nil when the API
// answers 401 or cannot be reached.
func (c *Client) CurrentUser(ctx context.Context, token string) *UserProfile {
	if token == "" {
		return nil
	}

	status, body, err := c.fetch(ctx, request{
		method: http.MethodGet,
		path:   "/api/auth/me",
		token:  token,
	})
	if err != nil {
		c.logger().Warn("failed to get current user", "error", err)
		return nil
	}

	if !isSuccess(status) {
		if status != http.StatusUnauthorized {
			c.logger().Warn("failed to get current user", "status", status)
		}
		return nil
	}

	payload, err := parsePayload(body)
	if err != nil {
		return nil
	}

	profile, ok := singleUser(payload)
	if !ok {
		return nil
	}

	return &profile
}

// FetchUser returns the profile of user id.
func (c *Client) FetchUser(ctx context.Context, id int, token string) (UserProfile, error) {
	body, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/users/%d", id),
		token:  token,
	})
	if err != nil {
		return UserProfile{}, err
	}

	return decodeUser(body)
}

// UpdateNickname changes the nickname of user id and returns the
// updated profile.
func (c *Client) UpdateNickname(ctx context.Context, id int, nickname string, token string) (UserProfile, error) {
	f := newForm()
	if err := f.jsonPart("userData", map[string]string{"nickname": nickname}); err != nil {
		return UserProfile{}, fmt.Errorf("failed encoding user data: %w", err)
	}

	body, contentType, err := f.close()
	if err != nil {
		return UserProfile{}, err
	}

	res, err := c.send(ctx, request{
		method:      http.MethodPut,
		path:        fmt.Sprintf("/api/users/%d", id),
		body:        body,
		contentType: contentType,
		token:       token,
	})
	if err != nil {
		return UserProfile{}, err
	}

	return decodeUser(res)
}

// UpdateProfileImage replaces the profile image of user id. The
// caller re-fetches the profile to see the new image name.
func (c *Client) UpdateProfileImage(ctx context.Context, id int, image *Upload, token string) error {
	if image == nil {
		return errors.New("profile image is required")
	}

	f := newForm()
	if err := f.filePart("profileImage", image); err != nil {
		return fmt.Errorf("failed encoding profile image: %w", err)
	}

	body, contentType, err := f.close()
	if err != nil {
		return err
	}

	_, err = c.send(ctx, request{
		method:      http.MethodPut,
		path:        fmt.Sprintf("/api/users/%d/profile-image", id),
		body:        body,
		contentType: contentType,
		token:       token,
	})

	return err
}

func decodeUser(body []byte) (UserProfile, error) {
	payload, err := parsePayload(body)
	if err != nil {
		return UserProfile{}, fmt.Errorf("failed decoding user: %w", err)
	}

	profile, ok := singleUser(payload)
	if !ok {
		return UserProfile{}, errors.New("user missing from response")
	}

	return profile, nil
}

// singleUser extracts a profile from data.user, user, data, or
// the payload itself, in that order.
func singleUser(payload json.RawMessage) (UserProfile, bool) {
	candidates := []json.RawMessage{}
	for _, path := range [][]string{{"data", "user"}, {"user"}, {"data"}} {
		if raw, ok := member(payload, path...); ok {
			candidates = append(candidates, raw)
		}
	}
	candidates = append(candidates, payload)

	for _, raw := range candidates {
		obj, ok := asObject(raw)
		if !ok {
			continue
		}
		if _, ok := obj["id"]; !ok {
			continue
		}

		var r userRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}

		return r.profile(), true
	}

	return UserProfile{}, false
}
