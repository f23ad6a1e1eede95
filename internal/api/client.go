package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chat-client/internal/models"
	"chat-client/internal/session"

	"golang.org/x/sync/singleflight"
)

// Error carries the HTTP status and the backend-provided detail string.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Client is the REST client. Every request attaches the current access token
// as a bearer credential; a 401 triggers one coalesced refresh and a single
// retry of the original request.
type Client struct {
	base    string
	http    *http.Client
	session *session.Session
	group   singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration, sess *session.Session) *Client {
	return &Client{
		base:    baseURL,
		http:    &http.Client{Timeout: timeout},
		session: sess,
	}
}

// BaseURL returns the configured REST origin.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	err := c.doOnce(ctx, method, path, query, body, out)

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}
	if c.session.RefreshToken() == "" {
		return err
	}
	if rerr := c.refresh(ctx); rerr != nil {
		// Refresh failure propagates the original error; the session is
		// left as-is and the caller decides what to do.
		return err
	}
	// Exactly one retry: a second 401 propagates.
	return c.doOnce(ctx, method, path, query, body, out)
}

// refresh coalesces concurrent refresh attempts into one underlying call.
func (c *Client) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		var pair models.TokenPair
		req := models.RefreshRequest{RefreshToken: c.session.RefreshToken()}
		if err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", nil, req, &pair); err != nil {
			return nil, err
		}
		return nil, c.session.SetTokens(pair.AccessToken, pair.RefreshToken)
	})
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.session.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Detail: decodeDetail(resp.Body)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeDetail pulls the backend's error detail out of the response body.
func decodeDetail(body io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}
