package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"

	"plantcare-billing/internal/domain/billing"
)

var (
	ErrNotSignedIn    = errors.New("not signed in")
	ErrNoSubscription = errors.New("no subscription on file")
)

// APIError is a non-2xx answer from the billing service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("billing service returned %d", e.Status)
	}
	return e.Message
}

// TokenSource yields the caller's bearer token, or "" when signed out.
type TokenSource func(ctx context.Context) (string, error)

// Client calls the billing endpoints on behalf of one signed-in user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	cache      *lru.LRU[string, *billing.Subscription]
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithOAuth2 draws bearer tokens from ts, which refreshes them as needed.
func WithOAuth2(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.token = func(context.Context) (string, error) {
			tok, err := ts.Token()
			if err != nil {
				return "", err
			}
			return tok.AccessToken, nil
		}
	}
}

// WithCacheTTL sets how long the caller's subscription is served from memory.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = lru.NewLRU[string, *billing.Subscription](8, nil, ttl) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      func(context.Context) (string, error) { return "", nil },
		cache:      lru.NewLRU[string, *billing.Subscription](8, nil, time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends body as JSON and decodes a 2xx answer into out. With authed set
// the bearer token is required.
func (c *Client) do(ctx context.Context, method, path string, authed bool, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if authed {
		tok, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("get session token: %w", err)
		}
		if tok == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// cacheKey scopes the cached subscription to the current token.
func (c *Client) cacheKey(ctx context.Context) string {
	tok, _ := c.token(ctx)
	return "subscription:" + tok
}

func (c *Client) invalidate() {
	c.cache.Purge()
}
