// Package spotify harvests trending genre keywords from the Spotify
// Web API to bias prompt generation toward current listening tastes.
//
// Authentication uses the client-credentials flow: no user context is
// needed to browse categories, and the adapter refreshes the token
// transparently when it expires.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
)

const (
	defaultAPIBase   = "https://api.spotify.com/v1"
	defaultTokenBase = "https://accounts.spotify.com"

	// tokenSlack renews the token this long before its actual expiry.
	tokenSlack = time.Minute
)

// Client browses the Spotify catalog.
type Client struct {
	clientID     string
	clientSecret string
	apiBase      string
	tokenBase    string
	http         *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the API and token endpoints. Used by tests.
func WithBaseURLs(api, token string) Option {
	return func(c *Client) { c.apiBase = api; c.tokenBase = token }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Spotify client with the given app credentials.
func New(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiBase:      defaultAPIBase,
		tokenBase:    defaultTokenBase,
		http:         &http.Client{Timeout: 30 * time.Second},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ platform.TrendSource = (*Client)(nil)

type categoryPage struct {
	Categories struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	} `json:"categories"`
}

// TrendingKeywords returns up to limit lowercase keywords drawn from
// browse categories. Duplicates are collapsed; order follows the API's
// popularity ordering.
func (c *Client) TrendingKeywords(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("country", "US")
	q.Set("limit", fmt.Sprint(min(limit, 50)))

	var page categoryPage
	if err := c.get(ctx, "/browse/categories?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("spotify: fetch categories: %w", err)
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, item := range page.Categories.Items {
		kw := strings.ToLower(strings.TrimSpace(item.Name))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
		if len(keywords) == limit {
			break
		}
	}

	c.logger.Debug("spotify: harvested trend keywords", slog.Int("count", len(keywords)))
	return keywords, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("api %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// token returns a valid access token, requesting a fresh one through
// the client-credentials flow when the cached token is near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.tokenBase+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
