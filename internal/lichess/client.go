// Package lichess is a small client for the Lichess HTTP API: account
// lookup and game export, in both structured (NDJSON) and raw PGN form.
package lichess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production Lichess endpoint.
	DefaultBaseURL = "https://lichess.org"

	// Lichess asks clients to stay well under their burst limits; one
	// request per 750ms is comfortably polite for a batch tool.
	rateLimitDelay = 750 * time.Millisecond

	// Bulk PGN exports of long games can take a while to stream.
	requestTimeout = 60 * time.Second

	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Client is a rate-limited Lichess API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	token       string
	userAgent   string
}

// ClientOptions configures the Lichess client.
type ClientOptions struct {
	// BaseURL overrides the API endpoint (used by tests).
	BaseURL string

	// Token is an optional personal API token. Exports of the token
	// owner's games include private ones.
	Token string

	// Timeout for HTTP requests (default: 60 seconds).
	Timeout time.Duration

	// HTTPClient allows a custom HTTP client.
	HTTPClient *http.Client
}

// DefaultClientOptions returns the standard client settings.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL: DefaultBaseURL,
		Timeout: requestTimeout,
	}
}

// NewClient creates a Lichess API client.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.Timeout == 0 {
		options.Timeout = requestTimeout
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.Timeout}
	}

	return &Client{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		baseURL:     options.BaseURL,
		token:       options.Token,
		userAgent:   "blunderlab/1.0",
	}
}

// GetUser fetches the public profile for a username. A missing or
// closed account maps to ErrUserNotFound.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	url := fmt.Sprintf("%s/api/user/%s", c.baseURL, username)

	body, err := c.do(ctx, url, "application/json")
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%q: %w", username, ErrUserNotFound)
		}
		return nil, fmt.Errorf("look up user %q: %w", username, err)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("parse user %q: %w", username, err)
	}
	if user.Username == "" || user.Disabled {
		return nil, fmt.Errorf("%q: %w", username, ErrUserNotFound)
	}

	return &user, nil
}

// ExportGames fetches games through the structured NDJSON export. Each
// returned game carries its PGN text.
func (c *Client) ExportGames(ctx context.Context, username string, filter GameFilter) ([]ExportedGame, error) {
	url := fmt.Sprintf("%s/api/games/user/%s?%s", c.baseURL, username, filter.query(true).Encode())

	body, err := c.do(ctx, url, "application/x-ndjson")
	if err != nil {
		return nil, fmt.Errorf("export games for %q: %w", username, err)
	}

	games, err := parseNDJSON(body)
	if err != nil {
		return nil, fmt.Errorf("parse game export for %q: %w", username, err)
	}
	return games, nil
}

// ExportGamesPGN fetches games as one concatenated PGN blob.
func (c *Client) ExportGamesPGN(ctx context.Context, username string, filter GameFilter) (string, error) {
	url := fmt.Sprintf("%s/api/games/user/%s?%s", c.baseURL, username, filter.query(false).Encode())

	body, err := c.do(ctx, url, "application/x-chess-pgn")
	if err != nil {
		return "", fmt.Errorf("export PGN for %q: %w", username, err)
	}
	return string(body), nil
}

// do performs a GET with rate limiting and retry logic and returns the
// response body.
func (c *Client) do(ctx context.Context, url, accept string) ([]byte, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", accept)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if attempt < maxRetries {
				time.Sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("read response body: %w", readErr)
			}
			return body, nil

		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			if attempt < maxRetries {
				if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
					if duration, err := time.ParseDuration(retryAfter + "s"); err == nil {
						time.Sleep(duration)
					} else {
						time.Sleep(backoff)
					}
				} else {
					time.Sleep(backoff)
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return nil, lastErr

		case http.StatusNotFound:
			return nil, &NotFoundError{URL: url}

		default:
			apiErr := APIError{StatusCode: resp.StatusCode}
			if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
				return nil, &apiErr
			}
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// parseNDJSON decodes a newline-delimited stream of game objects.
func parseNDJSON(data []byte) ([]ExportedGame, error) {
	games := []ExportedGame{}
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var game ExportedGame
		if err := dec.Decode(&game); err != nil {
			if errors.Is(err, io.EOF) {
				return games, nil
			}
			return nil, fmt.Errorf("decode game object: %w", err)
		}
		games = append(games, game)
	}
}
