package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound indicates the profile service has no record for the member.
var ErrNotFound = errors.New("member not found")

// Member is the profile record the bot consumes.
type Member struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	GameID   string `json:"game_id"`
	Regular  bool   `json:"regular"`
}

// Service defines the profile lookups the bot performs.
type Service interface {
	Member(ctx context.Context, userID int64) (*Member, error)
	MemberByGameID(ctx context.Context, gameID string) (*Member, error)
}

// Client provides access to the member-profile HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a profile client.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("profile base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Member fetches a profile record by member id.
func (c *Client) Member(ctx context.Context, userID int64) (*Member, error) {
	if userID <= 0 {
		return nil, errors.New("user id must be positive")
	}
	return c.get(ctx, fmt.Sprintf("%s/members/%d", c.baseURL, userID))
}

// MemberByGameID fetches a profile record by game account id.
func (c *Client) MemberByGameID(ctx context.Context, gameID string) (*Member, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, errors.New("game id must not be empty")
	}
	return c.get(ctx, c.baseURL+"/members/by-game-id/"+url.PathEscape(gameID))
}

func (c *Client) get(ctx context.Context, endpoint string) (*Member, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("profile service returned %d", resp.StatusCode)
	}

	var payload Member
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}
	return &payload, nil
}
