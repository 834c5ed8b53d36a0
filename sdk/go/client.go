package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"scoreboard/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the scoreboard HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:5000/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// CreateScoreBoard creates an empty scoreboard and returns its id.
func (c *Client) CreateScoreBoard(ctx context.Context) (uuid.UUID, error) {
	var body core.BoardCreated
	if err := c.do(ctx, http.MethodPost, "/scoreboards", nil, &body); err != nil {
		return uuid.Nil, err
	}
	return body.ID, nil
}

// GetScoreBoard fetches a scoreboard. A missing board matches ErrNotFound.
func (c *Client) GetScoreBoard(ctx context.Context, id uuid.UUID) (core.ScoreBoard, error) {
	if id == uuid.Nil {
		return core.ScoreBoard{}, ErrNilID
	}
	var board core.ScoreBoard
	if err := c.do(ctx, http.MethodGet, "/scoreboards/"+id.String(), nil, &board); err != nil {
		return core.ScoreBoard{}, err
	}
	return board, nil
}

// Ranking returns users ordered by total score; limit <= 0 returns everyone.
func (c *Client) Ranking(ctx context.Context, id uuid.UUID, limit int) ([]RankEntry, error) {
	if id == uuid.Nil {
		return nil, ErrNilID
	}
	path := "/scoreboards/" + id.String() + "/ranking"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var body struct {
		Ranking []RankEntry `json:"ranking"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.Ranking, nil
}

// SignUpAnonymous creates an anonymous account.
func (c *Client) SignUpAnonymous(ctx context.Context) (core.Account, error) {
	var account core.Account
	if err := c.do(ctx, http.MethodPost, "/auth/sign-up/anonymous", nil, &account); err != nil {
		return core.Account{}, err
	}
	return account, nil
}

func (c *Client) CreateLeaderboard(ctx context.Context, name string) (core.Leaderboard, error) {
	if strings.TrimSpace(name) == "" {
		return core.Leaderboard{}, errors.New("leaderboard name is required")
	}
	var lb core.Leaderboard
	if err := c.do(ctx, http.MethodPost, "/leaderboard", map[string]string{"name": name}, &lb); err != nil {
		return core.Leaderboard{}, err
	}
	return lb, nil
}

func (c *Client) ListLeaderboards(ctx context.Context) ([]core.Leaderboard, error) {
	var boards []core.Leaderboard
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// AddLeaderboardMember links a player account to a leaderboard.
func (c *Client) AddLeaderboardMember(ctx context.Context, leaderboard int32, player uuid.UUID) error {
	if player == uuid.Nil {
		return ErrNilID
	}
	path := fmt.Sprintf("/leaderboard/%d/members", leaderboard)
	return c.do(ctx, http.MethodPost, path, map[string]uuid.UUID{"player": player}, nil)
}

func (c *Client) LeaderboardMembers(ctx context.Context, leaderboard int32) ([]core.LeaderboardMember, error) {
	var members []core.LeaderboardMember
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard/%d/members", leaderboard), nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Rooms reports live connections and joined rooms.
func (c *Client) Rooms(ctx context.Context) (RoomStats, error) {
	var stats RoomStats
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &stats); err != nil {
		return RoomStats{}, err
	}
	return stats, nil
}

// Health probes /healthz. An unhealthy service is reported through the status, not an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthStatus{}, err
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if resp.StatusCode == http.StatusServiceUnavailable {
		if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
			return HealthStatus{}, err
		}
		return hs, nil
	}
	if err := decodeJSON(resp, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)
	return req, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
