package procare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL            = "https://api-school.procareconnect.com/api/web"
	DefaultMinRequestInterval = 1200 * time.Millisecond
)

// AuthMode selects how the auth token travels: as a bearer header or as an
// auth_token query parameter. Some deployments reject one or the other, so
// callers may retry a 401/403 under the other mode; the client itself never
// retries.
type AuthMode string

const (
	AuthModeBearer AuthMode = "bearer"
	AuthModeQuery  AuthMode = "query"
)

// APIError is any non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("procare api request failed (%d) for %s: %s", e.StatusCode, e.Path, e.Body)
}

// IsAuthError reports whether the failure is auth-class and therefore
// eligible for an auth-mode fallback at the call site.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

type ClientOptions struct {
	AuthToken string
	// BaseURL overrides DefaultBaseURL; trailing slashes are trimmed.
	BaseURL  string
	AuthMode AuthMode
	// MinRequestInterval throttles outbound calls. Zero means
	// DefaultMinRequestInterval; a negative value disables throttling.
	MinRequestInterval time.Duration
	HTTPClient         *http.Client
}

// Client issues authenticated GETs against the upstream API, at most one
// request per MinRequestInterval per client instance.
type Client struct {
	httpClient  *http.Client
	authToken   string
	baseURL     string
	authMode    AuthMode
	minInterval time.Duration

	// mu guards lastRequestAt; the throttle is a read-modify-write and
	// clients may be shared across goroutines.
	mu            sync.Mutex
	lastRequestAt time.Time
}

func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	authMode := opts.AuthMode
	if authMode == "" {
		authMode = AuthModeBearer
	}

	minInterval := opts.MinRequestInterval
	if minInterval == 0 {
		minInterval = DefaultMinRequestInterval
	}

	return &Client{
		httpClient:  httpClient,
		authToken:   opts.AuthToken,
		baseURL:     baseURL,
		authMode:    authMode,
		minInterval: minInterval,
	}
}

// AuthMode returns the mode this client authenticates with.
func (c *Client) AuthMode() AuthMode {
	return c.authMode
}

func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/user/", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetKids(ctx context.Context) (*KidsResponse, error) {
	var resp KidsResponse
	if err := c.getJSON(ctx, "/parent/kids/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetListOptions(ctx context.Context) (*ListOptions, error) {
	var opts ListOptions
	if err := c.getJSON(ctx, "/list_options/", nil, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// GetDailyActivities fetches one page of a kid's activity feed up to and
// including dateTo (YYYY-MM-DD). Pages start at 1.
func (c *Client) GetDailyActivities(ctx context.Context, kidID, dateTo string, page int) (*DailyActivitiesResponse, error) {
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("kid_id", kidID)
	query.Set("filters[daily_activity][date_to]", dateTo)
	query.Set("page", strconv.Itoa(page))

	var resp DailyActivitiesResponse
	if err := c.getJSON(ctx, "/parent/daily_activities/", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAllDailyActivities drives pagination until the upstream returns a page
// shorter than its own reported page size. A non-positive page size also
// stops the loop so a malformed response cannot spin forever. The API
// exposes no total count, so the short page is the only termination signal.
func (c *Client) GetAllDailyActivities(ctx context.Context, kidID, dateTo string) ([]DailyActivity, error) {
	var all []DailyActivity

	for page := 1; ; page++ {
		resp, err := c.GetDailyActivities(ctx, kidID, dateTo, page)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.DailyActivities...)

		if resp.PerPage <= 0 || len(resp.DailyActivities) < resp.PerPage {
			break
		}
	}

	return all, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	if err := c.waitForThrottle(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	if c.authMode == AuthModeQuery {
		query.Set("auth_token", c.authToken)
	}

	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.authMode == AuthModeBearer {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)

	c.mu.Lock()
	c.lastRequestAt = time.Now()
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: string(body)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) waitForThrottle(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastRequestAt)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
