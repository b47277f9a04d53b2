package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/wonny/prisme/backend/pkg/httputil"
	"github.com/wonny/prisme/backend/pkg/logger"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host
	DefaultBaseURL = "https://query2.finance.yahoo.com"
	// DefaultCookieURL hands out the session cookie needed for a crumb
	DefaultCookieURL = "https://fc.yahoo.com"
)

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cookieURL  string

	mu    sync.Mutex
	crumb string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("yahoo"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieURL:  DefaultCookieURL,
	}
}

// WithCookieURL overrides the cookie endpoint (tests)
func (c *Client) WithCookieURL(u string) *Client {
	c.cookieURL = u
	return c
}

// statusError is a non-200 response
type statusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// fetch GETs url and returns the body of a 200 response
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &statusError{URL: url, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

func isStatus(err error, code int) bool {
	var se *statusError
	return errors.As(err, &se) && se.StatusCode == code
}

// getCrumb returns the session crumb, fetching it on first use
func (c *Client) getCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumb != "" {
		return c.crumb, nil
	}

	// The cookie endpoint answers 404 but still sets the session cookie
	if resp, err := c.httpClient.Get(ctx, c.cookieURL); err == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	} else {
		c.logger.WithError(err).Debug("cookie request failed")
	}

	body, err := c.fetch(ctx, c.baseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("failed to get crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.Contains(crumb, "<") {
		return "", fmt.Errorf("invalid crumb response")
	}
	c.crumb = crumb
	return crumb, nil
}

func (c *Client) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}
