package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenSource supplies the Authorization header value for data API calls.
// It is injected explicitly instead of being looked up globally so that the
// credential flow stays visible in the caller's wiring.
type TokenSource interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// Client wraps the HTTP transport to the remote service: it blocks on the
// rate-limit gate before every call, attaches credentials, and normalizes
// success and failure shapes (204 -> nil payload, 404 -> ErrNotFound,
// other non-2xx -> *APIError).
type Client struct {
	httpClient *http.Client
	limiter    *Limiter
	tokens     TokenSource
	baseURL    string
	version    string
	log        *zap.Logger
}

func NewClient(baseURL, version string, limiter *Limiter, tokens TokenSource, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		tokens:     tokens,
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    version,
		log:        log,
	}
}

// URL builds a request URL from an endpoint path, prefixing the API version
// when absent. remoteID and suffix extend the path (".../{id}/schedules").
// Absolute URLs (continuation links) pass through untouched.
func (c *Client) URL(endpoint, remoteID, suffix string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, c.version) {
		endpoint = c.version + endpoint
	}
	u := c.baseURL + endpoint
	if remoteID != "" {
		u += "/" + remoteID
	}
	if suffix != "" {
		u += suffix
	}
	return u
}

func (c *Client) Get(ctx context.Context, url string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) Post(ctx context.Context, url string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, url, body)
}

func (c *Client) Put(ctx context.Context, url string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, url, body)
}

func (c *Client) Patch(ctx context.Context, url string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, url, body)
}

func (c *Client) Delete(ctx context.Context, url string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		auth, err := c.tokens.AuthorizationHeader(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", auth)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote service unavailable: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("remote call",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	return normalizeResponse(resp)
}

// PostForm issues a form-encoded POST with Basic-auth client credentials.
// The authorization surface (token exchange) uses this shape instead of the
// bearer JSON calls of the data surface.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values, user, pass string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(user, pass)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authorization service unavailable: %w", err)
	}
	defer resp.Body.Close()

	return normalizeResponse(resp)
}

func normalizeResponse(resp *http.Response) (json.RawMessage, error) {
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", resp.Request.URL.Path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		// Some toggle endpoints answer 200 with an empty body.
		return nil, nil
	}
	return json.RawMessage(data), nil
}
