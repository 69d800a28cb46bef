package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/api"
	"github.com/dmitrijs2005/stackpad/internal/common"
)

// HTTPClient implements Client against the JSON API. A request rejected with
// 401 "token expired" is retried once after a refresh-token exchange, the
// same way a unary interceptor would do it.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewHTTPClient returns a client for the given base URL, e.g.
// "http://127.0.0.1:8080".
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) setTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/register", api.Credentials{Username: username, Password: password}, nil)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var pair api.TokenPair
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/login", api.Credentials{Username: username, Password: password}, &pair)
	if err != nil {
		return err
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/v1/ping", nil, nil)
}

func (c *HTTPClient) PushEvents(ctx context.Context, events []api.WireEvent) ([]string, error) {
	var resp api.PushEventsResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/events", api.PushEventsRequest{Events: events}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Accepted, nil
}

func (c *HTTPClient) PullEvents(ctx context.Context, cursor int64) ([]api.WireEvent, int64, error) {
	var resp api.PullEventsResponse
	path := "/api/v1/events?since=" + strconv.FormatInt(cursor, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Events, resp.Cursor, nil
}

func (c *HTTPClient) RequestUploadTarget(ctx context.Context, filename, mimeType string, sizeBytes int64) (*api.UploadTargetResponse, error) {
	var resp api.UploadTargetResponse
	req := api.UploadTargetRequest{Filename: filename, MimeType: mimeType, SizeBytes: sizeBytes}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/attachments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ResolveDownloadURL(ctx context.Context, storageKey string) (string, error) {
	var resp api.DownloadURLResponse
	path := "/api/v1/attachments/url?key=" + url.QueryEscape(storageKey)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.DownloadURL, nil
}

// doJSON performs one authorized round trip, refreshing tokens once when the
// server answers 401 with the token-expired marker.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	access, refresh := c.tokens()

	status, body, err := c.roundTrip(ctx, method, path, access, in)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && refresh != "" && apiError(body) == common.ErrTokenExpired.Error() {
		if err := c.refresh(ctx, refresh); err != nil {
			return err
		}
		access, _ = c.tokens()
		status, body, err = c.roundTrip(ctx, method, path, access, in)
		if err != nil {
			return err
		}
	}

	if status >= 400 {
		return mapError(status, apiError(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) error {
	status, body, err := c.roundTrip(ctx, http.MethodPost, "/api/v1/refresh", "", api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	if status >= 400 {
		return mapError(status, apiError(body))
	}
	var pair api.TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return fmt.Errorf("failed to decode token pair: %w", err)
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path, access string, in any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func apiError(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error
}

func mapError(status int, msg string) error {
	switch status {
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusUnauthorized:
		if msg == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrorUnauthorized
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fmt.Errorf("server error (%d): %s", status, msg)
	}
}
