package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// AuthMethod selects how the credential is sent to GitLab
type AuthMethod string

const (
	// AuthPAT sends a personal access token in the PRIVATE-TOKEN header
	AuthPAT AuthMethod = "pat"
	// AuthOAuth sends an OAuth access token as a bearer token
	AuthOAuth AuthMethod = "oauth"
)

const (
	apiPrefix  = "/api/v4"
	maxRetries = 3
)

// RefreshFunc obtains a replacement access token after a 401. An empty token
// means the credential cannot be recovered.
type RefreshFunc func(ctx context.Context) (string, error)

// ClientConfig describes a connection to a GitLab instance
type ClientConfig struct {
	// Base URL of the instance, e.g. https://gitlab.example.com
	BaseURL string

	// Token is the personal access token or OAuth access token
	Token string

	AuthMethod AuthMethod

	// Refresh is optional; without it a 401 is returned to the caller
	Refresh RefreshFunc

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client

	// Limiter defaults to the process-wide limiter
	Limiter *Limiter
}

// GitLabClient represents a client for the GitLab REST API
type GitLabClient struct {
	baseURL    string
	authMethod AuthMethod
	refresh    RefreshFunc
	httpClient *http.Client
	limiter    *Limiter
	sleep      func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	token string
}

// NewGitLabClient creates a new GitLab API client
func NewGitLabClient(config ClientConfig) *GitLabClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limiter := config.Limiter
	if limiter == nil {
		limiter = defaultLimiter
	}
	authMethod := config.AuthMethod
	if authMethod == "" {
		authMethod = AuthPAT
	}

	return &GitLabClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		authMethod: authMethod,
		refresh:    config.Refresh,
		httpClient: httpClient,
		limiter:    limiter,
		sleep:      sleepContext,
		token:      config.Token,
	}
}

// Token returns the credential currently in use, which changes after a refresh
func (c *GitLabClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *GitLabClient) headers() http.Header {
	token := c.Token()
	header := make(http.Header)
	if c.authMethod == AuthPAT {
		header.Set("PRIVATE-TOKEN", token)
	} else {
		header.Set("Authorization", "Bearer "+token)
	}
	return header
}

// response is a successful API response
type response struct {
	body   []byte
	header http.Header
}

// Get fetches a single resource and decodes the JSON body into out
func (c *GitLabClient) Get(ctx context.Context, path string, out any) error {
	resp, err := c.request(ctx, c.baseURL+apiPrefix+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// request performs a GET inside a limiter slot. On 401 the credential is
// refreshed once and the request replayed once with the new headers.
func (c *GitLabClient) request(ctx context.Context, url string) (*response, error) {
	var resp *response
	err := c.limiter.Do(ctx, func() error {
		var err error
		resp, err = c.fetchWithRetry(ctx, url, c.headers())
		return err
	})
	if err == nil {
		return resp, nil
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		return nil, err
	}

	header, err := c.handleUnauthorized(ctx, err)
	if err != nil {
		return nil, err
	}

	err = c.limiter.Do(ctx, func() error {
		var err error
		resp, err = c.fetchWithRetry(ctx, url, header)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// handleUnauthorized refreshes the credential and returns updated headers.
// The original error is returned when no refresh is configured or it fails.
func (c *GitLabClient) handleUnauthorized(ctx context.Context, original error) (http.Header, error) {
	if c.refresh == nil {
		return nil, original
	}

	token, err := c.refresh(ctx)
	if err != nil {
		log.Printf("Warning: token refresh failed: %v", err)
		return nil, original
	}
	if token == "" {
		return nil, original
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return c.headers(), nil
}

// fetchWithRetry sends the request, backing off exponentially on 429
func (c *GitLabClient) fetchWithRetry(ctx context.Context, url string, header http.Header) (*response, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		request.Header = header.Clone()
		request.Header.Set("Accept", "application/json")

		httpResponse, err := c.httpClient.Do(request)
		if err != nil {
			return nil, fmt.Errorf("failed to request %s: %w", request.URL.Path, err)
		}

		if httpResponse.StatusCode == http.StatusTooManyRequests {
			httpResponse.Body.Close()
			delay := time.Duration(1<<attempt) * time.Second
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(httpResponse.Body)
		httpResponse.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
			return nil, newAPIError(httpResponse)
		}

		return &response{body: body, header: httpResponse.Header}, nil
	}

	return nil, &RateLimitError{Attempts: maxRetries}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
