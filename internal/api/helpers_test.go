package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// recordingSleep replaces backoff sleeps and records the requested delays
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestClient(t *testing.T, handler http.Handler, config ClientConfig) (*GitLabClient, *recordingSleep) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config.BaseURL = server.URL
	if config.Token == "" {
		config.Token = "test-token"
	}
	if config.Limiter == nil {
		config.Limiter = NewLimiter(MaxConcurrentRequests)
	}
	client := NewGitLabClient(config)
	sleeper := &recordingSleep{}
	client.sleep = sleeper.sleep
	return client, sleeper
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}
