package gotlist

import (
	"context"
	"net/http"
	"time"
)

// DefaultClient is the default http client shared by all downloads of a batch.
var DefaultClient = NewClient(0)

// NewClient returns an http client safe to share between workers,
// timeout 0 means no deadline.
func NewClient(timeout time.Duration) *http.Client {

	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
		Timeout: timeout,
	}
}

// NewRequest returns a new http.Request and error if any.
func NewRequest(ctx context.Context, method, URL string) (*http.Request, error) {

	if ctx == nil {
		ctx = context.Background()
	}

	return http.NewRequestWithContext(ctx, method, URL, nil)
}
