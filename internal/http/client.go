// Package http fetches supplier feeds over HTTP
package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/eppla/storefront/internal/types"
)

// UserAgent is sent with every feed request
const UserAgent = "Eppla-Storefront/1.0"

// Config holds feed client configuration
type Config struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst" json:"burst"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" json:"maxBodyBytes"`
}

// DefaultConfig returns the default feed client configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		Burst:             1,
		Timeout:           60 * time.Second,
		MaxBodyBytes:      64 << 20,
	}
}

// FetchError describes a failed feed download. It unwraps to
// types.ErrFeedUnreachable.
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{types.ErrFeedUnreachable}
	}
	return []error{types.ErrFeedUnreachable, e.Cause}
}

// Client is a rate-limited feed downloader. It does not retry: a failed
// fetch is reported and retried by the operator.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     Config
}

// NewClient creates a new feed client
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		config:     config,
	}
}

// NewClientDefault creates a feed client with default configuration
func NewClientDefault() *Client {
	return NewClient(DefaultConfig())
}

// Config returns the effective configuration
func (c *Client) Config() Config {
	return c.config
}

// Fetch downloads url and returns the body. The URL, including any query
// token, is used exactly as given.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > c.config.MaxBodyBytes {
		return nil, &FetchError{URL: url, Cause: errors.New("response body exceeds size limit")}
	}

	return data, nil
}

// ComputeSha256 computes the SHA256 hash of the given data
func ComputeSha256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
