package imagesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"gridpreview/pkg/auth"
	"gridpreview/pkg/config"
	errs "gridpreview/pkg/errors"
	"gridpreview/pkg/logger"
	"gridpreview/pkg/ratelimit"
	"gridpreview/pkg/retry"
)

// Source is what the HTTP and terminal surfaces need from the image source
type Source interface {
	FetchPosts(ctx context.Context, username string) ([]Post, error)
	FetchImage(ctx context.Context, imageURL string) (*Image, error)
}

// Client calls the RapidAPI scraping endpoint and the image CDN
type Client struct {
	httpClient  *http.Client
	baseURL     string
	defaultHost string
	credentials auth.Resolver
	limiter     ratelimit.Limiter
	retry       *retry.Config
	breaker     *gobreaker.CircuitBreaker
	logger      logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter rate limits posts requests
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for posts requests. Image fetches are never retried.
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the configured API. Credentials are resolved
// on every posts request; when none are found the request is sent without them
// and fails upstream.
func NewClient(cfg config.RapidAPIConfig, credentials auth.Resolver, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		defaultHost: cfg.Host,
		credentials: credentials,
		limiter:     ratelimit.Unlimited{},
		retry:       &retry.Config{MaxAttempts: 1},
		logger:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.credentials == nil {
		c.credentials = auth.Static(cfg.Key, cfg.Host)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "rapidapi-posts",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a caller hanging up says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.WarnWithFields("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return c
}

// FetchPosts returns the user's recent posts in upstream order
func (c *Client) FetchPosts(ctx context.Context, username string) ([]Post, error) {
	username = SanitizeUsername(username)
	if username == "" {
		return nil, errs.Validation("username is required")
	}

	start := time.Now()
	posts, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]Post, error) {
		if !c.limiter.Allow() {
			logger.LogRateLimit(PostsEndpoint, 0)
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errs.Transport(0, "rate limiter wait cancelled", err)
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetchPostsOnce(ctx, username)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, errs.Wrap(errs.ErrorTypeCircuitOpen, http.StatusServiceUnavailable,
					"image source temporarily unavailable", err)
			}
			return nil, err
		}
		return result.([]Post), nil
	}, c.retry)

	logger.LogUpstreamCall("fetch_posts", username, statusOf(err), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) fetchPostsOnce(ctx context.Context, username string) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, PostsURL(c.baseURL, username), nil)
	if err != nil {
		return nil, errs.Transport(0, "failed to create request", err)
	}

	key, host := "", c.defaultHost
	if creds, err := c.credentials.Resolve(); err == nil && creds != nil {
		key = creds.APIKey
		if creds.APIHost != "" {
			host = creds.APIHost
		}
	} else {
		c.logger.Debug("No API credentials resolved, sending request without them")
	}
	req.Header.Set("x-rapidapi-key", key)
	req.Header.Set("x-rapidapi-host", host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Transport(0, "network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.Transport(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transport(resp.StatusCode, "failed to read response body", err)
	}

	var envelope postsResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.ErrorWithFields("Failed to parse posts response", map[string]interface{}{
			"username":     username,
			"body_preview": preview(body),
		})
		return nil, errs.UpstreamFormat("invalid JSON", err)
	}
	if envelope.Data == nil || !isJSONArray(envelope.Data.Items) {
		c.logger.ErrorWithFields("Unexpected posts response shape", map[string]interface{}{
			"username":     username,
			"body_preview": preview(body),
		})
		return nil, errs.UpstreamFormat("response has no data.items array", nil)
	}

	var items []upstreamPost
	if err := json.Unmarshal(envelope.Data.Items, &items); err != nil {
		return nil, errs.UpstreamFormat("malformed post item", err)
	}

	posts := make([]Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, item.normalize())
	}
	return posts, nil
}

// FetchImage downloads imageURL and returns its bytes and content type
func (c *Client) FetchImage(ctx context.Context, imageURL string) (*Image, error) {
	if imageURL == "" {
		return nil, errs.Validation("image URL is required")
	}
	if !ValidateImageURL(imageURL) {
		return nil, errs.Validation("image URL must be absolute")
	}

	start := time.Now()
	img, err := c.fetchImage(ctx, imageURL)
	logger.LogUpstreamCall("fetch_image", imageURL, statusOf(err), time.Since(start), err)
	return img, err
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errs.Transport(0, "failed to create request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Transport(0, "network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.Transport(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, errs.Transport(resp.StatusCode, "failed to read image body", err)
	}
	if len(data) > MaxImageBytes {
		return nil, errs.Transport(resp.StatusCode, "image exceeds size limit", nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Image{Data: data, ContentType: contentType}, nil
}

// BreakerState reports the posts circuit breaker state
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
