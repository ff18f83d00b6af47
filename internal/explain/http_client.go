package explain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/clever-forecast/internal/logger"
)

// HTTPClientConfig holds configuration for the explainability HTTP client
type HTTPClientConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	Burst             int
	CircuitBreakerMax int           // max consecutive failures before circuit break
	CooldownPeriod    time.Duration // open time before a half-open trial request
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        2,
		RetryWaitMin:      50 * time.Millisecond,
		RetryWaitMax:      500 * time.Millisecond,
		RateLimit:         50.0,
		Burst:             10,
		CircuitBreakerMax: 5,
		CooldownPeriod:    30 * time.Second,
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and circuit breaker
type RateLimitedHTTPClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int
	cooldown          time.Duration
	logger            *logrus.Logger
	audit             *logger.AuditLogger

	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	halfOpen          bool
	openedAt          time.Time
	lastError         error
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, log *logrus.Logger) *RateLimitedHTTPClient {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.Logger = logrusLeveledLogger{entry: log.WithField("component", "explain_client")}

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		cooldown:          cfg.CooldownPeriod,
		logger:            log,
		audit:             logger.NewAuditLogger(log),
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker.
// After the cooldown an open breaker lets one trial request through; its
// success closes the breaker and its failure reopens it.
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *retryablehttp.Request) (*http.Response, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.mu.Lock()
		c.halfOpen = false
		c.mu.Unlock()
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.client.Do(req.WithContext(ctx))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	if resp.StatusCode >= 500 {
		if c.halfOpen {
			c.recordFailure(fmt.Errorf("status %d", resp.StatusCode))
		}
		return resp, nil
	}

	if c.isOpen {
		c.audit.LogCircuitBreakerEvent("explainability", "CLOSED", c.consecutiveErrors)
	}
	c.consecutiveErrors = 0
	c.isOpen = false
	c.halfOpen = false
	c.lastError = nil
	return resp, nil
}

// acquire rejects requests while the breaker is open and admits a single
// trial once the cooldown has passed
func (c *RateLimitedHTTPClient) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return nil
	}
	if c.halfOpen || time.Since(c.openedAt) < c.cooldown {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, c.lastError)
	}
	c.halfOpen = true
	c.audit.LogCircuitBreakerEvent("explainability", "HALF_OPEN", c.consecutiveErrors)
	return nil
}

// recordFailure must be called with mu held
func (c *RateLimitedHTTPClient) recordFailure(err error) {
	c.consecutiveErrors++
	c.lastError = err

	if c.halfOpen {
		c.halfOpen = false
		c.openedAt = time.Now()
		c.audit.LogCircuitBreakerEvent("explainability", "REOPENED", c.consecutiveErrors)
		return
	}
	if c.circuitBreakerMax > 0 && c.consecutiveErrors >= c.circuitBreakerMax && !c.isOpen {
		c.isOpen = true
		c.openedAt = time.Now()
		c.audit.LogCircuitBreakerEvent("explainability", "OPENED", c.consecutiveErrors)
	}
}

// Reset closes the circuit breaker
func (c *RateLimitedHTTPClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		c.audit.LogCircuitBreakerEvent("explainability", "CLOSED", c.consecutiveErrors)
	}
	c.consecutiveErrors = 0
	c.isOpen = false
	c.halfOpen = false
	c.lastError = nil
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// Retry on network errors
			return true, err
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}

// logrusLeveledLogger adapts a logrus entry to retryablehttp.LeveledLogger
type logrusLeveledLogger struct {
	entry *logrus.Entry
}

func (l logrusLeveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.entry.WithFields(fields)
}

func (l logrusLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l logrusLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l logrusLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l logrusLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
