package practice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/tracing"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotFound matches any 404 answer from the backend.
var ErrNotFound = errors.New("not found")

// Config configures the backend client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	// BreakerFailures consecutive failures open the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	UserAgent       string
	// MaxScriptBytes bounds a fetched prelude script.
	MaxScriptBytes int64
}

// DefaultConfig returns production defaults pointing at a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8000",
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		RateLimit:       0,
		RateBurst:       10,
		BreakerFailures: 10,
		BreakerTimeout:  30 * time.Second,
		UserAgent:       "CodeShin-Workspace/1.0",
		MaxScriptBytes:  2 << 20,
	}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("practice backend %s: %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("practice backend %s: %d %s", e.Endpoint, e.Status, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// Client talks to the practice backend.
type Client struct {
	resty     *resty.Client
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	sanitizer *bluemonday.Policy
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	config    Config
}

// NewClient creates a client with retries, rate limiting and a circuit breaker.
func NewClient(config Config, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("practice")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.MaxRetries
	retryClient.RetryWaitMin = config.RetryWaitMin
	retryClient.RetryWaitMax = config.RetryWaitMax
	retryClient.Logger = retryLogger{logger.Sugar()}
	retryClient.CheckRetry = checkRetry
	// Hand the last response to resty so the backend's error body survives.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	restyClient.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), methodKey{}, r.Method))
		tracing.Inject(r.Context(), r.Header)
		return nil
	})

	breaker := resilience.New("practice-backend", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		IsFailure: isBackendFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &Client{
		resty:     restyClient,
		limiter:   limiter,
		breaker:   breaker,
		sanitizer: bluemonday.UGCPolicy(),
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// Providers returns the client as the workspace provider set.
func (c *Client) Providers() workspace.Providers {
	return workspace.Providers{
		Problems:        c,
		Progress:        c,
		Assistant:       c,
		Recommendations: c,
		History:         c,
	}
}

// BreakerState reports the circuit breaker state for health checks.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// do sends one request built by send. Non-2xx answers become *APIError.
func (c *Client) do(ctx context.Context, endpoint string, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", endpoint, err)
	}

	timer := monitoring.NewTimer(c.metrics, endpoint)
	done, err := c.breaker.Allow()
	if err != nil {
		timer.Stop("rejected")
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}

	req := c.resty.R().SetContext(ctx).SetError(&errorBody{})
	resp, err := send(req)
	if err == nil && resp.IsError() {
		apiErr := &APIError{Endpoint: endpoint, Status: resp.StatusCode()}
		if body, ok := resp.Error().(*errorBody); ok {
			apiErr.Message = body.Error
		}
		err = apiErr
	}
	done(err)

	status := "success"
	if err != nil {
		status = "error"
		c.logger.Debug("Backend call failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
	timer.Stop(status)

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return resp, err
		}
		return resp, fmt.Errorf("%s: %w", endpoint, err)
	}
	return resp, nil
}

// isBackendFailure keeps client errors from tripping the breaker.
func isBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

type methodKey struct{}

// checkRetry retries only reads. Writes are never replayed, transport errors
// included.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	method, _ := ctx.Value(methodKey{}).(string)
	if method == "" && resp != nil && resp.Request != nil {
		method = resp.Request.Method
	}
	if method != http.MethodGet {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	l *zap.SugaredLogger
}

func (r retryLogger) Error(msg string, kv ...interface{}) { r.l.Errorw(msg, kv...) }
func (r retryLogger) Info(msg string, kv ...interface{})  { r.l.Debugw(msg, kv...) }
func (r retryLogger) Debug(msg string, kv ...interface{}) { r.l.Debugw(msg, kv...) }
func (r retryLogger) Warn(msg string, kv ...interface{})  { r.l.Warnw(msg, kv...) }
