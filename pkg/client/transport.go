package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sternrassler/cbbd-client/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// maxResponseBytes bounds the size of a single API response body.
const maxResponseBytes = 64 << 20

// Transport performs a single logical API call and returns the raw JSON
// payload. Implementations own timeouts, retries and authentication.
type Transport interface {
	Execute(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)

// Execute calls f.
func (f TransportFunc) Execute(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return f(ctx, endpoint, params)
}

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client

	// Limiter paces requests. Defaults to ratelimit.DefaultConfig.
	Limiter *ratelimit.Limiter

	// Retry defaults to RetryConfigForErrorClass.
	Retry RetryPolicy

	// BreakerFailures is the number of consecutive failures that opens
	// the circuit. Defaults to 5.
	BreakerFailures uint32

	// BreakerTimeout is how long the circuit stays open. Defaults to 30s.
	BreakerTimeout time.Duration

	Logger *zerolog.Logger
}

// HTTPTransport calls the CBBD REST API over HTTP.
type HTTPTransport struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
	limiter   *ratelimit.Limiter
	retry     RetryPolicy
	breaker   *gobreaker.CircuitBreaker
	logger    zerolog.Logger
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	logger := log.With().Str("component", "transport").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Limiter == nil {
		rl := ratelimit.DefaultConfig()
		rl.Logger = &logger
		cfg.Limiter = ratelimit.NewLimiter(rl)
	}
	if cfg.Retry == nil {
		cfg.Retry = RetryConfigForErrorClass
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cbbd-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			circuitState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("circuit", name).
				Str("from_state", from.String()).
				Str("to_state", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
	circuitState.WithLabelValues("cbbd-api").Set(float64(gobreaker.StateClosed))

	return &HTTPTransport{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		client:    cfg.HTTPClient,
		limiter:   cfg.Limiter,
		retry:     cfg.Retry,
		breaker:   breaker,
		logger:    logger,
	}
}

// Limiter returns the transport's rate limiter.
func (t *HTTPTransport) Limiter() *ratelimit.Limiter {
	return t.limiter
}

// BreakerState returns the current circuit breaker state.
func (t *HTTPTransport) BreakerState() gobreaker.State {
	return t.breaker.State()
}

// Execute performs a GET request with rate limiting, circuit breaking and
// retries. Client errors (4xx other than 429) are returned without retry
// and do not count against the circuit.
func (t *HTTPTransport) Execute(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	label := endpointLabel(endpoint)
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	var body json.RawMessage
	err := retryWithBackoff(ctx, t.retry, t.logger, func() error {
		var clientErr error
		out, err := t.breaker.Execute(func() (interface{}, error) {
			data, err := t.do(ctx, endpoint, label, params)
			if errorClassOf(err) == ErrorClassClient {
				clientErr = err
				return nil, nil
			}
			return data, err
		})
		if clientErr != nil {
			return clientErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			requestsTotal.WithLabelValues(label, "circuit_open").Inc()
			return fmt.Errorf("%w: %s", ErrCircuitOpen, endpoint)
		}
		if err != nil {
			return err
		}
		body = out.(json.RawMessage)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// do performs one HTTP attempt.
func (t *HTTPTransport) do(ctx context.Context, endpoint, label string, params url.Values) (json.RawMessage, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := t.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	t.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", params.Encode()).
		Msg("Executing CBBD request")

	resp, err := t.client.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(label, "network_error").Inc()
		return nil, &APIError{
			Class:    ErrorClassNetwork,
			Endpoint: endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	t.limiter.Observe(ctx, resp.StatusCode, resp.Header)
	requestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := ClassifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		t.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("CBBD request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Endpoint:   endpoint,
			Message:    errorMessage(data, resp.Status),
		}
	}

	if readErr != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "read response body",
			Err:        readErr,
		}
	}

	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("decode response from %s: invalid JSON", endpoint)
	}
	return json.RawMessage(data), nil
}

// maxErrorMessage bounds the runes of a plain-text error body kept in an APIError.
const maxErrorMessage = 200

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	if utf8.RuneCountInString(text) > maxErrorMessage {
		text = string([]rune(text)[:maxErrorMessage]) + "..."
	}
	return text
}
