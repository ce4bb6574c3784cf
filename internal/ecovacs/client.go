package ecovacs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/robotctl/internal/infrastructure/config"
)

// Upstream endpoint identifiers, relative to the base URL.
const (
	// EndpointRobotControl accepts device commands and state queries.
	EndpointRobotControl = "robot/ctl"

	// EndpointDeviceList lists the devices bound to the API key.
	EndpointDeviceList = "robot/deviceList"
)

const (
	// defaultTimeout applies when the configured timeout is not positive.
	defaultTimeout = 10 * time.Second

	// maxResponseSize caps how much of a response body is read (4MB).
	maxResponseSize = 4 << 20
)

// Method selects how parameters travel to the upstream.
type Method string

// Supported methods. Anything other than MethodGet is sent as MethodPost.
const (
	MethodGet  Method = "get"
	MethodPost Method = "post"
)

// ParseMethod maps a case-insensitive method name to a Method.
// Unknown names fall back to MethodPost.
func ParseMethod(s string) Method {
	if strings.EqualFold(strings.TrimSpace(s), string(MethodGet)) {
		return MethodGet
	}
	return MethodPost
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client performs calls against the Ecovacs open platform.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Client from the upstream configuration.
//
// An empty API key is valid: calls are still attempted, just without "ak".
//
// Parameters:
//   - cfg: Upstream configuration (base URL, API key, timeout)
//
// Returns:
//   - *Client: Client ready for use
//   - error: ErrInvalidBaseURL if the base URL is not absolute http(s)
func New(cfg config.UpstreamConfig) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: timeout,
			// A redirect is a non-2xx answer, not a new target.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// SetLogger sets a logger for call outcomes. If not set, calls are silent.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

// Call performs one upstream call and always returns an Envelope.
//
// Any failure (transport, status, decoding) is folded into the standard
// failure envelope with code -1. Upstream business errors are returned as
// sent.
//
// Parameters:
//   - ctx: Context for cancellation; the configured timeout applies on top
//   - endpoint: Endpoint identifier such as EndpointRobotControl
//   - params: Request parameters; values are stringified before sending
//   - method: MethodGet for a query string, MethodPost for a JSON body
//
// Returns:
//   - Envelope: Upstream envelope or failure envelope
func (c *Client) Call(ctx context.Context, endpoint string, params Params, method Method) (env Envelope) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			env = Failure(fmt.Errorf("panic: %v", r))
		}
	}()

	env, err := c.Do(ctx, endpoint, params, method)
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("upstream call failed",
				"endpoint", endpoint,
				"method", string(method),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
		}
		return Failure(err)
	}

	if logger := c.getLogger(); logger != nil {
		logger.Debug("upstream call complete",
			"endpoint", endpoint,
			"method", string(method),
			"code", env.Code,
			"items", len(env.Data),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return env
}

// Do performs one upstream call and reports failures as errors.
//
// Returns:
//   - Envelope: Decoded upstream envelope (zero value on error)
//   - error: Transport error, ErrUnexpectedStatus, or ErrDecodeResponse
func (c *Client) Do(ctx context.Context, endpoint string, params Params, method Method) (Envelope, error) {
	values := stringify(params)
	if c.apiKey != "" {
		values[CredentialKey] = c.apiKey
	}

	req, err := c.newRequest(ctx, c.endpointURL(endpoint), values, method)
	if err != nil {
		return Envelope{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Envelope{}, redactURLError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return Envelope{}, fmt.Errorf("reading response: %w", redactURLError(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Envelope{}, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	return decodeEnvelope(body)
}

// newRequest builds the HTTP request for the chosen method.
func (c *Client) newRequest(ctx context.Context, target string, values map[string]string, method Method) (*http.Request, error) {
	if method == MethodGet {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("building request URL: %w", err)
		}
		q := u.Query()
		for k, v := range values {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", redactURLError(err))
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	payload, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// endpointURL joins the base URL and endpoint with a single slash.
func (c *Client) endpointURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// decodeEnvelope parses a response body into an Envelope.
func decodeEnvelope(body []byte) (Envelope, error) {
	if len(body) > maxResponseSize {
		return Envelope{}, fmt.Errorf("%w: body exceeds %d bytes", ErrDecodeResponse, maxResponseSize)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: expected a JSON object", ErrDecodeResponse)
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	if env.Data == nil {
		env.Data = Items{}
	}

	return env, nil
}

// redactURLError strips the query string from URL errors. GET requests
// carry the API key in the query, and error text is returned to callers.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		u.RawQuery = ""
		urlErr.URL = u.String()
	}
	return err
}
