package nest

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLoginURL = "https://home.nest.com/user/login"
	// UserAgent is the client signature the service expects from its mobile app.
	UserAgent = "Nest/3.0.1.15 (iOS) os=6.0 platform=iPad3,1"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

// Client talks to the private Nest HTTP API. It holds no session state; the
// session is passed to every call.
type Client struct {
	loginURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithLoginURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.loginURL = u
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its transport is wrapped so that
// compressed responses are still decoded.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		loginURL:   DefaultLoginURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	transport := c.httpClient.Transport
	if _, ok := transport.(*decompressingTransport); !ok {
		hc := *c.httpClient
		hc.Transport = newDecompressingTransport(transport)
		c.httpClient = &hc
	}
	return c
}

func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, &TransportError{Err: err}
	}
	requestTotal.WithLabelValues(endpoint, http.StatusText(resp.StatusCode)).Inc()
	return resp, nil
}

func readErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return string(body)
}

func setSessionHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Basic "+accessToken)
	req.Header.Set("user-agent", UserAgent)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func isAuthFailure(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
