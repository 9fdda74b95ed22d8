package frigate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"frigatebot/pkg/logx"
)

// ErrUnavailable classifies network-level failures (timeouts, connection
// refused, DNS) so the poll loop can distinguish "API unreachable" from
// "API answered badly". Only the former triggers backoff.
var ErrUnavailable = errors.New("frigate unreachable")

// StatusError is a non-2xx API response. Media fetching branches on Code
// (404 means "not generated yet" and is retried differently).
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("frigate: %s returned status %d", e.Path, e.Code)
}

type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is a thin query surface over the detection API. All methods are
// single-shot; retry policy lives with the callers (media.Fetcher).
type Client struct {
	http *resty.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("frigate base url is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := resty.New()
	r.SetBaseURL(base)
	r.SetTimeout(timeout)
	if cfg.Username != "" && cfg.Password != "" {
		r.SetBasicAuth(cfg.Username, cfg.Password)
	}

	return &Client{http: r, log: log}, nil
}

// Version probes GET /api/version. Used as the startup liveness check and by
// the /status command.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/api/version")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return "", &StatusError{Code: resp.StatusCode(), Path: "/api/version"}
	}
	return strings.TrimSpace(string(resp.Body())), nil
}

// Blob issues a raw GET against an API-relative path (e.g.
// "events/<id>/preview.gif") and returns the payload plus its content type.
// No retry here: the retry budget belongs to media.Fetcher.
func (c *Client) Blob(ctx context.Context, path string) ([]byte, string, error) {
	path = strings.TrimLeft(path, "/")
	resp, err := c.http.R().SetContext(ctx).Get("/api/" + path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, "", &StatusError{Code: resp.StatusCode(), Path: path}
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
