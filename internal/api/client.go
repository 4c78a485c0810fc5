// Package api is the HTTP client for the remote document API. Every response
// is classified into an apierr kind here, so callers never look at status
// codes.
package api

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
	"time"

	"go.uber.org/zap"
)

const (
	defaultRequestTimeout  = 30 * time.Second
	defaultDownloadTimeout = 60 * time.Second
	defaultUploadTimeout   = 60 * time.Second
	defaultPreviewTimeout  = 30 * time.Second
	defaultUserAgent       = "vaultdesk"
)

// Options configures a Client.
type Options struct {
	BaseURL          string
	Tokens           TokenSource
	OnSessionExpired func()
	Logger           *zap.Logger
	UserAgent        string
	// Base is the underlying round tripper, http.DefaultTransport when nil.
	Base http.RoundTripper

	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
	PreviewTimeout  time.Duration
}

// Client talks to the document API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger

	requestTimeout  time.Duration
	downloadTimeout time.Duration
	uploadTimeout   time.Duration
	previewTimeout  time.Duration
}

// New builds a client. BaseURL is the server root, e.g. http://localhost:5000.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		baseURL:         base,
		logger:          logger,
		requestTimeout:  orDefault(opts.RequestTimeout, defaultRequestTimeout),
		downloadTimeout: orDefault(opts.DownloadTimeout, defaultDownloadTimeout),
		uploadTimeout:   orDefault(opts.UploadTimeout, defaultUploadTimeout),
		previewTimeout:  orDefault(opts.PreviewTimeout, defaultPreviewTimeout),
	}
	c.http = &http.Client{
		Transport: &Transport{
			Base:             opts.Base,
			Tokens:           opts.Tokens,
			UserAgent:        userAgent,
			OnSessionExpired: opts.OnSessionExpired,
			Logger:           logger,
		},
		// The API never redirects; a redirect would drop the auth header.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// call performs a JSON request under the default request timeout. in and out
// may be nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, pc pinContext) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	op := strings.ToLower(method) + " " + path
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err, op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, pc)
	}
	if err := decodeJSON(resp, out); err != nil {
		return classifyRead(ctx, err, op)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
