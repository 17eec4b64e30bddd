// Package apiclient is the single HTTP client used for all backend traffic.
//
// Every request passes through the registered request interceptors before it
// is sent, and every response or transport error passes through the response
// interceptors before it reaches the caller.
package apiclient

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

	"noote/client/internal/logging"
)

// RequestInterceptor may modify an outbound request. A non-nil error aborts
// the call before anything is sent.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes the outcome of a call. err is non-nil for
// transport failures and non-2xx responses; in that case resp has already
// been drained and closed.
type ResponseInterceptor func(req *http.Request, resp *http.Response, err error) (*http.Response, error)

// Client wraps http.Client with a base URL, default headers and interceptors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	headers    http.Header

	mu       sync.RWMutex
	outbound []RequestInterceptor
	inbound  []ResponseInterceptor
}

// Options overrides client dependencies.
type Options struct {
	HTTPClient *http.Client
	Logger     *logging.Logger
	Timeout    time.Duration
}

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// New creates a client for baseURL, e.g. http://localhost:8000/api/v1.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("baseURL %q is not absolute", baseURL)
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	return &Client{
		baseURL:    strings.TrimRight(parsed.String(), "/"),
		httpClient: client,
		logger:     logger,
		headers:    headers,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// UseRequest appends outbound interceptors. They run in registration order.
func (c *Client) UseRequest(interceptors ...RequestInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outbound = append(c.outbound, interceptors...)
}

// UseResponse appends inbound interceptors. They run in registration order.
func (c *Client) UseResponse(interceptors ...ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbound = append(c.inbound, interceptors...)
}

// Request describes one backend call. At most one of JSON and Form is used.
type Request struct {
	Op     string
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   url.Values
	Header http.Header
}

// Get is a shorthand for a GET request decoded into out.
func (c *Client) Get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends payload as JSON.
func (c *Client) Post(ctx context.Context, op, path string, payload, out any) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodPost, Path: path, JSON: payload}, out)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, op, path string, form url.Values, out any) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodPost, Path: path, Form: form}, out)
}

// Put sends payload as JSON.
func (c *Client) Put(ctx context.Context, op, path string, payload, out any) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodPut, Path: path, JSON: payload}, out)
}

func (c *Client) Delete(ctx context.Context, op, path string) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodDelete, Path: path}, nil)
}

// Do runs r through the interceptor chain and decodes a successful JSON body
// into out (which may be nil).
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	op := r.Op
	if op == "" {
		op = r.Method + " " + r.Path
	}
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return wrapError(op, ErrorKindRequest, err)
	}
	outbound, inbound := c.interceptors()
	for _, intercept := range outbound {
		if err := intercept(req); err != nil {
			return &Error{Op: op, Kind: ErrorKindRequest, Method: r.Method, Path: r.Path, Err: err}
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		resp = nil
		err = &Error{Op: op, Kind: ErrorKindNetwork, Method: r.Method, Path: r.Path, Err: err}
	} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		err = statusError(op, r.Method, r.Path, resp.StatusCode, body)
	}

	for _, intercept := range inbound {
		resp, err = intercept(req, resp, err)
	}
	if err != nil {
		c.logger.Debugf("%s %s failed after %s: %v", r.Method, r.Path, time.Since(started).Round(time.Millisecond), err)
		return err
	}
	if resp == nil {
		return &Error{Op: op, Kind: ErrorKindNetwork, Method: r.Method, Path: r.Path, Err: errors.New("no response")}
	}
	defer resp.Body.Close()
	c.logger.Debugf("%s %s -> %d in %s", r.Method, r.Path, resp.StatusCode, time.Since(started).Round(time.Millisecond))

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Op: op, Kind: ErrorKindDecode, Method: r.Method, Path: r.Path, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	if r.Method == "" {
		return nil, errors.New("method is empty")
	}
	if !strings.HasPrefix(r.Path, "/") {
		return nil, fmt.Errorf("path %q must start with /", r.Path)
	}
	full := c.baseURL + r.Path
	if len(r.Query) > 0 {
		full += "?" + r.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.JSON != nil:
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(r.JSON); err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, full, body)
	if err != nil {
		return nil, err
	}
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range r.Header {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	return req, nil
}

func (c *Client) interceptors() ([]RequestInterceptor, []ResponseInterceptor) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]RequestInterceptor(nil), c.outbound...), append([]ResponseInterceptor(nil), c.inbound...)
}
