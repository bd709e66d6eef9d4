package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pders01/readerlink/internal/debuglog"
)

// Request describes one provider call. At most one of Form, JSON and Text
// is used as the body.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Form   url.Values
	JSON   any
	Text   *string
}

// Response is a fully read provider response.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err converts the response into an APIError.
func (r *Response) Err() *APIError {
	return NewAPIError(r.Status, string(r.Body))
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// RefreshFunc exchanges a refresh token for a new access token.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

// Client is the HTTP helper shared by all adaptors of one provider.
type Client struct {
	provider  Provider
	http      *http.Client
	userAgent string
}

// NewClient creates a client with the provider's timeout.
func NewClient(provider Provider, cfg ProviderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		provider:  provider,
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

// Do sends req and reads the whole body. Only transport and encoding
// failures are returned as errors; the status is left to the caller.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	debuglog.WithFields(map[string]any{
		"provider": c.provider.Key(),
		"method":   httpReq.Method,
		"path":     httpReq.URL.Path,
	}).Debugf("provider request")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		requestsTotal.WithLabelValues(c.provider.Key(), "error").Inc()
		return nil, fmt.Errorf("%s request %s: %w", c.provider.Key(), httpReq.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(c.provider.Key(), "error").Inc()
		return nil, fmt.Errorf("reading %s response: %w", c.provider.Key(), err)
	}

	requestsTotal.WithLabelValues(c.provider.Key(), strconv.Itoa(resp.StatusCode)).Inc()
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// Expect sends req and turns any non-2xx status into an APIError.
func (c *Client) Expect(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.Err()
	}
	return resp, nil
}

// Authorized runs an authenticated call built by build for the session's
// current access token. A 401 or 403 triggers exactly one refresh through
// refresh followed by exactly one retry that never refreshes again. A nil
// refresh makes 401 and 403 terminal.
func (c *Client) Authorized(ctx context.Context, s *Session, refresh RefreshFunc, build func(accessToken string) *Request) (*Response, error) {
	resp, err := c.Do(ctx, build(s.AccessToken()))
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		return resp, nil
	}
	if refresh == nil || !IsUnauthorized(resp.Status) {
		return nil, resp.Err()
	}

	debuglog.WithFields(map[string]any{
		"provider": c.provider.Key(),
		"status":   resp.Status,
	}).Infof("access token rejected, refreshing")

	accessToken, err := refresh(ctx, s.RefreshToken())
	if err != nil {
		refreshTotal.WithLabelValues(c.provider.Key(), "failed").Inc()
		debuglog.Warnf("%s token refresh failed: %v", c.provider.Key(), err)
		return nil, err
	}
	refreshTotal.WithLabelValues(c.provider.Key(), "ok").Inc()
	s.update(accessToken)

	return c.Expect(ctx, build(accessToken))
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing request URL: %w", err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case req.Text != nil:
		body = strings.NewReader(*req.Text)
		contentType = "text/plain"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	return httpReq, nil
}

// Bearer returns an Authorization header for OAuth providers.
func Bearer(accessToken string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}
