package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	RequestIDHeader = "X-Request-ID"
	contentTypeJSON = "application/json"
)

// Client calls the REST backend. Authenticated calls get their bearer token
// from the configured oauth2.TokenSource.
type Client struct {
	baseURL string
	tokens  oauth2.TokenSource
	authed  *http.Client
	anon    *http.Client
	nowTime func() time.Time
}

type ClientOption func(*Client)

// WithHTTPClient sets the client used for unauthenticated calls and as the
// base transport of authenticated ones.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.anon = hc
	}
}

// WithNowTime sets the clock used for request timing (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

func NewClient(baseURL string, tokens oauth2.TokenSource, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[api.NewClient] base URL is required")
	}
	if tokens == nil {
		return nil, errors.New("[api.NewClient] token source is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		anon:    &http.Client{Timeout: 30 * time.Second},
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}

	base := c.anon.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.authed = &http.Client{
		Timeout:   c.anon.Timeout,
		Transport: &oauth2.Transport{Source: tokens, Base: base},
	}
	return c, nil
}

// BaseURL returns the backend origin the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one backend call.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any        // encoded as JSON when non-nil
	Multipart *Multipart // takes precedence over Body
	Anonymous bool       // skip the bearer token
}

// Do performs req and decodes the envelope's result into result, which may be
// nil when the caller only cares about success.
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: err}
	}

	var env rawEnvelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Method: req.Method, Path: req.Path, Status: resp.StatusCode}
		if decodeErr == nil {
			httpErr.Message = env.Message
		}
		return httpErr
	}
	if decodeErr != nil {
		return &HTTPError{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: errors.Wrap(decodeErr, "[Client.Do] decode envelope")}
	}
	if !env.OK() {
		return &DomainError{Code: env.Code, Message: env.Message}
	}
	if result == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return &HTTPError{Method: req.Method, Path: req.Path, Status: resp.StatusCode, Err: errors.Wrap(err, "[Client.Do] decode result")}
	}
	return nil
}

// Blob is a binary response body. The caller must close Body.
type Blob struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string // from Content-Disposition, may be empty
	Size        int64  // -1 when unknown
}

// Download performs an authenticated GET returning a binary body.
func (c *Client) Download(ctx context.Context, path string, query url.Values) (*Blob, error) {
	req := Request{Method: http.MethodGet, Path: path, Query: query}
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		httpErr := &HTTPError{Method: req.Method, Path: path, Status: resp.StatusCode}
		var env rawEnvelope
		if body, readErr := io.ReadAll(resp.Body); readErr == nil && json.Unmarshal(body, &env) == nil {
			httpErr.Message = env.Message
		}
		return nil, httpErr
	}
	return &Blob{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Size:        resp.ContentLength,
	}, nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	if !req.Anonymous {
		// Missing tokens fail locally, before anything touches the network.
		if _, err := c.tokens.Token(); err != nil {
			return nil, clienterrors.Wrapf(err, "[Client.send] %s %s", req.Method, req.Path)
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	requestID := httpReq.Header.Get(RequestIDHeader)

	hc := c.authed
	if req.Anonymous {
		hc = c.anon
	}

	start := c.nowTime()
	resp, err := hc.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Str("request_id", requestID).Str("method", req.Method).Str("path", req.Path).Msg("request failed")
		return nil, &HTTPError{Method: req.Method, Path: req.Path, Err: err}
	}
	log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", c.nowTime().Sub(start)).
		Msg("request")
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Multipart != nil:
		buf, ct, err := req.Multipart.encode()
		if err != nil {
			return nil, clienterrors.Wrapf(err, "[Client.newRequest] multipart %s", req.Path)
		}
		body, contentType = buf, ct
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, clienterrors.Wrapf(err, "[Client.newRequest] encode %s", req.Path)
		}
		body, contentType = bytes.NewReader(b), contentTypeJSON
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, clienterrors.Wrapf(err, "[Client.newRequest] %s %s", req.Method, req.Path)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set(RequestIDHeader, uuid.New().String())
	return httpReq, nil
}

// Get is a typed GET returning the envelope's result.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var result T
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, &result)
	return result, err
}

// Send is a typed call with a JSON body returning the envelope's result.
func Send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var result T
	err := c.Do(ctx, Request{Method: method, Path: path, Body: body}, &result)
	return result, err
}
