// Package remote is the HTTP client for the storefront REST API. Responses
// are validated here; anything malformed comes back as a RemoteRejected error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/travelsync/internal/apperr"
	"github.com/Domenick1991/travelsync/internal/metrics"
	"github.com/Domenick1991/travelsync/internal/session"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

type Client struct {
	baseURL string
	http    *http.Client
	tokens  session.TokenSource
	limiter *rate.Limiter
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(baseURL string, tokens session.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticated reports whether a session token is available. It never
// touches the network beyond the token source.
func (c *Client) Authenticated(ctx context.Context) bool {
	token, err := c.tokens.Token(ctx)
	return err == nil && token != ""
}

type request struct {
	op      string
	method  string
	path    string
	body    any
	headers map[string]string
	envelope envelopeMode
}

type envelopeMode int

const (
	noEnvelope envelopeMode = iota
	// statusEnvelope requires a top-level "status" of "success" when present.
	statusEnvelope
	// dataEnvelope checks "status" only next to a "data" wrapper. Bare
	// objects may carry a status field of their own.
	dataEnvelope
)

func (m envelopeMode) applies(root gjson.Result) bool {
	switch m {
	case statusEnvelope:
		return true
	case dataEnvelope:
		return root.Get("data").Exists()
	default:
		return false
	}
}

func (c *Client) do(ctx context.Context, req request) (gjson.Result, error) {
	res, err := c.send(ctx, req)
	metrics.RecordRemoteRequest(req.op, string(apperr.KindOf(err)))
	return res, err
}

func (c *Client) send(ctx context.Context, req request) (gjson.Result, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return gjson.Result{}, apperr.Network(req.op, err)
	}
	if token == "" {
		return gjson.Result{}, apperr.Unauthenticated(req.op)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return gjson.Result{}, apperr.Network(req.op, err)
		}
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%s: marshal request: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return gjson.Result{}, apperr.Network(req.op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, apperr.Network(req.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if gjson.ValidBytes(raw) {
			msg = gjson.GetBytes(raw, "message").String()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, apperr.Rejected(req.op, resp.StatusCode, msg)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, apperr.Rejected(req.op, resp.StatusCode, "malformed response body")
	}
	root := gjson.ParseBytes(raw)

	if req.envelope.applies(root) {
		if status := root.Get("status"); status.Exists() && status.String() != "success" {
			msg := root.Get("message").String()
			if msg == "" {
				msg = "status " + status.String()
			}
			return gjson.Result{}, apperr.Rejected(req.op, resp.StatusCode, msg)
		}
	}
	return root, nil
}

func malformed(op, what string) error {
	return apperr.Rejected(op, http.StatusOK, "malformed response: "+what)
}

// payload returns "data" when the backend wraps the object, else the root.
func payload(root gjson.Result) gjson.Result {
	if data := root.Get("data"); data.IsObject() {
		return data
	}
	return root
}
