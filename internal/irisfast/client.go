package irisfast

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// ErrPayloadRejected marks a reply the gateway refused as too large or
// malformed. Callers distinguish it from network-class failures to decide on
// the file fallback.
var ErrPayloadRejected = errors.New("iris payload rejected")

// HeaderProvider injects per-request headers (auth, session).
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendText posts a plain text reply to a room. Transient gateway errors are
// retried with backoff; payload rejections are not.
func (c *Client) SendText(ctx context.Context, room, text string) error {
	req := ReplyRequest{Type: "text", Room: room, Data: text}
	return c.doJSON(ctx, fasthttp.MethodPost, "/reply", req, nil, true)
}

// SendFile posts a document reply. Data travels base64-encoded.
func (c *Client) SendFile(ctx context.Context, room string, data []byte, name, caption string) error {
	req := FileReplyRequest{
		Type:    "file",
		Room:    room,
		Data:    base64.StdEncoding.EncodeToString(data),
		Name:    name,
		Caption: caption,
	}
	return c.doJSON(ctx, fasthttp.MethodPost, "/reply", req, nil, true)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if isPayloadRejection(status) {
			return fmt.Errorf("%w: status=%d body=%s", ErrPayloadRejected, status, truncate(string(resp.Body()), 512))
		}
		if status < 200 || status >= 300 {
			err := fmt.Errorf("iris api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if attempt == attempts || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

// 413 is the canonical over-limit answer; the gateway also answers 400/422
// for frames it cannot parse.
func isPayloadRejection(code int) bool {
	switch code {
	case fasthttp.StatusBadRequest, fasthttp.StatusRequestEntityTooLarge, fasthttp.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
