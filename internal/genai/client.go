// Package genai calls the Gemini generateContent REST API. The bot has no
// server-side conversation state: the caller sends the entire remembered
// context on every request.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var ErrEmptyResponse = errors.New("gemini returned no candidates")

type Client struct {
	baseURL string
	apiKey  string
	model   string

	http           *fasthttp.Client
	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		model:          model,
		http:           &fasthttp.Client{ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second},
		defaultTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends the context blob as a single user turn and returns the model
// text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model))
	req.Header.SetContentType("application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.SetBody(body)

	deadline := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return "", fmt.Errorf("gemini api error: status=%d body=%s", status, truncateBody(resp.Body(), 512))
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func truncateBody(b []byte, n int) string {
	s := string(b)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
