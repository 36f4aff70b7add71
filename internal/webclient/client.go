// Package webclient talks to a cheese-web server: JSON intents over fasthttp and the event stream
// over a websocket.
package webclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-web/pkg/chessdto"
)

// APIError is a non-2xx reply. Code is set when the server sent a chessdto.DomainError body.
type APIError struct {
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("cheese-web api error: status=%d code=%s: %s", e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("cheese-web api error: status=%d body=%s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithRetry sets how many attempts idempotent reads get.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State(ctx context.Context) (*chessdto.SessionState, error) {
	var st chessdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/state", nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Select(ctx context.Context, square string) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/select", chessdto.SelectRequest{Square: square})
}

func (c *Client) Move(ctx context.Context, from, to string) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/move", chessdto.MoveRequest{From: from, To: to})
}

func (c *Client) Undo(ctx context.Context) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/undo", nil)
}

func (c *Client) Reset(ctx context.Context) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/reset", nil)
}

func (c *Client) Flip(ctx context.Context) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/flip", nil)
}

func (c *Client) ToggleSound(ctx context.Context) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/sound", nil)
}

func (c *Client) ToggleClock(ctx context.Context) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/clock", nil)
}

func (c *Client) SetTimeControl(ctx context.Context, tc chessdto.TimeControl) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/time-control", tc)
}

func (c *Client) SetTheme(ctx context.Context, name string) (*chessdto.IntentResponse, error) {
	return c.intent(ctx, "/api/theme", chessdto.ThemeRequest{Name: name})
}

// Export downloads the PGN and the file name the server suggests for it.
func (c *Client) Export(ctx context.Context) (string, []byte, error) {
	body, header, err := c.doRaw(ctx, "/api/export")
	if err != nil {
		return "", nil, err
	}
	name := "game.pgn"
	if _, params, perr := mime.ParseMediaType(header); perr == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, body, nil
}

func (c *Client) BoardPNG(ctx context.Context) ([]byte, error) {
	body, _, err := c.doRaw(ctx, "/api/board.png")
	return body, err
}

func (c *Client) intent(ctx context.Context, path string, in any) (*chessdto.IntentResponse, error) {
	var out chessdto.IntentResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// doRaw GETs path and returns the body and the Content-Disposition header.
func (c *Client) doRaw(ctx context.Context, path string) ([]byte, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, "", apiError(status, resp.Body())
	}
	body := append([]byte(nil), resp.Body()...)
	return body, string(resp.Header.Peek("Content-Disposition")), nil
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

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := apiError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
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

func apiError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: truncate(string(body), 512)}
	var derr chessdto.DomainError
	if json.Unmarshal(body, &derr) == nil && derr.Code != "" {
		e.Code, e.Body = derr.Code, derr.Message
	}
	return e
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
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
