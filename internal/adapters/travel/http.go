package travel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"itinerary-service/internal/ports"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPStatusError is returned for any non-2xx provider response.
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Unwrap maps quota and auth statuses onto the provider sentinels so callers
// can errors.Is without knowing the transport.
func (e *HTTPStatusError) Unwrap() error {
	switch e.Code {
	case http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ports.ErrRequestDenied
	}
	return nil
}

// client wraps http.Client with the retry policy shared by every provider.
type client struct {
	session   *http.Client
	backoff   time.Duration
	attempts  int
	setHeader func(*http.Request)
}

func newClient(session *http.Client, setHeader func(*http.Request)) *client {
	if session == nil {
		session = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &client{
		session:   session,
		backoff:   200 * time.Millisecond,
		attempts:  4,
		setHeader: setHeader,
	}
}

func (c *client) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.setHeader != nil {
		c.setHeader(req)
	}

	return req, nil
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries network errors and 5xx responses with exponential backoff
// while respecting context cancellation. 429 is returned at once so the caller
// can fall back instead of burning quota.
func (c *client) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := c.backoff

	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *HTTPStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) && ctx.Err() == nil {
			retry = true
		}

		if !retry || attempt == c.attempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
