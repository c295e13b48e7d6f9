// Package httpclient holds the outbound HTTP stack used to reach other
// services: a pooled client that retries transient failures, a circuit
// breaker in front of it, and decoding of structured error bodies.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Doer sends a request. *Client and *Breaker both implement it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type Config struct {
	// Timeout bounds a single attempt, retries excluded.
	Timeout    time.Duration
	MaxRetries int
	// BackoffMin is the first retry delay; it doubles per attempt up to
	// BackoffMax.
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns settings suited to an internal service called on the
// request path.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		BackoffMin:      100 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MaxConnsPerHost: 50,
	}
}

// Client retries network errors and 5xx answers other than 501 with jittered
// exponential backoff.
type Client struct {
	hc  *http.Client
	cfg Config
}

// New builds a client with its own pooled transport.
func New(cfg Config) *Client {
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = 50 * time.Millisecond
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          2 * cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		hc:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg: cfg,
	}
}

// Do sends req, replaying its body through GetBody on retries. The last
// response is returned as is once retries run out, so callers still see the
// upstream status.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.hc.Do(req)
		if attempt >= c.cfg.MaxRetries || !retryable(resp, err) {
			if err != nil {
				return nil, fmt.Errorf("%s %s (attempt %d): %w", req.Method, req.URL.Redacted(), attempt+1, err)
			}
			return resp, nil
		}

		wait := c.backoff(attempt)
		if resp != nil {
			if ra := retryAfter(resp); ra > 0 && ra <= c.cfg.BackoffMax {
				wait = ra
			}
			resp.Body.Close()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffMin << attempt
	if d <= 0 || d > c.cfg.BackoffMax {
		d = c.cfg.BackoffMax
	}
	return jitter(d)
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// jitter spreads d uniformly over [0.75d, 1.25d].
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := int64(d) / 2
	return d - time.Duration(half/2) + time.Duration(rand.Int64N(half+1))
}
