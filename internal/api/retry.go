package api

import (
	"context"
	"fmt"
	"time"

	"llm-stock-screener/internal/logger"
)

// RetryPolicy configures retry behavior for transient failures. Sleep is
// injectable so the backoff schedule can be tested without waiting.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used for provider fetches:
// 3 attempts, exponential backoff starting at 1s and capped at 8s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     8 * time.Second,
	}
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Retry runs fn until it succeeds or the policy is exhausted, doubling the
// wait between attempts. The last error is returned wrapped on exhaustion.
func (p *RetryPolicy) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	waitTime := p.InitialWait

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		logger.Debug(ctx, "Attempt failed", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", err)

		if attempt < p.MaxAttempts {
			if serr := p.sleep(ctx, waitTime); serr != nil {
				return serr
			}
			waitTime *= 2
			if waitTime > p.MaxWait {
				waitTime = p.MaxWait
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, lastErr)
}

// DoWithRetry executes a request with retry logic
func (c *Client) DoWithRetry(req *Request, policy *RetryPolicy) (*Response, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var resp *Response
	err := policy.Retry(req.ctx, func() error {
		var derr error
		resp, derr = c.Do(req)
		return derr
	})
	if err != nil {
		c.logError(req.ctx, "All retry attempts failed", "maxAttempts", policy.MaxAttempts, "error", err)
		return nil, err
	}
	return resp, nil
}
