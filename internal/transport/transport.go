// Package transport sends HTTP requests with a per-attempt timeout and retries
// transient failures with exponential backoff. HTTP error statuses are returned to
// the caller as ordinary responses and are never retried here.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/metrics"
	"github.com/MrSnakeDoc/clip/internal/retry"
	"github.com/MrSnakeDoc/clip/internal/utils"
)

const (
	DefaultTimeout        = 8 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 500 * time.Millisecond

	// NoRetries disables retrying: Retry makes exactly one attempt.
	NoRetries = -1
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is a replayable request: the body is rebuilt for every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Options struct {
	Timeout        time.Duration // per attempt, 0 => DefaultTimeout
	MaxRetries     int           // retries after the first attempt, 0 => DefaultMaxRetries, NoRetries => none
	InitialBackoff time.Duration // 0 => DefaultInitialBackoff
	HTTPClient     Doer          // nil => a dedicated *http.Client
	Sleep          retry.Sleeper // nil => real timers
	Logger         logger.Logger // nil => discard
}

// Client is safe for concurrent use.
type Client struct {
	timeout time.Duration
	policy  retry.Policy
	http    Doer
	log     logger.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.HTTPClient == nil {
		// No client-level timeout: the per-attempt context owns the deadline.
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	c := &Client{
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		log:     opts.Logger,
	}
	c.policy = retry.Policy{
		MaxRetries:     opts.MaxRetries,
		InitialBackoff: opts.InitialBackoff,
		Sleep:          opts.Sleep,
		OnRetry:        c.logRetry,
	}
	return c
}

// Policy returns the retry schedule used by Retry.
func (c *Client) Policy() retry.Policy { return c.policy }

// Do performs a single attempt. It fails with a Timeout error when no response
// arrives within the configured timeout, and with a Network error on any other
// transport failure. The returned body must be closed.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(attemptCtx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		switch {
		case ctx.Err() != nil:
			// caller cancelled; not a transport fault
			return nil, fmt.Errorf("request aborted: %w", ctx.Err())
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			return nil, clipperr.Timeout(fmt.Errorf("no response from %s within %v", r.URL, c.timeout))
		default:
			return nil, clipperr.Network(err)
		}
	}

	resp.Body = &utils.CancelOnClose{ReadCloser: resp.Body, Cancel: cancel}
	return resp, nil
}

// Retry performs r, retrying timeouts and network errors. It waits
// InitialBackoff * 2^attempt between attempts and returns the last error once
// MaxRetries retries are spent.
func (c *Client) Retry(ctx context.Context, r Request) (*http.Response, error) {
	return retry.DoValue(ctx, c.policy, retryable(ctx), func(int) (*http.Response, error) {
		return c.Do(ctx, r)
	})
}

func retryable(ctx context.Context) func(error) bool {
	return func(err error) bool {
		return ctx.Err() == nil && clipperr.Retryable(err)
	}
}

func (c *Client) logRetry(attempt int, wait time.Duration, err error) {
	kind := clipperr.KindOf(err).String()
	metrics.RecordRetry(kind)
	c.log.Warn("request attempt failed, retrying",
		logger.Int("attempt", attempt),
		logger.String("kind", kind),
		logger.Duration("next_retry_in", wait),
		logger.Error(err))
}
