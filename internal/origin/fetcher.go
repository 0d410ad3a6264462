// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package origin fetches live media from upstream origins. A fetch reports
// the final URL after any redirects so the connection manager can apply
// sticky-session affinity, and delivers the byte stream under a
// chunk-silence watchdog.
package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Conn is one established upstream connection.
type Conn interface {
	// FinalURL is the URL the response actually came from, after redirects.
	FinalURL() string
	// Stream copies upstream bytes into w until the origin fails, goes
	// silent, or ctx is cancelled. A clean upstream EOF returns nil.
	Stream(ctx context.Context, w io.Writer) error
	Close() error
}

// Fetcher establishes upstream connections.
type Fetcher interface {
	Connect(ctx context.Context, url string, headers map[string]string) (Conn, error)
}

// HTTPFetcher fetches origins over HTTP. Redirects are followed by the
// underlying client; the post-redirect URL is surfaced on the connection.
type HTTPFetcher struct {
	client       *http.Client
	chunkTimeout time.Duration
	userAgent    string
}

// NewHTTPFetcher builds a fetcher with an instrumented transport.
// chunkTimeout <= 0 disables the silence watchdog.
func NewHTTPFetcher(chunkTimeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		chunkTimeout: chunkTimeout,
		userAgent:    "streamrelay/1.0",
	}
}

// Connect issues the upstream request and validates the response status.
// Per-stream headers are applied to the request; the User-Agent default is
// only used when the stream does not override it.
func (f *HTTPFetcher) Connect(ctx context.Context, url string, headers map[string]string) (Conn, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrUpstream, resp.StatusCode, url)
	}

	return &httpConn{
		finalURL:     resp.Request.URL.String(),
		body:         resp.Body,
		cancel:       cancel,
		chunkTimeout: f.chunkTimeout,
	}, nil
}

type httpConn struct {
	finalURL     string
	body         io.ReadCloser
	cancel       context.CancelFunc
	chunkTimeout time.Duration
	silenced     atomic.Bool
}

func (c *httpConn) FinalURL() string { return c.finalURL }

func (c *httpConn) Stream(ctx context.Context, w io.Writer) error {
	var watchdog *time.Timer
	if c.chunkTimeout > 0 {
		// The watchdog cancels the request context, which unblocks the
		// pending Read. It is reset on every delivered chunk so a healthy
		// stream never trips it.
		watchdog = time.AfterFunc(c.chunkTimeout, func() {
			c.silenced.Store(true)
			c.cancel()
		})
		defer watchdog.Stop()
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := c.body.Read(buf)
		if n > 0 {
			if watchdog != nil {
				watchdog.Reset(c.chunkTimeout)
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("downstream write: %w", werr)
			}
		}
		if err != nil {
			switch {
			case c.silenced.Load():
				return ErrChunkSilence
			case ctx.Err() != nil:
				return ctx.Err()
			case err == io.EOF:
				return nil
			default:
				return fmt.Errorf("%w: %v", ErrUpstream, err)
			}
		}
	}
}

func (c *httpConn) Close() error {
	c.cancel()
	return c.body.Close()
}
