// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/corehttp/httperr"
	"github.com/gogama/corehttp/request"
	"github.com/gogama/corehttp/response"
)

// HTTP is a pipeline transport backed by the Go standard HTTP client
// from package net/http. Its zero value is a valid transport using a
// default client; use NewWithClient for control over connection
// pooling, proxies, TLS configuration and redirect policy.
//
// The transport disables the standard library's automatic gzip handling
// so the raw Content-Encoding reaches the response layer, where
// decompression is transparent but can be opted out of per read.
//
// HTTP is safe for concurrent use by multiple goroutines, and should be
// reused rather than created per request because the underlying client
// caches TCP connections.
type HTTP struct {
	mu     sync.Mutex
	base   *http.Client
	client *http.Client
}

// New returns a transport backed by a default net/http client.
func New() *HTTP {
	return &HTTP{}
}

// NewWithClient returns a transport backed by the given net/http
// client, which may not be nil.
//
// For the response layer's decompression and short-read detection to
// work, the client's http.Transport should set DisableCompression.
func NewWithClient(c *http.Client) *HTTP {
	if c == nil {
		panic("corehttp/transport: nil client")
	}
	return &HTTP{base: c}
}

// Open readies the transport for sending. It is idempotent and safe to
// call when the transport is already open. Send opens the transport
// implicitly, so calling Open is optional.
func (t *HTTP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openLocked()
	return nil
}

// Close releases idle connections held by the transport. It is
// idempotent and safe to call when the transport is already closed. A
// closed transport reopens implicitly on the next Send.
func (t *HTTP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		t.client.CloseIdleConnections()
		t.client = nil
	}
	return nil
}

// Send performs one HTTP request attempt and returns the response. The
// request's context governs cancellation. Connect-phase failures are
// reported as httperr.RequestError and failures after the request was
// sent as httperr.ResponseError, so the retry policy can charge the
// right budget.
func (t *HTTP) Send(req *request.Request) (*response.Response, error) {
	t.mu.Lock()
	client := t.openLocked()
	t.mu.Unlock()

	hr, err := req.ToHTTP(req.Context())
	if err != nil {
		return nil, &httperr.RequestError{Err: err}
	}
	hresp, err := client.Do(hr)
	if err != nil {
		return nil, classify(err)
	}
	return response.New(hresp), nil
}

// Sleep suspends the calling goroutine for duration d or until ctx is
// cancelled, whichever comes first. On cancellation it returns the
// context's error, so an in-progress retry backoff never delays prompt
// cancellation.
func (t *HTTP) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseIdleConnections closes connections which were previously
// connected but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
func (t *HTTP) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
}

func (t *HTTP) openLocked() *http.Client {
	if t.client == nil {
		if t.base != nil {
			t.client = t.base
		} else {
			t.client = defaultClient()
		}
	}
	return t.client
}

func defaultClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			DisableCompression:    true,
		},
	}
}

// classify maps a net/http client error into the pipeline error
// taxonomy. Failures in the dial phase (DNS resolution, TCP connect,
// and TLS handshakes surfaced through the dialer) mean the request
// never reached the peer; anything later means the response could not
// be completed.
func classify(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &httperr.RequestError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &httperr.RequestError{Err: err}
	}
	return &httperr.ResponseError{Err: err}
}
