// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/corehttp/httperr"
	"github.com/gogama/corehttp/request"
)

func TestSend(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		var gotMethod, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.Header().Set("X-Echo", "yes")
			w.WriteHeader(201)
			_, _ = w.Write([]byte("created"))
		}))
		defer server.Close()

		tr := New()
		defer func() { _ = tr.Close() }()
		req, err := request.New("POST", server.URL)
		require.NoError(t, err)
		req.SetTextBody("payload")

		resp, err := tr.Send(req)
		require.NoError(t, err)
		defer func() { _ = resp.Close() }()

		assert.Equal(t, "POST", gotMethod)
		assert.Equal(t, "payload", gotBody)
		assert.Equal(t, 201, resp.StatusCode)
		assert.Equal(t, "yes", resp.Header.Get("X-Echo"))
		b, err := resp.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "created", string(b))
	})
	t.Run("bad status is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", 500)
		}))
		defer server.Close()

		tr := New()
		defer func() { _ = tr.Close() }()
		req, err := request.New("GET", server.URL)
		require.NoError(t, err)
		resp, err := tr.Send(req)
		require.NoError(t, err)
		defer func() { _ = resp.Close() }()
		assert.Equal(t, 500, resp.StatusCode)
	})
	t.Run("dial failure is a request error", func(t *testing.T) {
		// A server stopped before the request guarantees a refused
		// connection on its former port.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		tr := New()
		req, err := request.New("GET", url)
		require.NoError(t, err)
		resp, err := tr.Send(req)
		assert.Nil(t, resp)
		assert.True(t, httperr.IsRequestError(err))
		assert.Equal(t, httperr.ConnRefused, httperr.Categorize(err))
	})
	t.Run("cancellation observed", func(t *testing.T) {
		block := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer server.Close()
		defer close(block)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		tr := New()
		defer func() { _ = tr.Close() }()
		req, err := request.NewWithContext(ctx, "GET", server.URL)
		require.NoError(t, err)
		resp, err := tr.Send(req)
		assert.Nil(t, resp)
		require.Error(t, err)
	})
	t.Run("compression left to response layer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The client must not advertise automatic gzip handling.
			assert.Empty(t, r.Header.Get("Accept-Encoding"))
			_, _ = w.Write([]byte("plain"))
		}))
		defer server.Close()

		tr := New()
		defer func() { _ = tr.Close() }()
		req, err := request.New("GET", server.URL)
		require.NoError(t, err)
		resp, err := tr.Send(req)
		require.NoError(t, err)
		defer func() { _ = resp.Close() }()
		b, err := resp.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "plain", string(b))
	})
}

func TestOpenClose(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Open())
	require.NoError(t, tr.Open())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	tr.CloseIdleConnections()

	t.Run("send reopens after close", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()
		req, err := request.New("GET", server.URL)
		require.NoError(t, err)
		resp, err := tr.Send(req)
		require.NoError(t, err)
		_ = resp.Close()
	})
}

func TestNewWithClient(t *testing.T) {
	t.Run("nil client panics", func(t *testing.T) {
		assert.Panics(t, func() { NewWithClient(nil) })
	})
	t.Run("client used", func(t *testing.T) {
		var rt countingRoundTripper
		tr := NewWithClient(&http.Client{Transport: &rt})
		req, err := request.New("GET", "https://example.com")
		require.NoError(t, err)
		resp, err := tr.Send(req)
		require.NoError(t, err)
		_ = resp.Close()
		assert.Equal(t, 1, rt.calls)
	})
}

func TestSleep(t *testing.T) {
	tr := New()
	t.Run("elapses", func(t *testing.T) {
		start := time.Now()
		err := tr.Sleep(context.Background(), 20*time.Millisecond)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})
	t.Run("zero returns immediately", func(t *testing.T) {
		require.NoError(t, tr.Sleep(context.Background(), 0))
	})
	t.Run("cancelled before", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := tr.Sleep(ctx, time.Hour)
		assert.Equal(t, context.Canceled, err)
	})
	t.Run("cancelled during", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		start := time.Now()
		err := tr.Sleep(ctx, time.Hour)
		assert.Equal(t, context.Canceled, err)
		assert.Less(t, time.Since(start), time.Hour)
	})
}

type countingRoundTripper struct {
	calls int
}

func (rt *countingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls++
	return &http.Response{
		Status:     "200 OK",
		StatusCode: 200,
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    req,
	}, nil
}
