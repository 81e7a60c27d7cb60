// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package corehttp

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gogama/corehttp/pipeline"
	"github.com/gogama/corehttp/response"
)

const requestIDHeader = "X-Request-Id"

// requestIDPolicy assigns a fresh UUID to the X-Request-Id header of
// any request that does not already carry one. It runs per call, not
// per attempt, so every resend of an operation shares one ID.
type requestIDPolicy struct{}

func (requestIDPolicy) Do(x *pipeline.Exchange) (*response.Response, error) {
	h := x.Request().Header
	if h.Get(requestIDHeader) == "" {
		h.Set(requestIDHeader, uuid.NewString())
	}
	return x.Next()
}

// userAgentPolicy sets the User-Agent header unless the request already
// carries one.
type userAgentPolicy struct {
	value string
}

func (p userAgentPolicy) Do(x *pipeline.Exchange) (*response.Response, error) {
	h := x.Request().Header
	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", p.value)
	}
	return x.Next()
}

func userAgentValue(prefix string) string {
	base := fmt.Sprintf("corehttp/%s (%s; %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if prefix == "" {
		return base
	}
	return prefix + " " + base
}

// logPolicy logs each request attempt at debug level: method and URL on
// the way out, status or error and elapsed time on the way back. It
// never logs headers or bodies.
type logPolicy struct {
	logger *zerolog.Logger
}

func (p logPolicy) Do(x *pipeline.Exchange) (*response.Response, error) {
	req := x.Request()
	p.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("sending request")

	start := time.Now()
	resp, err := x.Next()
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("request failed")
		return nil, err
	}
	p.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dur("elapsed", elapsed).
		Int("status", resp.StatusCode).
		Msg("received response")
	return resp, nil
}
