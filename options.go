// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package corehttp

import (
	"github.com/rs/zerolog"

	"github.com/gogama/corehttp/pipeline"
	"github.com/gogama/corehttp/retry"
	"github.com/gogama/corehttp/transport"
)

// ClientOptions configures a Client's policy pipeline.
//
// The zero value is usable and selects the default transport, default
// retry behavior, and no optional policies.
type ClientOptions struct {
	// Transport is the terminal transport sending requests over the
	// wire. Nil selects a default transport.New().
	Transport pipeline.Transport

	// Retry configures the retry policy. The zero value selects the
	// documented retry defaults.
	Retry retry.Options

	// PerCallPolicies run once per operation, before the retry policy.
	// Place policies whose work must not repeat on resend here, such as
	// a policy assigning a stable per-operation request ID.
	PerCallPolicies []pipeline.Policy

	// PerRetryPolicies run once per attempt, after the retry policy.
	// Place policies whose work must be fresh on every resend here,
	// such as an authentication policy attaching a current token.
	PerRetryPolicies []pipeline.Policy

	// Logger, when non-nil, enables a per-attempt logging policy
	// writing to it. Nil disables request logging entirely.
	Logger *zerolog.Logger

	// UserAgent is prepended to the default User-Agent value. Empty
	// means the default value alone.
	UserAgent string

	// DisableRequestID disables the policy assigning an X-Request-Id
	// header to requests that do not already carry one.
	DisableRequestID bool
}

// NewPipeline assembles the standard corehttp pipeline from opts: the
// ambient per-call policies, then the caller's per-call policies, the
// retry policy, the caller's per-retry policies, and the per-attempt
// logging policy, terminating in the transport.
//
// Client uses NewPipeline internally; call it directly to run the
// standard pipeline without the Client convenience layer.
func NewPipeline(opts *ClientOptions) *pipeline.Pipeline {
	if opts == nil {
		opts = &ClientOptions{}
	}
	t := opts.Transport
	if t == nil {
		t = transport.New()
	}

	var policies []pipeline.Policy
	if !opts.DisableRequestID {
		policies = append(policies, requestIDPolicy{})
	}
	policies = append(policies, userAgentPolicy{value: userAgentValue(opts.UserAgent)})
	policies = append(policies, opts.PerCallPolicies...)
	policies = append(policies, retry.New(opts.Retry))
	policies = append(policies, opts.PerRetryPolicies...)
	if opts.Logger != nil {
		policies = append(policies, logPolicy{logger: opts.Logger})
	}

	return pipeline.New(t, policies...)
}
