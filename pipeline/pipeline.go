// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"time"

	"github.com/gogama/corehttp/request"
	"github.com/gogama/corehttp/response"
)

// A Transport performs the actual network I/O at the end of a pipeline,
// and owns the connection lifecycle.
//
// Send sends one HTTP request attempt and returns the response. A
// failure to connect (DNS, dial, TLS handshake) must be reported as a
// httperr.RequestError; a failure after the request was sent but before
// a complete response was received must be reported as a
// httperr.ResponseError. The request's context governs cancellation of
// the attempt.
//
// Open and Close manage transport resources. Both are idempotent and
// safe to call when the transport is already open or closed. Send on a
// closed (or never opened) transport opens it implicitly.
//
// Sleep suspends the caller for the given duration or until ctx is
// cancelled, whichever comes first, returning the context error on
// cancellation. Sleep is the single suspension abstraction of the
// pipeline: policies always sleep through the transport instead of any
// global sleep primitive, so backoff behavior follows the transport's
// scheduling strategy and remains observable in tests.
//
// Implementations of Transport must be safe for concurrent use by
// multiple goroutines.
type Transport interface {
	Send(req *request.Request) (*response.Response, error)
	Open() error
	Close() error
	Sleep(ctx context.Context, d time.Duration) error
}

// A Policy is one middleware unit in a pipeline. Its Do method receives
// the in-flight exchange, may mutate the request headers or target
// before forwarding with x.Next(), and may inspect or mutate the
// response after the rest of the chain returns. A policy may
// short-circuit the chain by returning a synthesized response or an
// error without calling x.Next().
//
// Policies must be composable without knowledge of each other's
// internals, and must be safe for concurrent use by multiple
// goroutines: a policy instance is shared by every execution running
// through its pipeline.
type Policy interface {
	Do(x *Exchange) (*response.Response, error)
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as pipeline policies. If f is a function with the
// appropriate signature, PolicyFunc(f) is a Policy that calls f.
type PolicyFunc func(x *Exchange) (*response.Response, error)

// Do calls f(x).
func (f PolicyFunc) Do(x *Exchange) (*response.Response, error) {
	return f(x)
}

// A Pipeline is an ordered chain of policies terminating in a
// Transport. It exposes one entry point, Run, used identically by every
// service client.
//
// A Pipeline is stateless across calls except through the policies it
// holds (for example, a bearer token policy's token cache persists
// across calls by design), so independent Run invocations may execute
// concurrently. Pipeline instances should be reused rather than created
// per request, since the transport typically caches connections.
type Pipeline struct {
	policies  []Policy
	transport Transport
}

// New assembles policies, in order, in front of the transport. The
// transport may not be nil and no policy may be nil.
func New(t Transport, policies ...Policy) *Pipeline {
	if t == nil {
		panic("corehttp/pipeline: nil transport")
	}
	ps := make([]Policy, len(policies))
	for i, p := range policies {
		if p == nil {
			panic("corehttp/pipeline: nil policy")
		}
		ps[i] = p
	}
	return &Pipeline{policies: ps, transport: t}
}

// Run executes one logical HTTP request through the policy chain and
// the transport, and returns the final response or error.
func (p *Pipeline) Run(req *request.Request) (*response.Response, error) {
	x := &Exchange{req: req, pipeline: p}
	return x.Next()
}

// Transport returns the transport terminating the pipeline.
func (p *Pipeline) Transport() Transport {
	return p.transport
}

// An Exchange is the in-flight state of one pass through a pipeline:
// the current request and the position in the policy chain. The
// pipeline creates one Exchange per Run invocation and hands it to each
// policy in turn.
type Exchange struct {
	req      *request.Request
	pipeline *Pipeline
	index    int
}

// Request returns the request as it currently stands in the chain.
func (x *Exchange) Request() *request.Request {
	return x.req
}

// SetRequest replaces the request forwarded to the remainder of the
// chain. Policies that send per-attempt copies, such as the retry
// policy, install each attempt's clone with SetRequest before calling
// Next.
func (x *Exchange) SetRequest(req *request.Request) {
	if req == nil {
		panic("corehttp/pipeline: nil request")
	}
	x.req = req
}

// Transport returns the transport terminating the pipeline, so policies
// can sleep through it between attempts.
func (x *Exchange) Transport() Transport {
	return x.pipeline.transport
}

// Next forwards the exchange to the next link in the chain: the next
// policy, or the transport if the policy chain is exhausted. A policy
// may call Next more than once; each call replays the remainder of the
// chain with the exchange's current request.
func (x *Exchange) Next() (*response.Response, error) {
	i := x.index
	if i >= len(x.pipeline.policies) {
		return x.pipeline.transport.Send(x.req)
	}
	x.index = i + 1
	resp, err := x.pipeline.policies[i].Do(x)
	x.index = i
	return resp, err
}
