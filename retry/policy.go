// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gogama/corehttp/httperr"
	"github.com/gogama/corehttp/pipeline"
	"github.com/gogama/corehttp/response"
)

const (
	// DefaultTotal is the default cap on the total number of retries
	// per operation, across all failure categories.
	DefaultTotal = 3
	// DefaultConnect is the default cap on retries of connect errors.
	DefaultConnect = 3
	// DefaultRead is the default cap on retries of response read
	// errors.
	DefaultRead = 3
	// DefaultStatus is the default cap on retries of retryable status
	// codes.
	DefaultStatus = 3
	// DefaultBackoffFactor is the default backoff factor in seconds.
	DefaultBackoffFactor = 0.8
	// DefaultBackoffMax is the default cap on a computed backoff delay.
	DefaultBackoffMax = 120 * time.Second
)

// DefaultStatusCodes returns the status codes retried when
// Options.StatusCodes is not set: 429 (Too Many Requests), 500
// (Internal Server Error), 502 (Bad Gateway), 503 (Service
// Unavailable), and 504 (Gateway Timeout).
func DefaultStatusCodes() []int {
	return []int{429, 500, 502, 503, 504}
}

// Options configures a retry Policy. The zero value of each field
// selects the documented default; set a counter field negative to
// configure zero retries for that budget.
type Options struct {
	// Total caps the number of retries per operation regardless of
	// failure category. Default DefaultTotal.
	Total int

	// Connect caps retries of connect errors: the request never
	// reached the peer. Default DefaultConnect.
	Connect int

	// Read caps retries of response errors: the request was sent but
	// the response could not be completed. Default DefaultRead.
	Read int

	// Status caps retries of retryable status codes. Default
	// DefaultStatus.
	Status int

	// BackoffFactor scales the exponential backoff delay, in seconds:
	// the wait after failed attempt n is BackoffFactor * 2^(n-1),
	// capped at BackoffMax. Default DefaultBackoffFactor.
	BackoffFactor float64

	// BackoffMax caps the computed backoff delay. It does not cap a
	// server-dictated Retry-After value, which is always used
	// verbatim. Default DefaultBackoffMax.
	BackoffMax time.Duration

	// OperationTimeout is the absolute time budget for the whole
	// operation, spanning every attempt. The budget is decremented by
	// the wall-clock duration of each attempt; once it reaches zero no
	// further resend happens regardless of remaining retry counts.
	// Zero means no budget.
	OperationTimeout time.Duration

	// AttemptTimeout bounds each individual request attempt. An
	// attempt that exceeds it fails with a timeout error, which is
	// potentially retryable. Zero means no per-attempt timeout.
	AttemptTimeout time.Duration

	// StatusCodes is the set of response status codes that trigger a
	// retry. Nil selects DefaultStatusCodes.
	StatusCodes []int

	// ShouldRetry overrides the retryable-outcome test. When set, it
	// is consulted instead of the StatusCodes set and the built-in
	// error transience test; the per-category and total caps and the
	// operation timeout budget still apply. As in any pipeline result,
	// exactly one of resp and err is non-nil.
	//
	// ShouldRetry must be safe for concurrent use by multiple
	// goroutines.
	ShouldRetry func(resp *response.Response, err error) bool
}

// A Policy is a pipeline policy that decides, after each request
// attempt, whether and when to resend.
//
// Each failed attempt is categorized as exactly one of connect error,
// response error, or bad status code, and charged against both its
// category budget and the total budget. A resend happens only while
// every charged budget and the operation's absolute time budget hold
// out, the failed outcome is retryable, and the request body is
// replayable. An authentication error is never retried: a broken
// credential cannot be cured by resending. The final outcome, error or
// response, is returned to the caller unchanged.
//
// Between attempts the policy sleeps through the pipeline's transport,
// honoring a server-dictated Retry-After header verbatim and otherwise
// using capped exponential backoff. Cancellation of the request context
// is observed both before each send and during each backoff sleep.
//
// A Policy carries no per-operation state; the same instance serves any
// number of concurrent pipeline runs.
type Policy struct {
	total         int
	connect       int
	read          int
	status        int
	backoffFactor float64
	backoffMax    time.Duration
	opTimeout     time.Duration
	attemptTO     time.Duration
	statusCodes   map[int]struct{}
	shouldRetry   func(resp *response.Response, err error) bool
}

// New constructs a retry Policy from opts.
func New(opts Options) *Policy {
	p := &Policy{
		total:         orDefault(opts.Total, DefaultTotal),
		connect:       orDefault(opts.Connect, DefaultConnect),
		read:          orDefault(opts.Read, DefaultRead),
		status:        orDefault(opts.Status, DefaultStatus),
		backoffFactor: opts.BackoffFactor,
		backoffMax:    opts.BackoffMax,
		opTimeout:     opts.OperationTimeout,
		attemptTO:     opts.AttemptTimeout,
		shouldRetry:   opts.ShouldRetry,
	}
	if p.backoffFactor == 0 {
		p.backoffFactor = DefaultBackoffFactor
	} else if p.backoffFactor < 0 {
		p.backoffFactor = 0
	}
	if p.backoffMax == 0 {
		p.backoffMax = DefaultBackoffMax
	}
	codes := opts.StatusCodes
	if codes == nil {
		codes = DefaultStatusCodes()
	}
	p.statusCodes = make(map[int]struct{}, len(codes))
	for _, code := range codes {
		p.statusCodes[code] = struct{}{}
	}
	return p
}

type optionsKey struct{}

// WithOptions returns a context carrying per-call retry options. A
// retry Policy seeing these options on the request context applies them
// for that operation instead of its configured options, so a single
// call can tighten or loosen its retry budget without a dedicated
// pipeline.
func WithOptions(ctx context.Context, opts Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

func optionsFrom(ctx context.Context) (Options, bool) {
	opts, ok := ctx.Value(optionsKey{}).(Options)
	return opts, ok
}

func orDefault(n, def int) int {
	if n == 0 {
		return def
	}
	if n < 0 {
		return 0
	}
	return n
}

// category is the classification of one failed attempt.
type category int

const (
	catConnect category = iota
	catRead
	catStatus
)

// state tracks one operation's retry budget. A fresh state is created
// per Do invocation and never shared across operations.
type state struct {
	attempt   int // 1-based count of attempts made
	total     int // failed attempts charged overall
	connect   int // failures charged as connect errors
	read      int // failures charged as response read errors
	status    int // failures charged as bad status codes
	remaining time.Duration

	// responseError records whether the most recent failure happened
	// while reading the response rather than while connecting. It
	// selects the counter charged when a later failure cannot be
	// classified on its own, and is re-evaluated on every attempt, so
	// categories may alternate within a single operation.
	responseError bool
}

// Do runs the remainder of the pipeline, resending per the policy
// until the outcome is final.
func (p *Policy) Do(x *pipeline.Exchange) (*response.Response, error) {
	req := x.Request()
	ctx := req.Context()
	if opts, ok := optionsFrom(ctx); ok {
		p = New(opts)
	}
	s := &state{remaining: p.opTimeout}

	for {
		s.attempt++

		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.attemptTO > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.attemptTO)
		}
		x.SetRequest(req.Clone(attemptCtx))

		start := time.Now()
		resp, err := x.Next()
		s.remaining -= time.Since(start)

		if err != nil && httperr.IsAuthenticationError(err) {
			// The credential itself is broken; resending cannot help.
			if cancel != nil {
				cancel()
			}
			return nil, err
		}

		cat, final := p.categorize(s, resp, err)
		if final || ctx.Err() != nil || !p.again(s, cat) || !req.Replayable() {
			if cancel != nil {
				if resp != nil {
					// Keep the attempt context alive until the body
					// has been read.
					resp.OnClose(cancel)
				} else {
					cancel()
				}
			}
			return resp, err
		}

		delay := p.delay(s.attempt, resp)
		if resp != nil {
			// Release the failed attempt's connection before resending.
			_ = resp.Close()
		}
		if cancel != nil {
			cancel()
		}
		if err := x.Transport().Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// categorize classifies the outcome of an attempt, charges the
// appropriate counters, and reports whether the outcome is final
// (success, or a non-retryable failure).
func (p *Policy) categorize(s *state, resp *response.Response, err error) (category, bool) {
	retryable := p.retryable(resp, err)
	if err != nil {
		var cat category
		switch {
		case httperr.IsRequestError(err):
			cat = catConnect
		case httperr.IsResponseError(err):
			cat = catRead
		case s.responseError:
			// Unclassifiable failure: charge the counter selected by
			// the phase of the previous failure.
			cat = catRead
		default:
			cat = catConnect
		}
		s.responseError = cat == catRead
		s.charge(cat)
		return cat, !retryable
	}
	if retryable {
		s.responseError = false
		s.charge(catStatus)
		return catStatus, false
	}
	return catStatus, true
}

// retryable reports whether the outcome of an attempt is worth
// resending, budgets permitting.
func (p *Policy) retryable(resp *response.Response, err error) bool {
	if p.shouldRetry != nil {
		return p.shouldRetry(resp, err)
	}
	if err != nil {
		return httperr.IsRequestError(err) || httperr.IsResponseError(err) ||
			httperr.Categorize(err) != httperr.Not
	}
	_, ok := p.statusCodes[resp.StatusCode]
	return ok
}

func (s *state) charge(cat category) {
	s.total++
	switch cat {
	case catConnect:
		s.connect++
	case catRead:
		s.read++
	case catStatus:
		s.status++
	}
}

// again reports whether the budgets allow one more attempt after a
// failure charged to category cat.
func (p *Policy) again(s *state, cat category) bool {
	if s.total > p.total {
		return false
	}
	switch cat {
	case catConnect:
		if s.connect > p.connect {
			return false
		}
	case catRead:
		if s.read > p.read {
			return false
		}
	case catStatus:
		if s.status > p.status {
			return false
		}
	}
	if p.opTimeout > 0 && s.remaining <= 0 {
		return false
	}
	return true
}

// delay returns the wait before the next attempt: a server-dictated
// Retry-After value verbatim if the failed response carries one, and
// the capped exponential backoff otherwise. The result is never
// negative.
func (p *Policy) delay(attempt int, resp *response.Response) time.Duration {
	if d, ok := retryAfter(resp); ok {
		return d
	}
	shift := uint(attempt - 1)
	if shift > 62 {
		return p.backoffMax
	}
	d := time.Duration(p.backoffFactor * float64(int64(1)<<shift) * float64(time.Second))
	if d > p.backoffMax || d < 0 {
		d = p.backoffMax
	}
	return d
}

// retryAfter extracts a Retry-After header as either a delay in
// seconds or an HTTP-date, per RFC 7231 section 7.1.3.
func retryAfter(resp *response.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
