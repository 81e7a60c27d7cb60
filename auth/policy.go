// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogama/corehttp/httperr"
	"github.com/gogama/corehttp/pipeline"
	"github.com/gogama/corehttp/response"
)

// DefaultRefreshMargin is how long before its expiry a cached token is
// judged stale and refreshed proactively.
const DefaultRefreshMargin = 5 * time.Minute

// BearerTokenPolicyOptions configures optional behavior of a
// BearerTokenPolicy.
type BearerTokenPolicyOptions struct {
	// OnChallenge is invoked after a response with status 401 carrying
	// a WWW-Authenticate header. The policy clears its token cache
	// before invoking the hook, so a stale token can never be reused.
	// The hook may inspect the challenge and mutate the exchange's
	// request (for example adding claims via WithTokenOptions on a new
	// request context). Returning true triggers exactly one additional
	// send with a freshly acquired token; returning false, or a nil
	// hook, propagates the 401 unmodified. A non-nil error aborts the
	// operation as an authentication failure.
	OnChallenge func(x *pipeline.Exchange, resp *response.Response) (bool, error)

	// RefreshMargin overrides DefaultRefreshMargin.
	RefreshMargin time.Duration
}

// A BearerTokenPolicy is a pipeline policy that attaches an OAuth
// bearer token to every request via the Authorization header.
//
// Tokens are cached on the policy instance and refreshed proactively:
// a new token is acquired when there is no cached token, when the
// token's explicit refresh instant has passed, or when it is within the
// refresh margin of expiry. The cache is replaced atomically as a whole
// record, never partially updated, and is shared by design across all
// concurrent pipeline runs using the policy instance.
//
// Before sending, the policy requires the target URL to be HTTPS,
// unless the request explicitly opted out with Request.AllowInsecure; a
// violation fails as a request error without touching the network.
// After a 401 response carrying a WWW-Authenticate header, the policy
// clears its cache and consults the challenge hook; see
// BearerTokenPolicyOptions.OnChallenge.
type BearerTokenPolicy struct {
	cred        TokenCredential
	scopes      []string
	onChallenge func(x *pipeline.Exchange, resp *response.Response) (bool, error)
	margin      time.Duration

	cache     atomic.Pointer[AccessToken]
	acquiring sync.Mutex
}

// NewBearerTokenPolicy constructs a BearerTokenPolicy acquiring tokens
// from cred for the given scopes. The credential may not be nil; opts
// may be nil for defaults.
func NewBearerTokenPolicy(cred TokenCredential, scopes []string, opts *BearerTokenPolicyOptions) *BearerTokenPolicy {
	if cred == nil {
		panic("corehttp/auth: nil credential")
	}
	b := &BearerTokenPolicy{
		cred:   cred,
		scopes: append([]string(nil), scopes...),
		margin: DefaultRefreshMargin,
	}
	if opts != nil {
		b.onChallenge = opts.OnChallenge
		if opts.RefreshMargin > 0 {
			b.margin = opts.RefreshMargin
		}
	}
	return b
}

// Do attaches a bearer token to the exchange's request, forwards it,
// and handles an authentication challenge on the way back.
func (b *BearerTokenPolicy) Do(x *pipeline.Exchange) (*response.Response, error) {
	req := x.Request()
	if req.URL.Scheme != "https" && !req.InsecureAllowed() {
		return nil, &httperr.RequestError{
			Err: errors.New("corehttp/auth: bearer token authentication requires HTTPS; use Request.AllowInsecure to override for a test endpoint"),
		}
	}

	tok, err := b.token(req.Context(), false)
	if err != nil {
		return nil, authError(err)
	}
	b.authorize(x, tok)

	resp, err := x.Next()
	if err != nil || resp.StatusCode != 401 {
		return resp, err
	}
	if resp.HeaderValue("WWW-Authenticate") == "" {
		return resp, nil
	}

	// The server rejected the token; make sure it is never reused.
	b.cache.Store(nil)
	if b.onChallenge == nil {
		return resp, nil
	}
	retry, err := b.onChallenge(x, resp)
	if err != nil {
		return nil, authError(err)
	}
	if !retry {
		return resp, nil
	}
	_ = resp.Close()
	tok, err = b.token(x.Request().Context(), true)
	if err != nil {
		return nil, authError(err)
	}
	b.authorize(x, tok)
	return x.Next()
}

func (b *BearerTokenPolicy) authorize(x *pipeline.Exchange, tok AccessToken) {
	x.Request().Header.Set("Authorization", tok.Type+" "+tok.Token)
}

// token returns a token to attach: the cached token if it is still
// fresh, and a newly acquired one otherwise. Per-call token options on
// the context bypass the cache entirely. With force set, the cache is
// ignored and a fresh token acquired unconditionally.
func (b *BearerTokenPolicy) token(ctx context.Context, force bool) (AccessToken, error) {
	opts, perCall := tokenOptionsFrom(ctx)
	if perCall {
		if len(opts.Scopes) == 0 {
			opts.Scopes = b.scopes
		}
		return b.acquire(ctx, opts, false)
	}
	opts = TokenRequestOptions{Scopes: b.scopes}

	if !force {
		if t := b.cache.Load(); t != nil && !b.stale(t, time.Now()) {
			return *t, nil
		}
	}

	b.acquiring.Lock()
	defer b.acquiring.Unlock()
	if !force {
		// Another call may have refreshed while we waited for the lock.
		if t := b.cache.Load(); t != nil && !b.stale(t, time.Now()) {
			return *t, nil
		}
	}
	return b.acquire(ctx, opts, true)
}

func (b *BearerTokenPolicy) acquire(ctx context.Context, opts TokenRequestOptions, store bool) (AccessToken, error) {
	tok, err := b.cred.GetToken(ctx, opts)
	if err != nil {
		return AccessToken{}, err
	}
	if tok.Token == "" {
		return AccessToken{}, errors.New("corehttp/auth: credential returned an empty token")
	}
	if tok.Type == "" {
		tok.Type = "Bearer"
	}
	if store {
		// The whole record is replaced in one atomic store; concurrent
		// readers see either the old token or the new one, never a mix.
		b.cache.Store(&tok)
	}
	return tok, nil
}

// stale reports whether a cached token needs replacing: true when the
// explicit refresh instant has passed, or the token is within the
// refresh margin of expiry.
func (b *BearerTokenPolicy) stale(t *AccessToken, now time.Time) bool {
	if t.Token == "" {
		return true
	}
	if !t.RefreshOn.IsZero() && !now.Before(t.RefreshOn) {
		return true
	}
	return t.ExpiresOn.Sub(now) < b.margin
}

// authError classifies err as an authentication failure unless it
// already is one.
func authError(err error) error {
	if httperr.IsAuthenticationError(err) {
		return err
	}
	return &httperr.AuthenticationError{Err: err}
}
