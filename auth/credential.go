// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// An AccessToken is one OAuth access token together with the instants
// governing its refresh. The credential policy caches the whole record
// and replaces it wholesale on refresh; it is never mutated
// field-by-field.
type AccessToken struct {
	// Token is the opaque token string attached to requests.
	Token string
	// ExpiresOn is the absolute instant the token expires.
	ExpiresOn time.Time
	// RefreshOn, when non-zero, is an explicit instant after which the
	// token should be refreshed even though it has not yet expired.
	RefreshOn time.Time
	// Type is the token type used in the Authorization header. An
	// empty Type means "Bearer".
	Type string
}

// TokenRequestOptions carries the parameters of a token acquisition:
// the scopes the token must cover, and optional additional claims and
// tenant override.
type TokenRequestOptions struct {
	Scopes   []string
	Claims   string
	TenantID string
}

// A TokenCredential acquires access tokens. Implementations must be
// safe for concurrent use by multiple goroutines; the bearer token
// policy serializes refreshes, but independent policies may share one
// credential.
type TokenCredential interface {
	GetToken(ctx context.Context, opts TokenRequestOptions) (AccessToken, error)
}

// NewStaticCredential returns a credential that always produces the
// given token. It is useful for tests and for tokens minted out of
// band.
func NewStaticCredential(token AccessToken) TokenCredential {
	return &staticCredential{token: token}
}

type staticCredential struct {
	token AccessToken
}

func (c *staticCredential) GetToken(_ context.Context, _ TokenRequestOptions) (AccessToken, error) {
	if c.token.Token == "" {
		return AccessToken{}, errors.New("corehttp/auth: static credential has no token")
	}
	return c.token, nil
}

// NewTokenSourceCredential adapts an oauth2.TokenSource into a
// TokenCredential, so any token flow from golang.org/x/oauth2 (client
// credentials, JWT assertion, refresh token, ...) can feed the bearer
// token policy.
//
// The token source owns its own refresh behavior; the bearer token
// policy's staleness rules apply on top of it.
func NewTokenSourceCredential(src oauth2.TokenSource) TokenCredential {
	if src == nil {
		panic("corehttp/auth: nil token source")
	}
	return &tokenSourceCredential{src: src}
}

type tokenSourceCredential struct {
	src oauth2.TokenSource
}

func (c *tokenSourceCredential) GetToken(_ context.Context, _ TokenRequestOptions) (AccessToken, error) {
	tok, err := c.src.Token()
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{
		Token:     tok.AccessToken,
		ExpiresOn: tok.Expiry,
		Type:      tok.Type(),
	}, nil
}

type tokenOptionsKey struct{}

// WithTokenOptions returns a context carrying per-call token request
// options. A bearer token policy seeing these options acquires a token
// for them directly, bypassing its cache, so a one-off claims or tenant
// override never pollutes the tokens served to other calls. Scopes left
// empty default to the policy's configured scopes.
func WithTokenOptions(ctx context.Context, opts TokenRequestOptions) context.Context {
	return context.WithValue(ctx, tokenOptionsKey{}, opts)
}

func tokenOptionsFrom(ctx context.Context) (TokenRequestOptions, bool) {
	opts, ok := ctx.Value(tokenOptionsKey{}).(TokenRequestOptions)
	return opts, ok
}
