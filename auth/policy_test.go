// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogama/corehttp/httperr"
	"github.com/gogama/corehttp/pipeline"
	"github.com/gogama/corehttp/request"
	"github.com/gogama/corehttp/response"
)

func TestNewBearerTokenPolicy(t *testing.T) {
	t.Run("nil credential panics", func(t *testing.T) {
		assert.Panics(t, func() { NewBearerTokenPolicy(nil, nil, nil) })
	})
	t.Run("scopes copied", func(t *testing.T) {
		scopes := []string{"scope1"}
		p := NewBearerTokenPolicy(freshCredential("tok"), scopes, nil)
		scopes[0] = "mutated"
		assert.Equal(t, []string{"scope1"}, p.scopes)
	})
}

func TestDo(t *testing.T) {
	t.Run("attaches bearer token", func(t *testing.T) {
		cred := freshCredential("tok-1")
		tr := newRecorder(ok())
		p := NewBearerTokenPolicy(cred, []string{"scope"}, nil)
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		require.Len(t, tr.auths, 1)
		assert.Equal(t, "Bearer tok-1", tr.auths[0])
		assert.Equal(t, [][]string{{"scope"}}, cred.scopes)
	})
	t.Run("custom token type", func(t *testing.T) {
		cred := &fakeCredential{tokens: []AccessToken{{
			Token:     "tok-pop",
			Type:      "PoP",
			ExpiresOn: time.Now().Add(time.Hour),
		}}}
		tr := newRecorder(ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		_, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, "PoP tok-pop", tr.auths[0])
	})
	t.Run("requires https", func(t *testing.T) {
		tr := newRecorder(ok())
		p := NewBearerTokenPolicy(freshCredential("tok"), nil, nil)
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "http://example.com"))
		assert.Nil(t, resp)
		assert.True(t, httperr.IsRequestError(err))
		assert.Equal(t, 0, tr.sends)
	})
	t.Run("insecure override", func(t *testing.T) {
		tr := newRecorder(ok())
		p := NewBearerTokenPolicy(freshCredential("tok"), nil, nil)
		req := newRequest(t, "http://localhost:8080")
		req.AllowInsecure()
		resp, err := pipeline.New(tr, p).Run(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 1, tr.sends)
	})
	t.Run("credential failure is an authentication error", func(t *testing.T) {
		cred := &fakeCredential{err: errors.New("identity service down")}
		tr := newRecorder(ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		assert.Nil(t, resp)
		assert.True(t, httperr.IsAuthenticationError(err))
		assert.Equal(t, 0, tr.sends)
	})
	t.Run("empty token is an authentication error", func(t *testing.T) {
		cred := &fakeCredential{tokens: []AccessToken{{}}}
		tr := newRecorder(ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		_, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		assert.True(t, httperr.IsAuthenticationError(err))
	})
}

func TestTokenCache(t *testing.T) {
	t.Run("fresh token reused", func(t *testing.T) {
		cred := freshCredential("tok-1", "tok-2")
		tr := newRecorder(ok(), ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		pl := pipeline.New(tr, p)
		_, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 1, cred.calls)
		assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-1"}, tr.auths)
	})
	t.Run("near-expiry token refreshed", func(t *testing.T) {
		near := AccessToken{Token: "stale", ExpiresOn: time.Now().Add(100 * time.Second)}
		far := AccessToken{Token: "fresh", ExpiresOn: time.Now().Add(time.Hour)}
		cred := &fakeCredential{tokens: []AccessToken{near, far}}
		tr := newRecorder(ok(), ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		pl := pipeline.New(tr, p)
		_, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		// The first token is within the refresh margin of expiry, so
		// the second run acquires again rather than reusing it.
		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 2, cred.calls)
		assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, tr.auths)
	})
	t.Run("refresh-on instant honored", func(t *testing.T) {
		early := AccessToken{
			Token:     "old",
			ExpiresOn: time.Now().Add(time.Hour),
			RefreshOn: time.Now().Add(-time.Second),
		}
		far := AccessToken{Token: "new", ExpiresOn: time.Now().Add(time.Hour)}
		cred := &fakeCredential{tokens: []AccessToken{early, far}}
		tr := newRecorder(ok(), ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		pl := pipeline.New(tr, p)
		_, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 2, cred.calls)
	})
	t.Run("custom margin", func(t *testing.T) {
		tok := AccessToken{Token: "t", ExpiresOn: time.Now().Add(100 * time.Second)}
		cred := &fakeCredential{tokens: []AccessToken{tok, tok}}
		tr := newRecorder(ok(), ok())
		p := NewBearerTokenPolicy(cred, nil, &BearerTokenPolicyOptions{RefreshMargin: time.Second})
		pl := pipeline.New(tr, p)
		_, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		// 100 seconds to expiry clears a one second margin, so the
		// token is still considered fresh.
		assert.Equal(t, 1, cred.calls)
	})
	t.Run("per-call options bypass cache", func(t *testing.T) {
		cred := freshCredential("cached", "special", "unused")
		tr := newRecorder(ok(), ok(), ok())
		p := NewBearerTokenPolicy(cred, []string{"default-scope"}, nil)
		pl := pipeline.New(tr, p)

		_, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)

		ctx := WithTokenOptions(context.Background(), TokenRequestOptions{Claims: "extra"})
		req, err := request.NewWithContext(ctx, "GET", "https://example.com")
		require.NoError(t, err)
		_, err = pl.Run(req)
		require.NoError(t, err)

		// The per-call acquisition saw the claims and the default
		// scopes, and did not disturb the cached token.
		require.Equal(t, 2, cred.calls)
		assert.Equal(t, "extra", cred.claims[1])
		assert.Equal(t, []string{"default-scope"}, cred.scopes[1])
		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 2, cred.calls)
		assert.Equal(t, []string{"Bearer cached", "Bearer special", "Bearer cached"}, tr.auths)
	})
}

func TestChallenge(t *testing.T) {
	challenged := func() outcome {
		h := http.Header{"Www-Authenticate": {`Bearer error="insufficient_claims"`}}
		return outcome{resp: response.NewBytes(401, "Unauthorized", h, nil)}
	}

	t.Run("401 without challenge propagated", func(t *testing.T) {
		cred := freshCredential("tok-1", "tok-2")
		tr := newRecorder(outcome{resp: response.NewBytes(401, "Unauthorized", nil, nil)}, ok())
		hook := func(x *pipeline.Exchange, resp *response.Response) (bool, error) {
			t.Fatal("hook must not run without a WWW-Authenticate header")
			return false, nil
		}
		p := NewBearerTokenPolicy(cred, nil, &BearerTokenPolicyOptions{OnChallenge: hook})
		pl := pipeline.New(tr, p)
		resp, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, 1, tr.sends)

		// The cache was not cleared.
		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 1, cred.calls)
	})
	t.Run("challenge without hook propagated but cache cleared", func(t *testing.T) {
		cred := freshCredential("tok-1", "tok-2")
		tr := newRecorder(challenged(), ok())
		p := NewBearerTokenPolicy(cred, nil, nil)
		pl := pipeline.New(tr, p)
		resp, err := pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, 1, tr.sends)

		_, err = pl.Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 2, cred.calls)
		assert.Equal(t, "Bearer tok-2", tr.auths[1])
	})
	t.Run("hook retry resends once with fresh token", func(t *testing.T) {
		cred := freshCredential("tok-1", "tok-2")
		tr := newRecorder(challenged(), ok())
		var sawChallenge string
		hook := func(x *pipeline.Exchange, resp *response.Response) (bool, error) {
			sawChallenge = resp.HeaderValue("WWW-Authenticate")
			return true, nil
		}
		p := NewBearerTokenPolicy(cred, nil, &BearerTokenPolicyOptions{OnChallenge: hook})
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 2, tr.sends)
		assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, tr.auths)
		assert.Contains(t, sawChallenge, "insufficient_claims")
		assert.Equal(t, 2, cred.calls)
	})
	t.Run("hook decline propagates the 401", func(t *testing.T) {
		cred := freshCredential("tok-1")
		tr := newRecorder(challenged())
		hook := func(x *pipeline.Exchange, resp *response.Response) (bool, error) {
			return false, nil
		}
		p := NewBearerTokenPolicy(cred, nil, &BearerTokenPolicyOptions{OnChallenge: hook})
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, 1, tr.sends)
	})
	t.Run("hook error is an authentication error", func(t *testing.T) {
		cred := freshCredential("tok-1")
		tr := newRecorder(challenged())
		hook := func(x *pipeline.Exchange, resp *response.Response) (bool, error) {
			return false, errors.New("challenge not understood")
		}
		p := NewBearerTokenPolicy(cred, nil, &BearerTokenPolicyOptions{OnChallenge: hook})
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		assert.Nil(t, resp)
		assert.True(t, httperr.IsAuthenticationError(err))
	})
	t.Run("second challenge not re-challenged", func(t *testing.T) {
		cred := freshCredential("tok-1", "tok-2")
		tr := newRecorder(challenged(), challenged())
		hook := func(x *pipeline.Exchange, resp *response.Response) (bool, error) {
			return true, nil
		}
		p := NewBearerTokenPolicy(cred, nil, &BearerTokenPolicyOptions{OnChallenge: hook})
		resp, err := pipeline.New(tr, p).Run(newRequest(t, "https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, 2, tr.sends)
	})
}

func newRequest(t *testing.T, url string) *request.Request {
	t.Helper()
	req, err := request.New("GET", url)
	require.NoError(t, err)
	return req
}

// freshCredential builds a credential yielding the given token strings
// in order, each expiring far enough out to stay fresh for the whole
// test.
func freshCredential(tokens ...string) *fakeCredential {
	c := &fakeCredential{}
	for _, tok := range tokens {
		c.tokens = append(c.tokens, AccessToken{
			Token:     tok,
			ExpiresOn: time.Now().Add(time.Hour),
		})
	}
	return c
}

type fakeCredential struct {
	tokens []AccessToken
	err    error
	calls  int
	scopes [][]string
	claims []string
}

func (c *fakeCredential) GetToken(_ context.Context, opts TokenRequestOptions) (AccessToken, error) {
	c.scopes = append(c.scopes, opts.Scopes)
	c.claims = append(c.claims, opts.Claims)
	i := c.calls
	c.calls++
	if c.err != nil {
		return AccessToken{}, c.err
	}
	if i >= len(c.tokens) {
		return AccessToken{}, errors.New("fake credential ran out of tokens")
	}
	return c.tokens[i], nil
}

type outcome struct {
	resp *response.Response
	err  error
}

func ok() outcome {
	return outcome{resp: response.NewBytes(200, "OK", nil, nil)}
}

// recorder is a scripted pipeline transport recording the Authorization
// header of every send.
type recorder struct {
	outcomes []outcome
	sends    int
	auths    []string
}

func newRecorder(outcomes ...outcome) *recorder {
	return &recorder{outcomes: outcomes}
}

func (r *recorder) Send(req *request.Request) (*response.Response, error) {
	if r.sends >= len(r.outcomes) {
		panic("recorder transport ran out of outcomes")
	}
	o := r.outcomes[r.sends]
	r.sends++
	r.auths = append(r.auths, req.Header.Get("Authorization"))
	return o.resp, o.err
}

func (r *recorder) Open() error  { return nil }
func (r *recorder) Close() error { return nil }

func (r *recorder) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
