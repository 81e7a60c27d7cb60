// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package auth provides bearer token authentication for corehttp
pipelines: a credential abstraction for acquiring OAuth access tokens,
and the pipeline policy that attaches, caches, proactively refreshes,
and challenge-handles those tokens.

Adapt any golang.org/x/oauth2 token flow, or implement TokenCredential
directly, and place the policy after the retry policy so each attempt
carries a current token:

	cred := auth.NewTokenSourceCredential(cfg.TokenSource(ctx))
	pl := pipeline.New(transport.New(),
		retry.New(retry.Options{}),
		auth.NewBearerTokenPolicy(cred, []string{"https://service/.default"}, nil),
	)

Token acquisition failures surface as httperr.AuthenticationError,
which the retry policy never retries.
*/
package auth
