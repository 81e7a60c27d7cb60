// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package pipeline contains the composable middleware chain at the heart
of corehttp: an ordered sequence of policies terminating in a pluggable
network transport.

Every service client builds one request, threads it through a Pipeline
with Run, and decodes the result. Policies inspect or mutate the request
on the way in and the response on the way out, without knowledge of each
other's internals:

	pl := pipeline.New(transport.New(),
		retryPolicy,
		bearerTokenPolicy,
	)
	resp, err := pl.Run(req)

The Transport interface is the only component that performs real network
I/O or real sleeping. Policy logic is transport-agnostic: suspension
occurs only at Transport.Send, Transport.Sleep and streaming body reads,
never inside request/response transformation, so the same policy chain
behaves identically whatever transport strategy is plugged in.
*/
package pipeline
