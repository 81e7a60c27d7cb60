// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides the pipeline policy that retries failed HTTP
// request attempts, with independent budgets per failure category and
// an absolute time budget per operation.
//
// Construct a Policy from Options and place it in a pipeline ahead of
// any per-attempt policies:
//
//	policy := retry.New(retry.Options{
//		Total:         5,
//		BackoffFactor: 0.5,
//		BackoffMax:    30 * time.Second,
//	})
//	pl := pipeline.New(transport.New(), policy, ...)
//
// Failed attempts are categorized as connect errors, response read
// errors, or retryable status codes; each category has its own retry
// cap alongside the total cap. The delay between attempts is capped
// exponential backoff, unless the server dictates the wait exactly with
// a Retry-After header. The backoff sleep goes through the pipeline
// transport's Sleep, so the policy itself never blocks except at the
// transport's suspension points.
//
// A single call can override the policy's options by attaching per-call
// options to its request context with WithOptions.
package retry
