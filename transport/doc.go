// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport provides the standard network transport terminating
// a corehttp pipeline, backed by the Go standard HTTP client from
// net/http.
//
// The HTTP transport implements the pipeline.Transport contract: Send
// for request attempts, idempotent Open and Close for the connection
// pool lifecycle, and Sleep as the suspension point used by retry
// backoff. Sleep honors context cancellation, so callers blocked in a
// backoff wait are released as soon as their context is done.
//
// Alternative transports (for example a test double that scripts
// responses and records sleeps, or a sender with different scheduling
// behavior) plug into the same pipeline shape by implementing
// pipeline.Transport; no policy code changes.
package transport
