// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package httperr defines the error taxonomy used throughout the
// corehttp pipeline, and classifies errors from HTTP request execution
// as transient or non-transient.
//
// The taxonomy distinguishes five families of failure. RequestError
// means the request never reached the peer. ResponseError, together
// with its more specific kinds IncompleteReadError and DecodeError,
// means the request was sent but the response could not be completed or
// understood. AuthenticationError means the credential itself is broken
// and a retry cannot help. StatusError means the server answered with a
// final non-success status code. StreamStateError means the response
// body was misused after being consumed or closed.
//
// The retry policy in package retry maps transport failures into this
// taxonomy to decide which retry budget to charge; callers use the Is*
// helpers, or errors.As with the concrete types, to tell "the server
// said no" apart from "the transport broke".
//
// Package httperr is extremely lightweight, as it depends only on the
// standard library, so it doesn't bring any significant dependencies
// when imported as a standalone package.
package httperr
