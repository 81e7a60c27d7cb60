// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httperr

import (
	"errors"
	"fmt"
)

// excerptLen limits the response body excerpt carried by a StatusError.
const excerptLen = 512

// A RequestError indicates the HTTP request never reached the peer, for
// example due to a DNS resolution failure, a refused connection, or a
// failed TLS handshake. Request errors occur before any part of the
// request is accepted by the server, so the request can always be safely
// resent.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "corehttp: request error: " + e.Err.Error()
}

// Unwrap returns the underlying transport error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// A ResponseError indicates the request was sent but the response could
// not be completed or understood, for example due to a read timeout, a
// connection reset while reading, or a malformed body.
//
// IncompleteReadError and DecodeError are more specific kinds of
// response error. Use IsResponseError to test for the whole family.
type ResponseError struct {
	Err error
}

func (e *ResponseError) Error() string {
	return "corehttp: response error: " + e.Err.Error()
}

// Unwrap returns the underlying transport or decoding error.
func (e *ResponseError) Unwrap() error {
	return e.Err
}

func (e *ResponseError) responseError() {}

// An IncompleteReadError indicates the connection closed before the
// number of body bytes declared in the Content-Length header had been
// received. It distinguishes a truncated body from a clean short body.
type IncompleteReadError struct {
	// Expected is the declared body length in bytes.
	Expected int64
	// Received is the number of body bytes actually received.
	Received int64
}

func (e *IncompleteReadError) Error() string {
	return fmt.Sprintf("corehttp: incomplete read: received %d of %d declared body bytes", e.Received, e.Expected)
}

func (e *IncompleteReadError) responseError() {}

// A DecodeError indicates a response body was received in full but
// could not be decoded, for example because it declares an unknown
// character set or contains malformed JSON.
type DecodeError struct {
	// ContentType is the declared content type of the body that failed
	// to decode, if known.
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	if e.ContentType != "" {
		return "corehttp: decode error for content type " + e.ContentType + ": " + e.Err.Error()
	}
	return "corehttp: decode error: " + e.Err.Error()
}

// Unwrap returns the underlying decoding error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) responseError() {}

// An AuthenticationError indicates the credential itself failed to
// produce a token, or an authentication challenge could not be
// satisfied. It is never retried: resending the same request with the
// same broken credential cannot succeed.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return "corehttp: authentication error: " + e.Err.Error()
}

// Unwrap returns the underlying credential error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// A StatusError reports a final, non-retried, non-success HTTP status
// code. It carries the status code, reason phrase and a truncated body
// excerpt for diagnostics.
//
// StatusError means the server answered and said no. It is deliberately
// distinguishable from ResponseError and StreamStateError, which mean
// the transport broke or the response was misused.
type StatusError struct {
	// StatusCode is the HTTP status code, e.g. 503.
	StatusCode int
	// Reason is the reason phrase accompanying the status code, e.g.
	// "Service Unavailable".
	Reason string
	// Excerpt holds up to the first 512 bytes of the response body.
	Excerpt []byte
}

// NewStatusError constructs a StatusError, truncating body to the
// excerpt limit.
func NewStatusError(statusCode int, reason string, body []byte) *StatusError {
	if len(body) > excerptLen {
		body = body[:excerptLen]
	}
	excerpt := make([]byte, len(body))
	copy(excerpt, body)
	return &StatusError{
		StatusCode: statusCode,
		Reason:     reason,
		Excerpt:    excerpt,
	}
}

func (e *StatusError) Error() string {
	s := fmt.Sprintf("corehttp: HTTP status %d %s", e.StatusCode, e.Reason)
	if len(e.Excerpt) > 0 {
		s += ": " + string(e.Excerpt)
	}
	return s
}

// A StreamStateError indicates a programming error: the response body
// was read after it had already been consumed or closed. The body of a
// response is single-pass; a second read never silently returns empty
// or truncated data.
type StreamStateError struct {
	// Op is the operation that was attempted, e.g. "stream" or "bytes".
	Op string
	// State is the body state that made the operation invalid, e.g.
	// "consumed" or "closed".
	State string
}

func (e *StreamStateError) Error() string {
	return "corehttp: invalid " + e.Op + " on " + e.State + " response body"
}

// IsResponseError reports whether err, or any error it wraps, belongs
// to the response error family: ResponseError, IncompleteReadError or
// DecodeError.
func IsResponseError(err error) bool {
	var k interface{ responseError() }
	return errors.As(err, &k)
}

// IsRequestError reports whether err, or any error it wraps, is a
// RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// IsAuthenticationError reports whether err, or any error it wraps, is
// an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
