// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package response

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html/charset"

	"github.com/gogama/corehttp/httperr"
)

// A State is the consumption state of a response body. A body starts
// Unread and moves to Buffered (whole-body read) or Streaming
// (single-pass incremental read), then to Consumed when a stream has
// been fully iterated, and finally to Closed. Reading from a Consumed
// or Closed body fails with httperr.StreamStateError rather than
// returning empty or truncated data.
type State int

const (
	// Unread indicates the body has not been accessed yet.
	Unread State = iota
	// Buffered indicates the whole body was read into memory via
	// Bytes, Text or JSON. The buffered content remains readable until
	// the response is closed.
	Buffered
	// Streaming indicates a single-pass stream over the body has been
	// started via Stream or RawStream.
	Streaming
	// Consumed indicates a stream over the body has been fully
	// iterated. The body cannot be read again.
	Consumed
	// Closed indicates the response has been closed and the underlying
	// connection released. Closing is terminal and idempotent.
	Closed
)

var stateNames = []string{
	"unread",
	"buffered",
	"streaming",
	"consumed",
	"closed",
}

// String returns the name of the state.
func (s State) String() string {
	return stateNames[int(s)]
}

// A Response holds the result of one HTTP request attempt: status code,
// reason phrase, header multimap, and a lazy body.
//
// The body is accessed either as a single buffered blob (Bytes, Text,
// JSON) or as a streaming sequence (Stream, RawStream), never both for
// the same instance. See State for the body lifecycle.
//
// A Response is not safe for concurrent use by multiple goroutines: it
// tracks body consumption state, and the body itself is a single
// network connection.
type Response struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int
	// Reason is the reason phrase accompanying the status code, e.g.
	// "OK". It may be empty if the server sent none.
	Reason string
	// Header contains the response header fields. Header is a
	// case-insensitive multimap; use HeaderValue to read all values of
	// a key joined into a single string.
	Header http.Header

	raw           io.ReadCloser
	contentLength int64

	mu       sync.Mutex
	state    State
	buf      []byte
	released bool
	onClose  []func()
}

// New wraps a lower-level http.Response received from the network.
// Ownership of the response body passes to the returned Response, which
// guarantees the underlying connection is released when the body is
// fully consumed or the Response is closed.
func New(hr *http.Response) *Response {
	reason := strings.TrimPrefix(hr.Status, strconv.Itoa(hr.StatusCode)+" ")
	body := hr.Body
	if body == nil {
		body = http.NoBody
	}
	return &Response{
		StatusCode:    hr.StatusCode,
		Reason:        reason,
		Header:        hr.Header,
		raw:           body,
		contentLength: hr.ContentLength,
	}
}

// NewBytes creates a synthesized response from pre-buffered content.
// Policies may use it to short-circuit a pipeline with a fabricated
// result, and tests may use it to fake server behavior.
func NewBytes(statusCode int, reason string, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode:    statusCode,
		Reason:        reason,
		Header:        header,
		raw:           io.NopCloser(bytes.NewReader(body)),
		contentLength: int64(len(body)),
	}
}

// ContentType returns the declared content type of the response, or the
// empty string if the Content-Type header is absent.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// ContentLength returns the declared body length in bytes, or -1 if the
// length is unknown (for example a chunked response).
func (r *Response) ContentLength() int64 {
	return r.contentLength
}

// HeaderValue returns all values of the named header joined into a
// single string with ", ", or the empty string if the header is absent.
func (r *Response) HeaderValue(key string) string {
	return strings.Join(r.Header.Values(key), ", ")
}

// State returns the current consumption state of the response body.
func (r *Response) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Bytes returns the whole response body as a single buffered blob,
// transparently reversing any gzip or deflate Content-Encoding. The
// first call reads the body to its end and releases the underlying
// connection; subsequent calls return the buffered content.
//
// Bytes fails with httperr.StreamStateError if a stream over the body
// has been started, or if the response has been closed. It fails with
// httperr.IncompleteReadError if the connection closes before the
// declared Content-Length is reached.
func (r *Response) Bytes() ([]byte, error) {
	var hooks []func()
	defer runHooks(&hooks)
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case Buffered:
		return r.buf, nil
	case Unread:
		// buffer below
	default:
		return nil, &httperr.StreamStateError{Op: "read", State: r.state.String()}
	}

	br := newBodyReader(r, true)
	b, err := io.ReadAll(br)
	br.close()
	hooks = r.releaseLocked()
	if err != nil {
		r.state = Closed
		return nil, err
	}
	r.state = Buffered
	r.buf = b
	return b, nil
}

// Text returns the response body decoded to a string. The character set
// is taken from the Content-Type header; if none is declared, the
// encoding is sniffed from a byte order mark, falling back to UTF-8. A
// leading byte order mark is an encoding artifact, not text, and is
// removed.
//
// Decoding failure is reported as httperr.DecodeError. Body access
// failures are reported as for Bytes.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	cr, err := charset.NewReader(bytes.NewReader(b), r.ContentType())
	if err != nil {
		return "", &httperr.DecodeError{ContentType: r.ContentType(), Err: err}
	}
	decoded, err := io.ReadAll(cr)
	if err != nil {
		return "", &httperr.DecodeError{ContentType: r.ContentType(), Err: err}
	}
	// A sniffed encoding decodes the mark itself to U+FEFF.
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

// JSON decodes the response body text as JSON into v. Malformed JSON is
// reported as httperr.DecodeError. Body access failures are reported as
// for Bytes.
func (r *Response) JSON(v interface{}) error {
	text, err := r.Text()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &httperr.DecodeError{ContentType: r.ContentType(), Err: err}
	}
	return nil
}

// Stream starts a lazy, single-pass stream over the response body,
// transparently reversing any gzip or deflate Content-Encoding. The
// body may be streamed at most once: a second call to Stream, or any
// call after the body was buffered or the response closed, fails with
// httperr.StreamStateError.
//
// The returned stream releases the underlying connection on every exit
// path: on clean end of body, on a read error, and on Close.
func (r *Response) Stream() (*Stream, error) {
	return r.stream(true)
}

// RawStream behaves like Stream but leaves the body bytes exactly as
// they arrived on the wire, without reversing Content-Encoding.
func (r *Response) RawStream() (*Stream, error) {
	return r.stream(false)
}

func (r *Response) stream(decompress bool) (*Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Unread {
		return nil, &httperr.StreamStateError{Op: "stream", State: r.state.String()}
	}
	r.state = Streaming
	return newStream(r, decompress), nil
}

// Close releases the underlying connection and marks the response
// closed. Close is idempotent and safe to call at any point in the body
// lifecycle; any body read after Close fails with
// httperr.StreamStateError.
func (r *Response) Close() error {
	var hooks []func()
	defer runHooks(&hooks)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Closed {
		return nil
	}
	r.state = Closed
	r.buf = nil
	hooks = r.releaseLocked()
	return nil
}

// OnClose registers f to run exactly once when the underlying
// connection is released, whether by full consumption, a read error, or
// Close. The retry policy uses this to tie per-attempt resources to the
// final response's lifetime. If the connection has already been
// released, f runs immediately.
func (r *Response) OnClose(f func()) {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		f()
		return
	}
	r.onClose = append(r.onClose, f)
	r.mu.Unlock()
}

// CheckStatus returns nil if the response status code is one of the
// allowed codes, and a *httperr.StatusError carrying the status code,
// reason phrase and a truncated body excerpt otherwise. With no allowed
// codes, any code in the 2xx range is accepted.
//
// CheckStatus buffers the body of a failing response to build the
// excerpt, so it follows the same body state rules as Bytes.
func (r *Response) CheckStatus(allowed ...int) error {
	if len(allowed) == 0 {
		if 200 <= r.StatusCode && r.StatusCode <= 299 {
			return nil
		}
	} else {
		for _, code := range allowed {
			if r.StatusCode == code {
				return nil
			}
		}
	}
	excerpt, _ := r.Bytes()
	return httperr.NewStatusError(r.StatusCode, r.Reason, excerpt)
}

// markStreamEnd is called by a Stream when iteration ends for any
// reason. The connection is released exactly once; the final state is
// Consumed on a fully iterated stream and Closed on error or explicit
// stream close.
func (r *Response) markStreamEnd(final State) {
	var hooks []func()
	defer runHooks(&hooks)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Consumed || r.state == Closed {
		return
	}
	r.state = final
	hooks = r.releaseLocked()
}

// releaseLocked closes the underlying connection exactly once and hands
// back the OnClose hooks to run. The caller must hold r.mu, and must
// run the returned hooks after releasing it, so a hook may call back
// into the Response.
func (r *Response) releaseLocked() []func() {
	if r.released {
		return nil
	}
	r.released = true
	closeQuietly(r.raw)
	hooks := r.onClose
	r.onClose = nil
	return hooks
}

// runHooks runs deferred, after the mutex deferred ahead of it has been
// released.
func runHooks(hooks *[]func()) {
	for _, f := range *hooks {
		f()
	}
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
