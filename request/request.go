// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	urlpkg "net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const nilCtxMsg = "corehttp/request: nil context"

// A Request describes a logical HTTP request for execution by a
// pipeline.
//
// The logical request described by a Request will typically result in a
// lower-level http.Request (net/http) being sent, but may result in
// multiple request attempts, for example if a failed attempt needs to
// be retried or an authentication challenge needs to be answered. Each
// attempt works on its own Clone of the Request, so the Request handed
// to Pipeline.Run is never mutated by a retry.
//
// The field structure of Request mirrors the structure of the
// lower-level http.Request with server-only fields removed. The body is
// set through one of the SetXxxBody methods, which record whether the
// body can be replayed for a retry attempt and auto-set Content-Type
// and Content-Length where they are computable.
//
// Like the http.Request structure, a Request has a context which
// controls the overall execution and can be used to cancel the inflight
// execution at any time.
type Request struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the URL to access. It must be absolute: the URL's
	// Host specifies the server to connect to, while the Request's Host
	// field optionally specifies the Host header value to send in the
	// HTTP request.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent by the
	// client. Header is a case-insensitive multimap; use HeaderValue to
	// read all values of a key joined into a single string.
	Header http.Header

	// Close stipulates whether to close the connection after sending
	// the lower-level (net/http) request and reading the response.
	// Setting this field prevents re-use of TCP connections between
	// request attempts to the same host.
	Close bool

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host will be sent. Host may contain an international
	// domain name.
	Host string

	body          io.ReadCloser
	getBody       func() (io.ReadCloser, error)
	contentLength int64

	// insecure records a per-call override of the HTTPS requirement
	// enforced by bearer token authentication.
	insecure bool

	// ctx allows the entire execution to be cancelled. It should only
	// be modified by copying the whole Request using WithContext.
	ctx context.Context
}

// New wraps NewWithContext using the background context.
func New(method, url string) (*Request, error) {
	return NewWithContext(context.Background(), method, url)
}

// NewWithContext returns a new bodiless Request given a method and URL.
// Set a body, if one is needed, with one of the SetXxxBody methods.
func NewWithContext(ctx context.Context, method, url string) (*Request, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("corehttp/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("corehttp/request: URL %q is not absolute", url)
	}
	u.Host = removeEmptyPort(u.Host)
	return &Request{
		ctx:           ctx,
		Method:        method,
		URL:           u,
		Header:        make(http.Header),
		Host:          u.Host,
		contentLength: -1,
	}, nil
}

// Context returns the request's context. The context controls
// cancellation of the overall request execution, including any retry
// waits. To change the context, use WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context changed to
// ctx, which must be non-nil.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// Clone returns a copy of r suitable for an individual request attempt.
// The header multimap is deeply copied so policies may mutate the
// attempt's headers without affecting the original Request or other
// attempts. The body configuration is shared: replayable bodies produce
// a fresh reader per attempt, while a non-replayable stream body can
// only be sent once.
func (r *Request) Clone(ctx context.Context) *Request {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	r2.Header = make(http.Header, len(r.Header))
	for k, vv := range r.Header {
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		r2.Header[k] = vv2
	}
	return r2
}

// HeaderValue returns all values of the named header joined into a
// single string with ", ", or the empty string if the header is absent.
func (r *Request) HeaderValue(key string) string {
	return strings.Join(r.Header.Values(key), ", ")
}

// AllowInsecure overrides, for this request only, the requirement that
// bearer token credentials are attached over HTTPS connections. Use it
// only for test endpoints: sending a bearer token over plain HTTP
// exposes the token to the network.
func (r *Request) AllowInsecure() {
	r.insecure = true
}

// InsecureAllowed reports whether AllowInsecure was called on this
// request.
func (r *Request) InsecureAllowed() bool {
	return r.insecure
}

// SetBytesBody sets the request body to the given byte slice and sets
// the computed Content-Length. The caller retains the content type
// decision; use the Header or a more specific SetXxxBody method to set
// Content-Type.
//
// A nil or empty slice removes the body.
func (r *Request) SetBytesBody(b []byte) {
	if len(b) == 0 {
		r.body = nil
		r.getBody = nil
		r.contentLength = -1
		return
	}
	r.setBuffered(b)
}

// SetTextBody sets the request body to the given text and sets
// Content-Type to "text/plain; charset=utf-8" along with the computed
// Content-Length.
func (r *Request) SetTextBody(s string) {
	r.setBuffered([]byte(s))
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
}

// SetJSONBody marshals v as JSON, sets it as the request body, and sets
// Content-Type to "application/json" along with the computed
// Content-Length.
func (r *Request) SetJSONBody(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.setBuffered(b)
	r.Header.Set("Content-Type", "application/json")
	return nil
}

// SetXMLBody marshals v as an XML document with a declared utf-8
// encoding, sets it as the request body, and sets Content-Type to
// "application/xml" along with the computed Content-Length.
func (r *Request) SetXMLBody(v interface{}) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return err
	}
	doc := make([]byte, 0, len(xml.Header)+len(b))
	doc = append(doc, xml.Header...)
	doc = append(doc, b...)
	r.setBuffered(doc)
	r.Header.Set("Content-Type", "application/xml")
	return nil
}

// SetFormBody sets the request body to the URL-encoded keys and values
// from data and sets Content-Type to
// "application/x-www-form-urlencoded" along with the computed
// Content-Length.
func (r *Request) SetFormBody(data urlpkg.Values) {
	r.setBuffered([]byte(data.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
}

// SetMultipartBody sets the request body to a multipart/form-data
// document containing the keys and values from fields, and sets
// Content-Type to the multipart content type including the generated
// boundary, along with the computed Content-Length.
func (r *Request) SetMultipartBody(fields urlpkg.Values) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vv := range fields {
		for _, v := range vv {
			if err := w.WriteField(k, v); err != nil {
				return err
			}
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	r.setBuffered(buf.Bytes())
	r.Header.Set("Content-Type", w.FormDataContentType())
	return nil
}

// SetStreamBody sets the request body to a streaming source which is
// read directly during the send rather than being pre-buffered.
//
// Parameter contentLength is the body length in bytes, or -1 if
// unknown.
//
// If body implements io.Seeker the stream is replayable: every request
// attempt rewinds it to its current offset, so the request remains
// eligible for retries. Otherwise the body can be sent at most once and
// the retry policy will not resend the request after a failure.
func (r *Request) SetStreamBody(body io.Reader, contentLength int64) {
	r.contentLength = contentLength
	if s, ok := body.(io.ReadSeeker); ok {
		start, err := s.Seek(0, io.SeekCurrent)
		if err == nil {
			r.body = nil
			r.getBody = func() (io.ReadCloser, error) {
				if _, err := s.Seek(start, io.SeekStart); err != nil {
					return nil, err
				}
				return io.NopCloser(s), nil
			}
			return
		}
	}
	r.getBody = nil
	if rc, ok := body.(io.ReadCloser); ok {
		r.body = rc
	} else {
		r.body = io.NopCloser(body)
	}
}

// HasBody reports whether a body has been set on the request.
func (r *Request) HasBody() bool {
	return r.body != nil || r.getBody != nil
}

// Replayable reports whether the request body, if any, can be produced
// again for an additional request attempt. Requests without a body are
// trivially replayable.
func (r *Request) Replayable() bool {
	return r.body == nil || r.getBody != nil
}

// ContentLength returns the body length in bytes, or -1 if no body has
// been set or the length is unknown.
func (r *Request) ContentLength() int64 {
	return r.contentLength
}

func (r *Request) setBuffered(b []byte) {
	r.contentLength = int64(len(b))
	r.body = nil
	r.getBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	if r.contentLength >= 0 {
		r.Header.Set("Content-Length", strconv.FormatInt(r.contentLength, 10))
	}
}

// AddCookie adds a cookie to the request. Per RFC 6265 section 5.4,
// AddCookie does not attach more than one Cookie header field. That
// means all cookies, if any, are written into the same line,
// separated by semicolons.
//
// AddCookie only sanitizes c's name and value, and does not sanitize
// a Cookie header already present in the request.
func (r *Request) AddCookie(c *http.Cookie) {
	c2 := &http.Cookie{Name: c.Name, Value: c.Value}
	s := c2.String()
	if h := r.Header.Get("Cookie"); h != "" {
		r.Header.Set("Cookie", h+"; "+s)
	} else {
		r.Header.Set("Cookie", s)
	}
}

// SetBasicAuth sets the request's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
//
// With HTTP Basic Authentication the provided username and password
// are not encrypted.
func (r *Request) SetBasicAuth(username, password string) {
	r.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToHTTP creates a lower-level http.Request corresponding to this
// request for a single attempt. The context of the new request is set
// to ctx, which may not be nil.
//
// For a replayable body, every call produces a fresh body reader. For a
// non-replayable stream body, only the first call carries the body.
func (r *Request) ToHTTP(ctx context.Context) (*http.Request, error) {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	hr := template.WithContext(ctx)
	hr.Method = r.Method
	hr.URL = r.URL
	hr.Header = r.Header
	hr.Close = r.Close
	hr.Host = r.Host
	if r.getBody != nil {
		body, err := r.getBody()
		if err != nil {
			return nil, err
		}
		hr.Body = body
		hr.GetBody = r.getBody
		hr.ContentLength = r.contentLength
	} else if r.body != nil {
		hr.Body = r.body
		hr.ContentLength = r.contentLength
	}
	return hr, nil
}

// basicAuth is lifted verbatim from net/http/client.go.
//
// See 2 (end of page 4) https://www.ietf.org/rfc/rfc2617.txt
// "To receive authorization, the client sends the userid and password,
// separated by a single colon (":") character, within a base64
// encoded string in the credentials."
// It is not meant to be urlencoded.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// validMethod reports whether method is a valid HTTP token per RFC 7230
// section 3.2.6. The empty string is never passed because it is always
// interpreted as "GET".
func validMethod(method string) bool {
	return httpguts.ValidHeaderFieldName(method)
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
