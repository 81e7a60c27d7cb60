// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package corehttp

import (
	"net/url"
	"sync"

	"github.com/gogama/corehttp/pipeline"
	"github.com/gogama/corehttp/request"
	"github.com/gogama/corehttp/response"
)

// Client is a robust HTTP client running every request through a policy
// pipeline: request ID and user agent stamping, retry with backoff, any
// caller-supplied policies, and finally the transport.
//
// Client's zero value is usable with default options, mirroring the
// ergonomics of http.Client:
//
//	client := &corehttp.Client{}
//	resp, err := client.Get("https://example.com")
//
// Configure behavior through Options, or construct with NewClient:
//
//	client := corehttp.NewClient(&corehttp.ClientOptions{
//		Retry: retry.Options{Total: 5},
//	})
//
// Client is safe for concurrent use by multiple goroutines, with one
// caveat: Options must not be mutated after the first request.
type Client struct {
	// Options configures the client's pipeline. Nil means defaults.
	// Options are read once, when the first request runs, and must not
	// be changed afterward.
	Options *ClientOptions

	once     sync.Once
	pipeline *pipeline.Pipeline
}

// NewClient constructs a Client with its pipeline assembled eagerly
// from opts. A nil opts selects the defaults.
func NewClient(opts *ClientOptions) *Client {
	c := &Client{Options: opts}
	c.init()
	return c
}

func (c *Client) init() {
	c.once.Do(func() {
		c.pipeline = NewPipeline(c.Options)
	})
}

// Pipeline returns the client's policy pipeline, assembling it on first
// use.
func (c *Client) Pipeline() *pipeline.Pipeline {
	c.init()
	return c.pipeline
}

// Do executes req through the client's pipeline and returns the final
// response (and error, if any).
//
// A response with a bad status code is not an error: as long as a
// complete response arrived within the retry policy's budgets, Do
// returns it with a nil error. Use response.CheckStatus to convert
// unexpected status codes into errors.
func (c *Client) Do(req *request.Request) (*response.Response, error) {
	c.init()
	return c.pipeline.Run(req)
}

// Get issues a GET to the specified URL through the client's pipeline.
func (c *Client) Get(url string) (*response.Response, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL through the client's
// pipeline.
func (c *Client) Head(url string) (*response.Response, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL through the client's
// pipeline. The body parameter may be nil for an empty body, or may be
// any of the types supported by request.BodyBytes, namely: string;
// []byte; io.Reader; and io.ReadCloser.
func (c *Client) Post(url, contentType string, body interface{}) (*response.Response, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL through the client's
// pipeline, with data's keys and values URL-encoded as the request
// body and the content type set to application/x-www-form-urlencoded.
func (c *Client) PostForm(url string, data url.Values) (*response.Response, error) {
	return PostForm(c, url, data)
}

// CloseIdleConnections asks the client's transport to drop any idle
// kept-alive connections.
func (c *Client) CloseIdleConnections() {
	type idleCloser interface {
		CloseIdleConnections()
	}
	c.init()
	if ic, ok := c.pipeline.Transport().(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// Close closes the client's transport, releasing its resources. A
// closed transport reopens implicitly if another request runs.
func (c *Client) Close() error {
	c.init()
	return c.pipeline.Transport().Close()
}
