// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the Request type, the descriptor for a logical
HTTP request executed by a pipeline.

A Request describes how to make a logical HTTP request, potentially
involving repeated HTTP request attempts if retry is necessary after a
failure. For those familiar with the Go standard HTTP library, net/http,
a Request looks like a stripped-down http.Request structure with all
server-side fields removed, and with the body set through dedicated
methods which record whether the body is replayable for retries and
auto-set Content-Type and Content-Length where they are computable.
Request fields are named and typed consistently with http.Request
wherever possible.

Create a request and run it through a pipeline:

	req, err := request.New("GET", "https://example.com")
	...
	resp, err := pl.Run(req)
	...

The body may be raw bytes or text, a JSON or XML document, URL-encoded
form fields, a multipart form, or a streaming source:

	req, err := request.New("POST", "https://example.com/upload")
	...
	err = req.SetJSONBody(payload)

A request may be assigned a context to allow a deadline to be set on the
entire execution, and to allow the execution to be cancelled:

	req, err := request.NewWithContext(ctx, "POST", "https://example.com/upload")
	...

If a deadline is set on the request context, it is separate from the
deadlines set on individual request attempts within the execution, which
are dictated by the retry policy's attempt timeout. The effect is that
an individual request attempt may fail due either to an attempt timeout
or a request timeout. The former is potentially retryable, the latter is
not.
*/
package request
