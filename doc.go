// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package corehttp provides a robust HTTP client built on a composable
policy pipeline, for use as the shared request runtime of service
client libraries.

Every request runs through an ordered chain of policies ending in a
transport. The bundled policies stamp a request ID and user agent,
retry failed attempts with capped exponential backoff and independent
budgets per failure category, and optionally log each attempt. Callers
add their own policies per call or per retry attempt, including bearer
token authentication from the auth subpackage.

The simplest use is the Client type:

	client := &corehttp.Client{}
	resp, err := client.Get("https://example.com")
	if err != nil {
		return err
	}
	defer resp.Close()
	body, err := resp.Text()

For full control, build requests with the request subpackage and run
them with Client.Do or directly through a pipeline from NewPipeline:

	req, err := request.New("PUT", "https://example.com/thing")
	if err != nil {
		return err
	}
	if err = req.SetJSONBody(thing); err != nil {
		return err
	}
	resp, err := client.Do(req)

Responses arrive with the body unread. Read it exactly one way: buffer
it with Bytes, Text, or JSON, which may be repeated; or stream it once
with Stream, after which the buffered accessors are unavailable. A
response with a bad status code is not an error; use
response.CheckStatus to require specific codes.

Subpackages:

  - request: the HTTP request model and body helpers
  - response: the HTTP response model, buffering, streaming, and
    decompression
  - pipeline: the Policy, Exchange, and Transport abstractions
  - transport: the net/http transport
  - retry: the retry policy
  - auth: bearer token credentials and the authentication policy
  - httperr: the error taxonomy shared by all of the above
*/
package corehttp
