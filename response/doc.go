// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package response contains the Response type, the result of one HTTP
request attempt, and its streaming body machinery.

A Response tracks an explicit body consumption state machine. The body
starts unread and may be consumed exactly one way: buffered whole into
memory via Bytes, Text or JSON, or streamed incrementally and exactly
once via Stream or RawStream. Reading an already-consumed or closed body
fails with httperr.StreamStateError rather than returning empty data, so
a missing body is always a caller bug surfaced loudly, never a silent
truncation.

	resp, err := pl.Run(req)
	...
	var out payload
	err = resp.JSON(&out)

Streaming reads transparently reverse a gzip or deflate
Content-Encoding, detect truncated bodies against the declared
Content-Length (httperr.IncompleteReadError), and guarantee the
underlying connection is released on every exit path:

	s, err := resp.Stream()
	...
	defer s.Close()
	_, err = io.Copy(dst, s)
*/
package response
