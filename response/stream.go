// Copyright 2026 The corehttp Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package response

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"strings"

	"github.com/gogama/corehttp/httperr"
)

// A Stream is a lazy, finite, non-restartable sequence of body bytes
// layered on a Response. It implements io.ReadCloser.
//
// Reads pass through a transparent decompressor when the response
// declares a gzip or deflate Content-Encoding, unless the stream was
// started with RawStream. On clean end of body the stream closes the
// underlying connection and reports io.EOF; a connection that closes
// before the declared Content-Length is reached reports
// httperr.IncompleteReadError instead.
//
// A Stream is single-pass. After the first full iteration, the
// response body is consumed and cannot be streamed again.
type Stream struct {
	resp   *Response
	br     *bodyReader
	err    error
	closed bool
}

func newStream(r *Response, decompress bool) *Stream {
	return &Stream{
		resp: r,
		br:   newBodyReader(r, decompress),
	}
}

// Read reads the next chunk of body bytes into p. It returns io.EOF on
// clean end of body, after which the underlying connection has been
// released. Any error outcome is sticky: once Read has failed, it fails
// the same way on every subsequent call.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, &httperr.StreamStateError{Op: "read", State: Closed.String()}
	}
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.br.Read(p)
	if err == io.EOF {
		s.err = io.EOF
		s.resp.markStreamEnd(Consumed)
	} else if err != nil {
		s.err = err
		s.resp.markStreamEnd(Closed)
	}
	return n, err
}

// WriteTo copies the remainder of the stream to w, returning the number
// of bytes written. It follows the same end-of-body and error rules as
// Read.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, err := s.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

// Close ends the stream and releases the underlying connection. Close
// is idempotent. After Close, Read fails with httperr.StreamStateError.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.br.close()
	s.resp.markStreamEnd(Closed)
	return nil
}

// bodyReader reads the wire body, counting wire bytes to detect short
// reads against the declared Content-Length and lazily layering a
// decompressor per the Content-Encoding header. It has no side effects
// on the response consumption state; that is the caller's job.
type bodyReader struct {
	resp       *Response
	wire       *countingReader
	rd         io.Reader
	closer     io.Closer
	decompress bool
	inited     bool
}

func newBodyReader(r *Response, decompress bool) *bodyReader {
	return &bodyReader{
		resp:       r,
		wire:       &countingReader{r: r.raw},
		decompress: decompress,
	}
}

func (b *bodyReader) Read(p []byte) (int, error) {
	if !b.inited {
		if err := b.init(); err != nil {
			return 0, b.classify(err)
		}
	}
	n, err := b.rd.Read(p)
	switch {
	case err == nil:
		return n, nil
	case err == io.EOF:
		if b.short() {
			return n, b.incomplete()
		}
		return n, io.EOF
	default:
		return n, b.classify(err)
	}
}

func (b *bodyReader) init() error {
	b.inited = true
	b.rd = b.wire
	if !b.decompress {
		return nil
	}
	switch strings.ToLower(b.resp.Header.Get("Content-Encoding")) {
	case "", "identity":
		return nil
	case "gzip":
		gz, err := gzip.NewReader(b.wire)
		if err != nil {
			return err
		}
		b.rd = gz
		b.closer = gz
	case "deflate":
		// Both the zlib-wrapped and raw forms of deflate are seen in
		// the wild; sniff the two-byte zlib header to tell them apart.
		buffered := bufio.NewReader(b.wire)
		hdr, err := buffered.Peek(2)
		if err == nil && isZlibHeader(hdr) {
			zr, zerr := zlib.NewReader(buffered)
			if zerr != nil {
				return zerr
			}
			b.rd = zr
			b.closer = zr
		} else {
			fr := flate.NewReader(buffered)
			b.rd = fr
			b.closer = fr
		}
	}
	return nil
}

func (b *bodyReader) close() {
	if b.closer != nil {
		closeQuietly(b.closer)
	}
}

// short reports whether the wire delivered fewer bytes than the
// response declared in Content-Length.
func (b *bodyReader) short() bool {
	return b.resp.contentLength >= 0 && b.wire.n < b.resp.contentLength
}

func (b *bodyReader) incomplete() error {
	return &httperr.IncompleteReadError{
		Expected: b.resp.contentLength,
		Received: b.wire.n,
	}
}

// classify maps a read failure into the error taxonomy. A connection
// that ended before the declared body length is an incomplete read;
// anything else not already classified is a response error.
func (b *bodyReader) classify(err error) error {
	if b.short() && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) {
		return b.incomplete()
	}
	if httperr.IsResponseError(err) {
		return err
	}
	return &httperr.ResponseError{Err: err}
}

func isZlibHeader(hdr []byte) bool {
	if len(hdr) < 2 || hdr[0]&0x0f != 8 {
		return false
	}
	return (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
