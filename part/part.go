// Package part defines Part, the one-shot handle to a single
// multipart/form-data part's headers and body, exposed to callers by
// the top-level Multipart iterator.
package part

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"unicode/utf8"

	muerrors "github.com/zostay/go-multipart/errors"
	"github.com/zostay/go-multipart/internal/headerparse"
	"github.com/zostay/go-multipart/internal/scanner"
)

// Part is one {headers, body} unit. It owns an exclusive handle on the
// underlying scanner until its body is consumed; a second attempt to
// read the body fails with "already consumed".
type Part struct {
	headers headerparse.ParsedPartHeaders
	scan    *scanner.Scanner
	ctx     context.Context

	consumed bool
	drained  bool
}

// New wraps a parsed header block and scanner handle as a Part. Within
// the library, the top-level Multipart type is what constructs parts.
func New(ctx context.Context, headers headerparse.ParsedPartHeaders, scan *scanner.Scanner) *Part {
	return &Part{headers: headers, scan: scan, ctx: ctx}
}

// FieldName returns the part's field name.
func (p *Part) FieldName() string { return p.headers.FieldName }

// FileName returns the part's file name and whether one was present;
// its presence is what classifies the part as a file field.
func (p *Part) FileName() (string, bool) { return p.headers.FileName, p.headers.HasFileName }

// IsFile reports whether this part is a file field.
func (p *Part) IsFile() bool { return p.headers.HasFileName }

// ContentType returns the part's parsed Content-Type essence.
func (p *Part) ContentType() string { return p.headers.ContentType }

// Headers returns the raw, case-insensitive header multimap for this
// part.
func (p *Part) Headers() *headerparse.RawHeaders { return &p.headers.RawHeaders }

// SizeHint returns the value of the advisory Content-Length header, if
// present and well-formed.
func (p *Part) SizeHint() (uint64, bool) {
	v, ok := p.headers.RawHeaders.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// BodyStream is a one-shot io.Reader over a part's body chunks.
type BodyStream struct {
	part    *Part
	done    bool
	pending []byte
}

// Stream returns a one-shot lazy byte-chunk reader over the part's
// body. Calling Stream more than once on the same Part fails with a
// ParseError.
func (p *Part) Stream() (*BodyStream, error) {
	if p.consumed {
		return nil, muerrors.NewParseError("part body was already consumed")
	}
	p.consumed = true
	return &BodyStream{part: p}, nil
}

// Read implements io.Reader, pulling body chunks from the scanner on
// demand and buffering any leftover beyond what the caller's slice
// could hold. No chunk returned by the scanner ever crosses the
// terminal boundary.
func (bs *BodyStream) Read(p []byte) (int, error) {
	for len(bs.pending) == 0 {
		if bs.done {
			return 0, io.EOF
		}
		chunk, err := bs.part.scan.NextBodyChunk(bs.part.ctx)
		if err == io.EOF {
			bs.done = true
			bs.part.drained = true
			return 0, io.EOF
		}
		if err != nil {
			bs.done = true
			bs.part.drained = true
			return 0, err
		}
		bs.pending = chunk
	}
	n := copy(p, bs.pending)
	bs.pending = bs.pending[n:]
	return n, nil
}

// Bytes reads the full body into memory as a single buffer. It is a
// thin wrapper over Stream and consumes the part once.
func (p *Part) Bytes() ([]byte, error) {
	s, err := p.Stream()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Text reads the full body and decodes it as UTF-8, failing if it is
// not valid UTF-8.
func (p *Part) Text() (string, error) {
	b, err := p.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", muerrors.NewParseError("part body is not valid UTF-8")
	}
	return string(b), nil
}

// Drain consumes and discards the remainder of the part's body,
// implicitly acquiring the stream if it has not already been taken.
// The scanner is advanced past this part's body even when a previously
// taken stream was only partially read, so the next part's headers
// start clean. Draining a part whose body already reached its end is a
// no-op.
func (p *Part) Drain() error {
	if p.drained {
		return nil
	}
	p.consumed = true
	p.drained = true
	return p.scan.DrainBody(p.ctx)
}
