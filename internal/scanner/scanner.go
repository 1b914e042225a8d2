// Package scanner implements the chunk-level multipart/form-data
// boundary state machine: it owns the byte buffer, walks the part
// state machine (StartBoundary -> Headers -> Body -> End/Failed), and
// emits header blocks and body chunks without ever buffering an entire
// part body. Between emissions the buffer holds at most one upstream
// chunk plus a delimiter-sized tail, so memory stays flat no matter
// how large a part's body is.
package scanner

import (
	"bytes"
	"context"
	"io"

	muerrors "github.com/zostay/go-multipart/errors"
)

// ChunkSource is a pull source of upstream byte chunks. Next returns
// io.EOF once the upstream stream is exhausted; it must not be called
// again afterward.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

type readerSource struct {
	r         io.Reader
	chunkSize int
}

// FromReader adapts an io.Reader into a ChunkSource that reads up to
// chunkSize bytes per call.
func FromReader(r io.Reader, chunkSize int) ChunkSource {
	if chunkSize <= 0 {
		chunkSize = 16_384
	}
	return &readerSource{r: r, chunkSize: chunkSize}
}

func (s *readerSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, s.chunkSize)
	n, err := s.r.Read(buf)
	if n > 0 {
		if err == io.EOF {
			return buf[:n], nil
		}
		return buf[:n], err
	}
	return nil, err
}

type state int

const (
	stateStartBoundary state = iota
	stateHeaders
	stateBody
	stateEnd
	stateFailed
)

// Scanner is the incremental multipart boundary state machine.
type Scanner struct {
	source ChunkSource

	opening   []byte
	terminal  []byte
	delimiter []byte

	buf []byte
	eof bool

	st state

	receivedBytes uint64
	maxBodySize   *uint64

	currentPartMaxSize *uint64
	currentPartField   string
	currentPartIsFile  bool
	currentPartSize    uint64

	storedFailure error
}

// New builds a Scanner for the given boundary, reading chunks from
// source. maxBodySize, if non-nil, bounds the total number of upstream
// bytes pulled across the whole stream.
func New(boundary string, source ChunkSource, maxBodySize *uint64) (*Scanner, error) {
	if err := ValidateBoundary(boundary); err != nil {
		return nil, err
	}
	return &Scanner{
		source:      source,
		opening:     []byte("--" + boundary),
		terminal:    []byte("--" + boundary + "--"),
		delimiter:   []byte("\r\n--" + boundary),
		st:          stateStartBoundary,
		maxBodySize: maxBodySize,
	}, nil
}

// SetCurrentPartLimits must be called by the caller immediately after
// receiving a header block, before pulling any body chunks, to tell
// the scanner which per-part size budget applies to the part it is
// about to stream.
func (s *Scanner) SetCurrentPartLimits(fieldName string, isFile bool, maxSize *uint64) {
	s.currentPartField = fieldName
	s.currentPartIsFile = isFile
	s.currentPartMaxSize = maxSize
	s.currentPartSize = 0
}

// NextHeaderBlock advances the scanner to the next part's header block
// (from StartBoundary or from having finished a previous body), or
// reports end-of-stream via io.EOF.
func (s *Scanner) NextHeaderBlock(ctx context.Context) ([]byte, error) {
	switch s.st {
	case stateFailed:
		return nil, s.failure()
	case stateEnd:
		return nil, io.EOF
	}

	if s.st == stateStartBoundary {
		if err := s.consumeStartBoundaryLine(ctx); err != nil {
			return nil, s.fail(err)
		}
	}

	if s.st == stateEnd {
		return nil, io.EOF
	}

	// s.st == stateHeaders here.
	for {
		if idx := bytes.Index(s.buf, crlfcrlf); idx >= 0 {
			block := make([]byte, idx)
			copy(block, s.buf[:idx])
			s.advanceBuf(idx + len(crlfcrlf))
			s.st = stateBody
			return block, nil
		}
		if s.eof {
			return nil, s.fail(muerrors.NewParseError("truncated part header block"))
		}
		if err := s.pull(ctx); err != nil {
			return nil, s.fail(err)
		}
	}
}

var crlfcrlf = []byte("\r\n\r\n")

// NextBodyChunk returns the next body chunk for the current part, or
// io.EOF once the part's body is fully emitted (the scanner has then
// advanced to Headers or End internally).
func (s *Scanner) NextBodyChunk(ctx context.Context) ([]byte, error) {
	if s.st == stateFailed {
		return nil, s.failure()
	}
	if s.st != stateBody {
		return nil, io.EOF
	}

	for {
		if idx := bytes.Index(s.buf, s.delimiter); idx >= 0 {
			after := s.buf[idx+len(s.delimiter):]

			var consumed int
			var next state
			switch {
			case bytes.HasPrefix(after, []byte("--\r\n")):
				consumed, next = idx+len(s.delimiter)+4, stateEnd
			case bytes.HasPrefix(after, []byte("\r\n")):
				consumed, next = idx+len(s.delimiter)+2, stateHeaders
			case s.eof && string(after) == "--":
				consumed, next = idx+len(s.delimiter)+2, stateEnd
			default:
				if len(after) < 4 && !s.eof {
					// Not enough trailing bytes yet to tell which
					// suffix this is; pull more and retry.
					if err := s.pull(ctx); err != nil {
						return nil, s.fail(err)
					}
					continue
				}
				return nil, s.fail(muerrors.NewParseError("malformed multipart boundary"))
			}

			chunk := s.takeEmittable(idx)
			if err := s.checkPartSize(len(chunk)); err != nil {
				return nil, s.fail(err)
			}
			s.advanceBuf(consumed)
			s.st = next

			if chunk != nil {
				return chunk, nil
			}
			return nil, io.EOF
		}

		if s.hasMalformedBoundaryLine() {
			return nil, s.fail(muerrors.NewParseError("malformed multipart boundary"))
		}

		safeLen := len(s.buf) - (len(s.delimiter) - 1)
		if safeLen > 0 {
			chunk := s.takeEmittable(safeLen)
			if err := s.checkPartSize(len(chunk)); err != nil {
				return nil, s.fail(err)
			}
			s.advanceBuf(safeLen)
			if chunk != nil {
				return chunk, nil
			}
		}

		if s.eof {
			return nil, s.fail(muerrors.ErrIncompleteStream)
		}
		if err := s.pull(ctx); err != nil {
			return nil, s.fail(err)
		}
	}
}

// takeEmittable copies buf[:n] out and returns nil if n == 0; the
// per-part size check is left to checkPartSize. The buffer is not advanced here; callers
// advance once they know the full consumption amount (chunk plus
// delimiter/suffix), since takeEmittable may be called before that is
// known.
func (s *Scanner) takeEmittable(n int) []byte {
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out
}

func (s *Scanner) checkPartSize(n int) error {
	if n <= 0 {
		return nil
	}
	s.currentPartSize += uint64(n)
	if s.currentPartMaxSize != nil && s.currentPartSize > *s.currentPartMaxSize {
		if s.currentPartIsFile {
			return muerrors.NewFileSizeLimitExceeded(s.currentPartField, *s.currentPartMaxSize)
		}
		return muerrors.NewFieldSizeLimitExceeded(s.currentPartField, *s.currentPartMaxSize)
	}
	return nil
}

// DrainBody reads and discards the remainder of the current part's
// body, used when the selector/policy engine ignores a part.
func (s *Scanner) DrainBody(ctx context.Context) error {
	for {
		_, err := s.NextBodyChunk(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Done reports whether the scanner has reached a terminal state.
func (s *Scanner) Done() bool {
	return s.st == stateEnd || s.st == stateFailed
}

func (s *Scanner) consumeStartBoundaryLine(ctx context.Context) error {
	for {
		if idx := bytes.Index(s.buf, []byte("\r\n")); idx >= 0 {
			line := s.buf[:idx]
			switch {
			case bytes.Equal(line, s.opening):
				s.advanceBuf(idx + 2)
				s.st = stateHeaders
				return nil
			case bytes.Equal(line, s.terminal):
				s.advanceBuf(idx + 2)
				s.st = stateEnd
				return nil
			default:
				return muerrors.NewParseError("malformed opening boundary")
			}
		}
		if s.eof {
			if bytes.Equal(s.buf, s.terminal) {
				s.st = stateEnd
				s.buf = nil
				return nil
			}
			return muerrors.NewParseError("malformed opening boundary")
		}
		if err := s.pull(ctx); err != nil {
			return err
		}
	}
}

// hasMalformedBoundaryLine fails fast when the buffer already contains
// a "\r\n--..." line whose boundary token matches neither opening nor
// terminal, even though the full delimiter hasn't matched yet (e.g.
// the line is followed by content other than CRLF/"--").
func (s *Scanner) hasMalformedBoundaryLine() bool {
	idx := bytes.Index(s.buf, []byte("\r\n--"))
	if idx < 0 {
		return false
	}
	rest := s.buf[idx+2:]
	end := bytes.Index(rest, []byte("\r\n"))
	if end < 0 {
		// No fully CRLF-terminated line yet; a truncated tail here is
		// an incomplete stream, not necessarily a malformed one.
		return false
	}
	line := rest[:end]
	return !bytes.Equal(line, s.opening) && !bytes.Equal(line, s.terminal)
}

// advanceBuf discards the first n bytes of the buffer.
func (s *Scanner) advanceBuf(n int) {
	if n <= 0 {
		return
	}
	s.buf = append(s.buf[:0], s.buf[n:]...)
}

// pull fetches the next upstream chunk and appends it to buf, checking
// max_body_size before appending.
func (s *Scanner) pull(ctx context.Context) error {
	chunk, err := s.source.Next(ctx)
	if len(chunk) > 0 {
		newTotal := s.receivedBytes + uint64(len(chunk))
		if s.maxBodySize != nil && newTotal > *s.maxBodySize {
			return muerrors.NewBodySizeLimitExceeded(*s.maxBodySize)
		}
		s.receivedBytes = newTotal
		s.buf = append(s.buf, chunk...)
	}
	if err == io.EOF {
		s.eof = true
		return nil
	}
	return err
}

func (s *Scanner) fail(err error) error {
	if err == nil {
		return nil
	}
	s.st = stateFailed
	s.storedFailure = err
	return err
}

func (s *Scanner) failure() error {
	if s.storedFailure != nil {
		return s.storedFailure
	}
	return muerrors.NewParseError("scanner failed")
}

