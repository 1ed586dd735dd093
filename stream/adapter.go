package stream

import (
	"io"

	"github.com/pkg/errors"

	"github.com/jhol/cannelloni/pkg"
)

// =============================================================================
// Byte-Stream Adapter
// =============================================================================

// ByteStream adapts the host side of the session: a reader feeding
// outbound transfers and a writer receiving inbound ones. In discard
// mode it synthesizes zeros and swallows output, for speed testing
// without host I/O in the path.
type ByteStream struct {
	in      io.Reader
	out     io.Writer
	discard bool
}

// NewByteStream wraps the host streams. Either side may be nil when the
// direction never touches it.
func NewByteStream(in io.Reader, out io.Writer) *ByteStream {
	return &ByteStream{in: in, out: out}
}

// NewDiscardStream returns a stream that produces zeros and drops
// everything drained into it.
func NewDiscardStream() *ByteStream {
	return &ByteStream{discard: true}
}

// Fill produces the next len(buf) bytes of the outbound stream. A short
// count with final set means the stream ended; the engine treats the
// short block as the last transfer. Errors other than end-of-stream are
// fatal to the session.
func (s *ByteStream) Fill(buf []byte) (n int, final bool, err error) {
	if s.discard {
		clear(buf)
		return len(buf), false, nil
	}

	n, err = io.ReadFull(s.in, buf)
	switch err {
	case nil:
		return n, false, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return n, true, nil
	}
	return n, false, errors.Wrap(pkg.ErrStreamRead, err.Error())
}

// Drain consumes one completed inbound block. A failed or short write
// is fatal to the session, never retried.
func (s *ByteStream) Drain(buf []byte) error {
	if s.discard {
		return nil
	}

	n, err := s.out.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return pkg.ErrShortWrite
	}
	return nil
}
