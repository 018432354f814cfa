// Package codec implements the wire-level encoding contract: a Context
// carrying a byte stream and a codec tag, a small Codec interface
// (Encode/Decode/ByteSize), a Registry that dispatches by tag, and the
// one codec the core ships: BinaryCodec, a big-endian, length-prefixed
// encoding for every value shape the message model supports.
package codec

import (
	"bytes"
	"io"
)

// Tag names a registered Codec. The core only ships "binary"; callers may
// register others (e.g. a JSON codec) against the same Registry.
type Tag string

// BinaryTag is the Tag BinaryCodec registers itself under.
const BinaryTag Tag = "binary"

// Context carries the byte stream a Codec reads from or writes to, plus
// the Tag the caller selected at the call site. Per the calling
// convention, the codec is chosen by the caller, not by the field's
// schema, so a Context is constructed fresh for each encode/decode
// operation rather than stored on a Field.
type Context struct {
	tag Tag
	rw  io.ReadWriter
}

// NewEncodeContext returns a Context that writes into buf under tag.
func NewEncodeContext(tag Tag, buf *bytes.Buffer) *Context {
	return &Context{tag: tag, rw: buf}
}

// NewDecodeContext returns a Context that reads from r under tag.
func NewDecodeContext(tag Tag, r io.Reader) *Context {
	return &Context{tag: tag, rw: readOnly{r}}
}

// Tag returns the codec tag this context was constructed with.
func (c *Context) Tag() Tag {
	return c.tag
}

// Reader exposes the context's underlying stream for reading.
func (c *Context) Reader() io.Reader {
	return c.rw
}

// Writer exposes the context's underlying stream for writing.
func (c *Context) Writer() io.Writer {
	return c.rw
}

type readOnly struct {
	io.Reader
}

func (readOnly) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}
