package node

import (
	"bytes"
	"io"
)

// An io.Reader that logs data that it reads into a byte buffer.
// The buffer is cleared each time a stanza completes, so after a
// parse failure it holds the raw bytes of the offending stanza.
type LoggingReader interface {
	// Retrieves the buffer.
	// The buffer will be cleared once this call returns.
	GetBuffer() []byte

	// Clears the buffer, freeing the allocated memory.
	ClearBuffer()

	io.Reader
	io.ByteReader
}

type ByteBufferLoggingReader struct {
	r   io.Reader
	buf *bytes.Buffer
}

func NewLoggingReader(r io.Reader) *ByteBufferLoggingReader {
	return &ByteBufferLoggingReader{r: r, buf: new(bytes.Buffer)}
}

// Implementing io.ByteReader keeps the XML decoder from reading ahead,
// so the buffer never holds bytes of a stanza that has not started yet.
func (r *ByteBufferLoggingReader) ReadByte() (byte, error) {
	b, err := readByte(r.r)
	if err == nil {
		r.buf.WriteByte(b)
	}
	return b, err
}

func (r *ByteBufferLoggingReader) Read(p []byte) (n int, err error) {
	n, err = r.r.Read(p)
	if n > 0 {
		r.buf.Write(p[0:n])
	}
	return
}

func (r *ByteBufferLoggingReader) GetBuffer() []byte {
	buffer := bytes.Clone(r.buf.Bytes())
	r.ClearBuffer()
	return buffer
}

func (r *ByteBufferLoggingReader) ClearBuffer() {
	r.buf.Reset()

	// Drop large buffers so a single big stanza
	// does not pin memory for the rest of the stream.
	if r.buf.Cap() >= 4096 {
		r.buf = new(bytes.Buffer)
	}
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
