package node

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/bluemods/go-stabber/constants"
	xpp "github.com/mmcdole/goxpp"
)

var (
	// The peer sent the stream close element.
	ErrStreamClosed = errors.New("end of stream reached: " + constants.END_STREAM)
)

// How many trailing bytes are kept to detect the stream close marker
const tailSize = 64

type StanzaInputStream struct {
	Reader  LoggingReader
	Parser  *xpp.XMLPullParser
	tail    *tailReader
	builder stanzaBuilder
}

// Read the next stanza from the input stream.
//
// Returns ErrStreamClosed when the peer closed the stream,
// io.EOF when the peer disconnected,
// and an error wrapping ErrMalformed on a parse failure.
// Other errors come from the underlying reader.
func (input *StanzaInputStream) ReadNextStanza() (*Stanza, error) {
	parser := input.Parser
	for {
		event, err := parser.Next()
		if err != nil {
			input.builder.reset()
			return nil, input.translateError(err)
		}
		switch event {
		case xpp.StartTag:
			input.builder.startTag(parser)
		case xpp.Text:
			input.builder.text(parser.Text)
		case xpp.EndTag:
			s, done, err := input.builder.endTag()
			if err != nil {
				input.builder.reset()
				return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			if done {
				input.Reader.ClearBuffer()
				return s, nil
			}
		case xpp.EndDocument:
			input.builder.reset()
			if input.tail.HasSuffix(constants.END_STREAM) {
				return nil, ErrStreamClosed
			}
			return nil, io.EOF
		}
	}
}

func (input *StanzaInputStream) translateError(err error) error {
	if input.tail.HasSuffix(constants.END_STREAM) {
		// The decoder rejects the unmatched </stream:stream>
		return ErrStreamClosed
	}
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		if syntaxErr.Msg == "unexpected EOF" {
			return io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return err
}

// Create a stanza stream over a long-lived connection.
// r should be the same buffered reader used for the stream header,
// so no bytes are lost between the handshake and the stanza exchange.
func NewStanzaInputStream(r io.Reader) *StanzaInputStream {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	tail := &tailReader{r: r}
	reader := NewLoggingReader(tail)
	return &StanzaInputStream{
		Reader: reader,
		Parser: newPullParser(reader),
		tail:   tail,
	}
}

// Remembers the last bytes read, used for the stream close scan.
type tailReader struct {
	r    io.Reader
	tail []byte
}

func (t *tailReader) Read(p []byte) (n int, err error) {
	n, err = t.r.Read(p)
	if n > 0 {
		t.tail = append(t.tail, p[:n]...)
		if len(t.tail) > tailSize {
			t.tail = append(t.tail[:0], t.tail[len(t.tail)-tailSize:]...)
		}
	}
	return
}

func (t *tailReader) ReadByte() (byte, error) {
	b, err := readByte(t.r)
	if err == nil {
		t.tail = append(t.tail, b)
		if len(t.tail) > tailSize*2 {
			t.tail = append(t.tail[:0], t.tail[len(t.tail)-tailSize:]...)
		}
	}
	return b, err
}

func (t *tailReader) HasSuffix(marker string) bool {
	return bytes.HasSuffix(bytes.TrimRight(t.tail, " \t\r\n"), []byte(marker))
}
