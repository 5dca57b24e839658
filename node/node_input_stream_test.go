package node

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exchange = `<iq id="1" type="get"><ping xmlns="urn:xmpp:ping"/></iq>
<message to="a@localhost"><body>hi</body></message>
<presence/>
`

func readAll(t *testing.T, input *StanzaInputStream) ([]*Stanza, error) {
	t.Helper()
	var out []*Stanza
	for {
		s, err := input.ReadNextStanza()
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

func TestReadNextStanza(t *testing.T) {
	input := NewStanzaInputStream(strings.NewReader(exchange + "</stream:stream>"))
	stanzas, err := readAll(t, input)

	require.ErrorIs(t, err, ErrStreamClosed)
	require.Len(t, stanzas, 3)
	assert.Equal(t, "iq", stanzas[0].Name)
	assert.Equal(t, "hi", stanzas[1].ChildByName("body").Content)
	assert.Equal(t, "presence", stanzas[2].Name)
}

func TestReadNextStanzaOneByteAtATime(t *testing.T) {
	input := NewStanzaInputStream(iotest.OneByteReader(strings.NewReader(exchange + "</stream:stream>\n")))
	stanzas, err := readAll(t, input)

	require.ErrorIs(t, err, ErrStreamClosed)
	assert.Len(t, stanzas, 3)
}

func TestReadNextStanzaDisconnect(t *testing.T) {
	input := NewStanzaInputStream(strings.NewReader(exchange))
	stanzas, err := readAll(t, input)

	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, stanzas, 3)
}

func TestReadNextStanzaMalformed(t *testing.T) {
	input := NewStanzaInputStream(strings.NewReader(`<iq id="1"/><<message/>`))

	s, err := input.ReadNextStanza()
	require.NoError(t, err)
	assert.Equal(t, "iq", s.Name)

	_, err = input.ReadNextStanza()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadNextStanzaClearsBuffer(t *testing.T) {
	input := NewStanzaInputStream(iotest.OneByteReader(strings.NewReader(`<a/><b>`)))

	_, err := input.ReadNextStanza()
	require.NoError(t, err)

	_, err = input.ReadNextStanza()
	require.Error(t, err)
	assert.NotContains(t, string(input.Reader.GetBuffer()), "<a/>")
	assert.Empty(t, input.Reader.GetBuffer(), "GetBuffer clears the buffer")
}

func TestReadNextStanzaMalformedKeepsRawBytes(t *testing.T) {
	for name, r := range map[string]io.Reader{
		"buffered":    strings.NewReader("<message to=\"a\"/>\n<iq type=get/>\n<presence/>"),
		"one byte":    iotest.OneByteReader(strings.NewReader("<message to=\"a\"/>\n<iq type=get/>\n<presence/>")),
		"half reader": iotest.HalfReader(strings.NewReader("<message to=\"a\"/>\n<iq type=get/>\n<presence/>")),
	} {
		t.Run(name, func(t *testing.T) {
			input := NewStanzaInputStream(r)

			s, err := input.ReadNextStanza()
			require.NoError(t, err)
			assert.Equal(t, "message", s.Name)

			_, err = input.ReadNextStanza()
			require.ErrorIs(t, err, ErrMalformed)

			buf := string(input.Reader.GetBuffer())
			assert.Contains(t, buf, "<iq type=")
			assert.NotContains(t, buf, "message")
			assert.NotContains(t, buf, "presence", "nothing past the error is read")
		})
	}
}

func BenchmarkReadNextStanza(b *testing.B) {
	b.ReportAllocs()
	payload := strings.Repeat(exchange, 100)
	for i := 0; i < b.N; i++ {
		input := NewStanzaInputStream(strings.NewReader(payload))
		for {
			if _, err := input.ReadNextStanza(); err != nil {
				break
			}
		}
	}
}
