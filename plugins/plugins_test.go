package plugins

import (
	"testing"

	"github.com/bluemods/go-stabber/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingResponder(t *testing.T) {
	reply, ok := PingResponder{}.Intercept(node.MustParse(`<iq id="p1" type="get" from="stabber@localhost/profanity"><ping xmlns="urn:xmpp:ping"/></iq>`))
	require.True(t, ok)

	result := node.MustParse(reply)
	assert.True(t, result.Matches(node.MustParse(`<iq id="p1" type="result" from="localhost" to="stabber@localhost/profanity"/>`), true), reply)
}

func TestPingResponderWithoutFrom(t *testing.T) {
	reply, ok := PingResponder{}.Intercept(node.MustParse(`<iq id="p2" type="get"><ping xmlns="urn:xmpp:ping"/></iq>`))
	require.True(t, ok)
	assert.Equal(t, `<iq id="p2" type="result" from="localhost"/>`, reply)
}

func TestPingResponderIgnoresOtherStanzas(t *testing.T) {
	for _, in := range []string{
		`<iq id="p1" type="result"><ping xmlns="urn:xmpp:ping"/></iq>`,
		`<iq id="p1" type="get"><ping xmlns="urn:example"/></iq>`,
		`<iq id="p1" type="get"><query xmlns="jabber:iq:roster"/></iq>`,
		`<message><ping xmlns="urn:xmpp:ping"/></message>`,
	} {
		_, ok := PingResponder{}.Intercept(node.MustParse(in))
		assert.False(t, ok, in)
	}
}

func TestChain(t *testing.T) {
	never := InterceptorFunc(func(*node.Stanza) (string, bool) { return "", false })
	echo := InterceptorFunc(func(s *node.Stanza) (string, bool) { return s.Name, true })
	chain := Chain{never, PingResponder{}, echo}

	reply, ok := chain.Intercept(node.MustParse(`<presence/>`))
	require.True(t, ok)
	assert.Equal(t, "presence", reply)

	reply, ok = chain.Intercept(node.MustParse(`<iq id="x" type="get"><ping xmlns="urn:xmpp:ping"/></iq>`))
	require.True(t, ok)
	assert.Contains(t, reply, `type="result"`)

	_, ok = Chain{never}.Intercept(node.MustParse(`<presence/>`))
	assert.False(t, ok)
}
