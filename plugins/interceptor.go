package plugins

import (
	"github.com/bluemods/go-stabber/node"
)

// Produces a reply for a stanza that has no primed response.
//
// Implementations are called from the connection goroutine
// and must not block.
type StanzaInterceptor interface {
	// Returns the text to write back to the client for s.
	// ok is false when there is nothing to send.
	Intercept(s *node.Stanza) (reply string, ok bool)
}

// Adapts a plain function to StanzaInterceptor.
type InterceptorFunc func(s *node.Stanza) (string, bool)

func (f InterceptorFunc) Intercept(s *node.Stanza) (string, bool) {
	return f(s)
}

// Runs each interceptor in order. The first reply wins.
type Chain []StanzaInterceptor

func (c Chain) Intercept(s *node.Stanza) (string, bool) {
	for _, i := range c {
		if reply, ok := i.Intercept(s); ok {
			return reply, true
		}
	}
	return "", false
}
