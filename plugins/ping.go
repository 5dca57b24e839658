package plugins

import (
	"github.com/bluemods/go-stabber/constants"
	"github.com/bluemods/go-stabber/node"
)

// Answers XEP-0199 pings from the client so tests that never
// prime them do not stall on keepalives.
type PingResponder struct{}

func (PingResponder) Intercept(s *node.Stanza) (string, bool) {
	if s.Name != "iq" || s.Get(constants.TYPE_ATTR) != "get" {
		return "", false
	}
	ping := s.ChildByName("ping")
	if ping == nil || ping.Get(constants.XMLNS_ATTR) != constants.NS_PING {
		return "", false
	}
	var to *string
	if from, ok := s.Attr("from"); ok {
		to = &from
	}
	return node.NewNodeWriter().
		StartTag("iq").
		Attribute(constants.ID_ATTR, s.Get(constants.ID_ATTR)).
		Attribute(constants.TYPE_ATTR, constants.RESULT_TYPE).
		Attribute("from", constants.STUB_DOMAIN).
		AttributeIf("to", to).
		EndTag("iq").
		String(), true
}
