package connection

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/bluemods/go-stabber/constants"
	"github.com/bluemods/go-stabber/node"
)

var (
	ErrStreamOpenMismatch = errors.New("unexpected stream open")
	ErrAuthRejected       = errors.New("authentication rejected")
)

// Reads from r until exactly expected has been received.
//
// Fails as soon as the bytes read so far are no longer
// a prefix of expected, instead of waiting forever.
func awaitStreamOpen(r *bufio.Reader, expected string) error {
	buf := make([]byte, 0, len(expected))
	for len(buf) < len(expected) {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		buf = append(buf, b)
		if b != expected[len(buf)-1] {
			return fmt.Errorf("%w: got %q", ErrStreamOpenMismatch, buf)
		}
	}
	return nil
}

// Extracts the password from a jabber:iq:auth request.
// ok is false if s is not an auth request.
func authPassword(s *node.Stanza) (password string, ok bool) {
	if s.Name != "iq" || s.Get(constants.TYPE_ATTR) != "set" {
		return "", false
	}
	query := s.ChildByNamespace(constants.NS_IQ_AUTH)
	if query == nil || query.Name != "query" {
		return "", false
	}
	if p := query.ChildByName("password"); p != nil {
		return p.Content, true
	}
	return "", true
}

// Builds a jabber:iq:auth request.
// With the default credentials this is exactly AUTH_REQ.
func AuthRequest(username string, password string, resource string) string {
	return node.NewNodeWriter().
		StartTag("iq").
		Attribute(constants.ID_ATTR, constants.AUTH_ID).
		Attribute(constants.TYPE_ATTR, "set").
		StartTag("query").
		Attribute(constants.XMLNS_ATTR, constants.NS_IQ_AUTH).
		TagText("username", username).
		TagText("password", password).
		TagText("resource", resource).
		EndTag("query").
		EndTag("iq").
		String()
}

// Response to a successful auth request.
func authResult(request *node.Stanza) string {
	id := request.Get(constants.ID_ATTR)
	if id == constants.AUTH_ID {
		return constants.AUTH_RESP
	}
	return node.NewNodeWriter().
		StartTag("iq").
		Attribute(constants.ID_ATTR, id).
		Attribute(constants.TYPE_ATTR, constants.RESULT_TYPE).
		EndTag("iq").
		String()
}

// Response to an auth request with the wrong password.
func authError(request *node.Stanza) string {
	return node.NewNodeWriter().
		StartTag("iq").
		Attribute(constants.ID_ATTR, request.Get(constants.ID_ATTR)).
		Attribute(constants.TYPE_ATTR, "error").
		StartTag("error").
		Attribute("code", "401").
		Attribute(constants.TYPE_ATTR, "auth").
		StartTag("not-authorized").
		Attribute(constants.XMLNS_ATTR, constants.NS_STANZAS).
		EndTag("not-authorized").
		EndTag("error").
		EndTag("iq").
		String()
}
