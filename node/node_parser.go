package node

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bluemods/go-stabber/constants"
	xpp "github.com/mmcdole/goxpp"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrMalformed = errors.New("malformed stanza")
)

// Builds one Stanza tree from parser events.
// The builder forgets everything once a top-level element completes.
type stanzaBuilder struct {
	depth   int
	current *Stanza
	result  *Stanza

	// Namespace URI to prefix, one scope per open element
	prefixes []map[string]string
}

func (b *stanzaBuilder) reset() {
	b.depth = 0
	b.current = nil
	b.result = nil
	b.prefixes = nil
}

func (b *stanzaBuilder) startTag(parser *xpp.XMLPullParser) {
	b.pushPrefixes(parser.Attrs)
	s := &Stanza{
		Name:       b.qualify(parser.Space, parser.Name),
		Attributes: orderedmap.New[string, string](),
	}
	for _, attr := range parser.Attrs {
		s.Attributes.Set(b.attributeName(attr.Name), attr.Value)
	}
	if b.depth > 0 {
		b.current.AddChild(s)
	} else {
		b.result = s
	}
	b.current = s
	b.depth++
}

func (b *stanzaBuilder) text(text string) {
	if b.current != nil {
		b.current.Content += text
	}
}

// Returns the finished top-level stanza once depth drops back to 0.
func (b *stanzaBuilder) endTag() (*Stanza, bool, error) {
	if b.depth == 0 || b.current == nil {
		return nil, false, errors.New("end tag without start tag")
	}
	b.depth--
	b.prefixes = b.prefixes[:len(b.prefixes)-1]
	done := b.current

	// Indentation between child elements is not content
	if len(done.Children) > 0 && strings.TrimSpace(done.Content) == "" {
		done.Content = ""
	}
	if b.depth > 0 {
		b.current = done.Parent
		return nil, false, nil
	}
	result := b.result
	b.reset()
	return result, true, nil
}

// Parse a single stanza from a string, such as an HTTP request body.
// Each call is independent. Anything after the first complete
// top-level element is ignored.
func ParseStanza(xmpp string) (*Stanza, error) {
	parser := newStringPullParser(xmpp)
	b := new(stanzaBuilder)
	for {
		event, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		switch event {
		case xpp.StartTag:
			b.startTag(parser)
		case xpp.Text:
			b.text(parser.Text)
		case xpp.EndTag:
			s, done, err := b.endTag()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			if done {
				return s, nil
			}
		case xpp.EndDocument:
			if b.depth > 0 {
				return nil, fmt.Errorf("%w: unexpected end of document before end of stanza", ErrMalformed)
			}
			return nil, fmt.Errorf("%w: no element found", ErrMalformed)
		}
	}
}

// Same as ParseStanza, but panics on failure.
func MustParse(xmpp string) *Stanza {
	s, err := ParseStanza(xmpp)
	if err != nil {
		panic(err)
	}
	return s
}

func newStringPullParser(xmpp string) *xpp.XMLPullParser {
	return newPullParser(strings.NewReader(strings.TrimSpace(xmpp)))
}

func newPullParser(r io.Reader) *xpp.XMLPullParser {
	cr := func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return xpp.NewXMLPullParser(r, true, cr)
}

// Records the prefixes declared on an element exactly as written.
func (b *stanzaBuilder) pushPrefixes(attrs []xml.Attr) {
	var scope map[string]string
	for _, attr := range attrs {
		prefix, ok := "", false
		switch {
		case attr.Name.Space == constants.NS_XMLNS:
			prefix, ok = attr.Name.Local, true
		case attr.Name.Space == "" && attr.Name.Local == constants.XMLNS_ATTR:
			ok = true
		}
		if !ok {
			continue
		}
		if scope == nil {
			scope = map[string]string{}
		}
		scope[attr.Value] = prefix
	}
	b.prefixes = append(b.prefixes, scope)
}

func (b *stanzaBuilder) attributeName(name xml.Name) string {
	switch name.Space {
	case "":
		return name.Local
	case constants.NS_XMLNS:
		return constants.NS_XMLNS + ":" + name.Local
	case constants.NS_XML:
		return "xml:" + name.Local
	}
	return b.qualify(name.Space, name.Local)
}

// The decoder resolves prefixes to namespace URIs.
// Stanzas keep the names as they appeared on the wire.
func (b *stanzaBuilder) qualify(space string, local string) string {
	if space == "" {
		return local
	}
	for i := len(b.prefixes) - 1; i >= 0; i-- {
		if prefix, ok := b.prefixes[i][space]; ok {
			if prefix == "" {
				return local
			}
			return prefix + ":" + local
		}
	}
	// Undeclared prefix, left untranslated by the decoder
	return space + ":" + local
}
