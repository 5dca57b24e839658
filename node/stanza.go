package node

import (
	"errors"
	"iter"

	"github.com/bluemods/go-stabber/constants"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrNoName = errors.New("stanza has no name")
)

// A single name/value pair, used when constructing a Stanza.
type Attr struct {
	Name  string
	Value string
}

// One XML element exchanged over the stream.
//
// A Stanza owns its Children. Parent is a back-reference
// set by AddChild and is nil for the top-level element.
type Stanza struct {
	Name string

	// Attributes in parse (or insertion) order. Names are unique.
	Attributes *orderedmap.OrderedMap[string, string]

	// Text content. Empty means no content.
	// When both Content and Children are set, Content wins on serialization.
	Content string

	Children []*Stanza
	Parent   *Stanza
}

// Creates a stanza with the given name and attributes.
// Later attributes overwrite earlier ones with the same name.
func NewStanza(name string, attrs ...Attr) (*Stanza, error) {
	if name == "" {
		return nil, ErrNoName
	}
	s := &Stanza{
		Name:       name,
		Attributes: orderedmap.New[string, string](),
	}
	for _, a := range attrs {
		s.Attributes.Set(a.Name, a.Value)
	}
	return s, nil
}

// Same as NewStanza, but panics on failure.
func MustStanza(name string, attrs ...Attr) *Stanza {
	s, err := NewStanza(name, attrs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Appends child and takes ownership of it.
func (s *Stanza) AddChild(child *Stanza) {
	child.Parent = s
	s.Children = append(s.Children, child)
}

// Returns true if the Stanza contains the attribute key.
func (s *Stanza) HasAttribute(key string) bool {
	_, found := s.Attr(key)
	return found
}

// Returns true if there is a child with the same name as the parameter.
func (s *Stanza) HasTag(name string) bool {
	return s.ChildByName(name) != nil
}

// Finds an attribute value by its name.
func (s *Stanza) Attr(key string) (string, bool) {
	if s.Attributes == nil {
		return "", false
	}
	return s.Attributes.Get(key)
}

// Finds an attribute value by its name.
// Returns an empty string if not found.
func (s *Stanza) Get(key string) string {
	v, _ := s.Attr(key)
	return v
}

// Sets an attribute. An existing attribute keeps its position.
func (s *Stanza) SetAttr(key string, value string) {
	if s.Attributes == nil {
		s.Attributes = orderedmap.New[string, string]()
	}
	s.Attributes.Set(key, value)
}

// Number of attributes on this stanza.
func (s *Stanza) AttrCount() int {
	if s.Attributes == nil {
		return 0
	}
	return s.Attributes.Len()
}

// Iterates the attributes in order.
func (s *Stanza) AllAttrs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if s.Attributes == nil {
			return
		}
		for pair := s.Attributes.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

func (s *Stanza) Id() (string, bool) {
	return s.Attr(constants.ID_ATTR)
}

// Overwrites the id attribute, or appends one if missing.
func (s *Stanza) SetId(id string) {
	s.SetAttr(constants.ID_ATTR, id)
}

// Finds the first matching child by its name.
// Returns nil if not found.
func (s *Stanza) ChildByName(name string) *Stanza {
	for _, child := range s.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Finds the first child whose xmlns attribute equals ns.
// Returns nil if not found.
func (s *Stanza) ChildByNamespace(ns string) *Stanza {
	for _, child := range s.Children {
		if v, ok := child.Attr(constants.XMLNS_ATTR); ok && v == ns {
			return child
		}
	}
	return nil
}

// Finds all matching children by name.
// For the iter.Seq2, the first item is the position of the child element,
// the second item is the element.
func (s *Stanza) FindAll(name string) iter.Seq2[int, *Stanza] {
	return func(yield func(int, *Stanza) bool) {
		for i, child := range s.Children {
			if child.Name == name {
				if !yield(i, child) {
					return
				}
			}
		}
	}
}

// Classifies a request for namespace-keyed priming.
// For an iq whose type is not "result", returns the xmlns of its query child.
func (s *Stanza) QueryNamespace() (string, bool) {
	if s.Name != "iq" {
		return "", false
	}
	if s.Get(constants.TYPE_ATTR) == constants.RESULT_TYPE {
		return "", false
	}
	query := s.ChildByName("query")
	if query == nil {
		return "", false
	}
	return query.Attr(constants.XMLNS_ATTR)
}

// Deep copy of the tree rooted at s. The copy has no parent.
func (s *Stanza) Copy() *Stanza {
	ret := &Stanza{
		Name:       s.Name,
		Attributes: orderedmap.New[string, string](),
		Content:    s.Content,
	}
	for k, v := range s.AllAttrs() {
		ret.Attributes.Set(k, v)
	}
	for _, child := range s.Children {
		ret.AddChild(child.Copy())
	}
	return ret
}

// Converts the stanza to its wire representation.
func (s *Stanza) String() string {
	w := NewNodeWriter()
	w.WriteStanza(s)
	return w.String()
}
