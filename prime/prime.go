package prime

import (
	"sync"

	"github.com/bluemods/go-stabber/constants"
	"github.com/bluemods/go-stabber/node"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Holds canned responses waiting to be sent to the client.
//
// Responses are queued per key and consumed first-in first-out.
// A response primed for a stanza id wins over one primed for
// the namespace of an iq query.
type Store struct {
	ids        *orderedmap.OrderedMap[string, []string]
	queries    *orderedmap.OrderedMap[string, []string]
	credential string
	mutex      *sync.Mutex
}

func NewStore() *Store {
	return &Store{
		ids:        orderedmap.New[string, []string](),
		queries:    orderedmap.New[string, []string](),
		credential: constants.DEFAULT_PASSWORD,
		mutex:      &sync.Mutex{},
	}
}

// Queue payload to be sent when a stanza with the given id arrives.
func (p *Store) PrimeForId(id string, payload string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	enqueue(p.ids, id, payload)
}

// Queue payload to be sent when an iq get/set arrives
// whose query child has the given namespace.
func (p *Store) PrimeForQuery(namespace string, payload string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	enqueue(p.queries, namespace, payload)
}

// Sets the password the client is expected to authenticate with.
func (p *Store) PrimeCredential(password string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.credential = password
}

func (p *Store) Credential() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.credential
}

// Removes and returns the response primed for s, if any.
func (p *Store) TakeResponse(s *node.Stanza) (string, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if id, ok := s.Id(); ok {
		if payload, ok := dequeue(p.ids, id); ok {
			return payload, true
		}
	}
	if ns, ok := s.QueryNamespace(); ok {
		if payload, ok := dequeue(p.queries, ns); ok {
			return payload, true
		}
	}
	return "", false
}

// A response that was primed but never sent.
type Unsent struct {
	// Stanza id, or iq query namespace when ByQuery is set
	Key     string
	ByQuery bool
	Payload string
}

// Responses not yet consumed. Id primes come first, then query primes,
// each keyed in the order the key was first primed.
func (p *Store) Unsent() []Unsent {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	var out []Unsent
	out = appendUnsent(out, p.ids, false)
	out = appendUnsent(out, p.queries, true)
	return out
}

// Number of responses not yet consumed.
func (p *Store) Pending() int {
	return len(p.Unsent())
}

// Drops every queued response and restores the default credential.
func (p *Store) Reset() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.ids = orderedmap.New[string, []string]()
	p.queries = orderedmap.New[string, []string]()
	p.credential = constants.DEFAULT_PASSWORD
}

func enqueue(m *orderedmap.OrderedMap[string, []string], key string, payload string) {
	queue, _ := m.Get(key)
	m.Set(key, append(queue, payload))
}

func dequeue(m *orderedmap.OrderedMap[string, []string], key string) (string, bool) {
	queue, ok := m.Get(key)
	if !ok || len(queue) == 0 {
		return "", false
	}
	if len(queue) == 1 {
		m.Delete(key)
	} else {
		m.Set(key, queue[1:])
	}
	return queue[0], true
}

func appendUnsent(out []Unsent, m *orderedmap.OrderedMap[string, []string], byQuery bool) []Unsent {
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		for _, payload := range pair.Value {
			out = append(out, Unsent{Key: pair.Key, ByQuery: byQuery, Payload: payload})
		}
	}
	return out
}
