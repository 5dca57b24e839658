package server

import (
	"context"
	"time"

	"github.com/bluemods/go-stabber/node"
	"github.com/sirupsen/logrus"
)

// How long verification calls wait for a matching stanza.
func (s *Server) SetVerifyTimeout(timeout time.Duration) {
	s.verifyTimeout.Store(int64(timeout))
}

func (s *Server) VerifyTimeout() time.Duration {
	return time.Duration(s.verifyTimeout.Load())
}

// Sets the password the client is expected to authenticate with.
func (s *Server) PrimeCredential(password string) {
	s.primer.PrimeCredential(password)
}

// Queue payload as the reply to the next stanza with the given id.
func (s *Server) PrimeForId(id string, payload string) {
	s.primer.PrimeForId(id, payload)
}

// Queue payload as the reply to the next iq get/set whose
// query child has the given namespace.
func (s *Server) PrimeForQuery(namespace string, payload string) {
	s.primer.PrimeForQuery(namespace, payload)
}

// True if the last stanza received from the client contains stanza.
// Waits up to the verify timeout for it to arrive.
func (s *Server) VerifyLast(stanza string) bool {
	return s.verifyText(stanza, true, false)
}

// True if any stanza received from the client contains stanza.
// Waits up to the verify timeout for it to arrive.
func (s *Server) VerifyAny(stanza string) bool {
	return s.verifyText(stanza, false, false)
}

// Same as VerifyLast, but the stanzas must be structurally equal.
func (s *Server) VerifyLastExact(stanza string) bool {
	return s.verifyText(stanza, true, true)
}

// Same as VerifyAny, but the stanzas must be structurally equal.
func (s *Server) VerifyAnyExact(stanza string) bool {
	return s.verifyText(stanza, false, true)
}

func (s *Server) verifyText(stanza string, last bool, exact bool) bool {
	target, err := node.ParseStanza(stanza)
	if err != nil {
		logrus.Warn("Cannot verify, not a stanza: ", err)
		return false
	}
	if last {
		return s.VerifyLastStanza(context.Background(), target, exact)
	}
	return s.VerifyAnyStanza(context.Background(), target, exact)
}

func (s *Server) VerifyLastStanza(ctx context.Context, target *node.Stanza, exact bool) bool {
	return s.recorder.VerifyLast(ctx, target, exact, s.VerifyTimeout())
}

func (s *Server) VerifyAnyStanza(ctx context.Context, target *node.Stanza, exact bool) bool {
	return s.recorder.VerifyAny(ctx, target, exact, s.VerifyTimeout())
}

// Number of stanzas received from the client so far.
func (s *Server) ReceivedCount() int {
	return s.recorder.Len()
}

// Writes stanza to the connected client.
// Returns ErrNotConnected when there is none.
func (s *Server) Send(stanza string) error {
	c := s.connections.Active()
	if c == nil {
		return ErrNotConnected
	}
	return c.Send(stanza)
}

// Forgets every primed reply and received stanza,
// and restores the default credential.
func (s *Server) Reset() {
	s.warnUnsent()
	s.primer.Reset()
	s.recorder.Reset()
}

func (s *Server) warnUnsent() {
	for _, u := range s.primer.Unsent() {
		kind := "id"
		if u.ByQuery {
			kind = "query"
		}
		logrus.WithFields(logrus.Fields{kind: u.Key}).Warn("Primed response never sent: ", u.Payload)
	}
}
