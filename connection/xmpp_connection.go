package connection

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluemods/go-stabber/constants"
	"github.com/bluemods/go-stabber/node"
	"github.com/bluemods/go-stabber/plugins"
	"github.com/bluemods/go-stabber/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type State int32

const (
	AwaitingStreamOpen State = iota
	StreamOpened
	AwaitingAuth
	Authenticated
	FreeExchange
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingStreamOpen:
		return "AwaitingStreamOpen"
	case StreamOpened:
		return "StreamOpened"
	case AwaitingAuth:
		return "AwaitingAuth"
	case Authenticated:
		return "Authenticated"
	case FreeExchange:
		return "FreeExchange"
	case Closed:
		return "Closed"
	}
	return "Unknown"
}

// Source of the replies written back to the client.
type Primer interface {
	// Removes and returns the reply primed for s.
	TakeResponse(s *node.Stanza) (string, bool)

	// The password the client must authenticate with.
	Credential() string
}

// Receives every stanza the client sends once authenticated.
type Recorder interface {
	Record(s *node.Stanza)
}

// One client session, from stream open until the stream closes.
type XmppConnection struct {
	Id   string
	Ip   string
	Conn net.Conn

	Primer   Primer
	Recorder Recorder

	// Consulted for stanzas that have no primed reply. May be nil.
	Interceptor plugins.StanzaInterceptor

	// Reject auth requests with the wrong password.
	// Otherwise a mismatch is only logged.
	StrictAuth bool

	// Transcript of this connection. May be nil.
	Logger *XmppLogger

	state      atomic.Int32
	writeMutex *sync.Mutex
	input      *node.StanzaInputStream
	log        *logrus.Entry
}

func NewXmppConnection(conn net.Conn, primer Primer, recorder Recorder) *XmppConnection {
	id := uuid.NewString()
	ip := utils.ConnToIp(conn)
	return &XmppConnection{
		Id:         id,
		Ip:         ip,
		Conn:       conn,
		Primer:     primer,
		Recorder:   recorder,
		writeMutex: &sync.Mutex{},
		log:        logrus.WithFields(logrus.Fields{"conn": id, "ip": ip}),
	}
}

func (c *XmppConnection) State() State {
	return State(c.state.Load())
}

func (c *XmppConnection) setState(s State) {
	c.state.Store(int32(s))
	c.log.Debug("State: ", s)
}

// This routine blocks until the connection is finished.
// Returns nil when the client closed the stream or disconnected.
func (c *XmppConnection) Run() (err error) {
	defer c.onFinished()

	c.Conn.SetDeadline(time.Time{})
	reader := bufio.NewReader(c.Conn)

	c.setState(AwaitingStreamOpen)
	if err = awaitStreamOpen(reader, constants.STREAM_REQ); err != nil {
		if errors.Is(err, ErrStreamOpenMismatch) {
			c.log.Warn("Rejecting: ", err)
			return err
		}
		return c.handleReadError(err)
	}
	c.logIncoming(constants.STREAM_REQ)
	c.setState(StreamOpened)

	if err = c.write(constants.STREAM_RESP); err != nil {
		return err
	}
	if err = c.write(constants.FEATURES); err != nil {
		return err
	}

	// Continue on the same buffered reader so nothing
	// the client pipelined after the stream open is lost.
	c.input = node.NewStanzaInputStream(reader)

	c.setState(AwaitingAuth)
	if err = c.authenticate(); err != nil {
		return err
	}
	c.setState(Authenticated)

	c.setState(FreeExchange)
	return c.exchange()
}

func (c *XmppConnection) authenticate() error {
	for {
		s, err := c.readStanza()
		if err != nil {
			return c.handleReadError(err)
		}
		password, ok := authPassword(s)
		if !ok {
			c.log.Warn("Ignoring stanza received before auth: ", s.Name)
			continue
		}
		if expected := c.Primer.Credential(); password != expected {
			if c.StrictAuth {
				c.log.Warn("Auth rejected, wrong password")
				c.write(authError(s))
				return ErrAuthRejected
			}
			c.log.Warnf("Auth password %q does not match primed credential %q, accepting anyway", password, expected)
		}
		if err = c.write(authResult(s)); err != nil {
			return err
		}
		c.log.Info("Client authenticated")
		return nil
	}
}

// Processes stanzas until the stream is closed.
func (c *XmppConnection) exchange() error {
	for {
		s, err := c.readStanza()
		if err != nil {
			return c.handleReadError(err)
		}
		c.Recorder.Record(s)

		if reply, ok := c.Primer.TakeResponse(s); ok {
			if err = c.write(reply); err != nil {
				return err
			}
			continue
		}
		if c.Interceptor == nil {
			continue
		}
		if reply, ok := c.Interceptor.Intercept(s); ok {
			if err = c.write(reply); err != nil {
				return err
			}
		}
	}
}

func (c *XmppConnection) readStanza() (*node.Stanza, error) {
	s, err := c.input.ReadNextStanza()
	if err != nil {
		return nil, err
	}
	c.logIncoming(s.String())
	return s, nil
}

// Writes raw to the client. Safe for concurrent use.
func (c *XmppConnection) Send(raw string) error {
	if c.State() == Closed {
		return net.ErrClosed
	}
	return c.write(raw)
}

// Closes the underlying connection, ending Run.
func (c *XmppConnection) Close() error {
	return c.Conn.Close()
}

func (c *XmppConnection) write(raw string) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	c.Conn.SetWriteDeadline(time.Now().Add(constants.WRITE_TIMEOUT_SECONDS * time.Second))
	if _, err := c.Conn.Write([]byte(raw)); err != nil {
		c.handleWriteError(err, raw)
		return err
	}
	c.log.Debug("SENT: ", raw)
	if c.Logger != nil {
		c.Logger.OnNewStanza(raw, true)
	}
	return nil
}

func (c *XmppConnection) logIncoming(raw string) {
	c.log.Debug("RECV: ", raw)
	if c.Logger != nil {
		c.Logger.OnNewStanza(raw, false)
	}
}

// Translates read errors into the result of Run.
// A closed stream or a disconnect is not an error.
func (c *XmppConnection) handleReadError(err error) error {
	switch {
	case errors.Is(err, node.ErrStreamClosed):
		c.logIncoming(constants.END_STREAM)
		c.log.Info("Client closed the stream")
		c.write(constants.END_STREAM)
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.log.Info("Client disconnected")
		return nil
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		c.log.Info("Connection closed by server")
		return nil
	case errors.Is(err, node.ErrMalformed):
		c.log.WithError(err).Errorf("Malformed stanza, closing connection:\n%s", c.input.Reader.GetBuffer())
		return err
	}
	c.log.WithError(err).Error("Read failed")
	return err
}

func (c *XmppConnection) handleWriteError(err error, raw string) {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		c.log.Errorf("Write deadline exceeded. packetSize=%d", len(raw))
	} else {
		c.log.WithError(err).Debug("Write failed")
	}
}

func (c *XmppConnection) onFinished() {
	if r := recover(); r != nil {
		var buf []byte
		if c.input != nil {
			buf = c.input.Reader.GetBuffer()
		}
		c.log.Errorf("XmppConnection panic (state=%s, buf=%s)\n%v\n%s", c.State(), buf, r, debug.Stack())
	}
	c.setState(Closed)
	c.Conn.Close()
	if c.Logger != nil {
		if err := c.Logger.Close(); err != nil {
			c.log.WithError(err).Warn("Failed to close transcript")
		}
	}
}
