package server

import (
	"errors"
	"sync"

	"github.com/bluemods/go-stabber/connection"
)

var (
	ErrNotConnected     = errors.New("no client connected")
	ErrAlreadyConnected = errors.New("a client is already connected")
)

// Holds the single active client connection.
type ConnectionHolder struct {
	active *connection.XmppConnection
	mutex  *sync.Mutex
}

func NewConnectionHolder() *ConnectionHolder {
	return &ConnectionHolder{mutex: &sync.Mutex{}}
}

// Returns the connected client, or nil.
func (c *ConnectionHolder) Active() *connection.XmppConnection {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.active
}

// Disconnects the active client, if any.
func (c *ConnectionHolder) DisconnectAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
}

func (c *ConnectionHolder) onConnected(conn *connection.XmppConnection) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.active != nil {
		return ErrAlreadyConnected
	}
	c.active = conn
	return nil
}

func (c *ConnectionHolder) onDisconnected(conn *connection.XmppConnection) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.active == conn {
		c.active = nil
	}
}
