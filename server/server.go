package server

import (
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bluemods/go-stabber/connection"
	"github.com/bluemods/go-stabber/httpapi"
	"github.com/bluemods/go-stabber/prime"
	"github.com/bluemods/go-stabber/verify"
	"github.com/sirupsen/logrus"
)

type Server struct {
	config      *ServerConfig
	primer      *prime.Store
	recorder    *verify.Store
	connections *ConnectionHolder

	listener     net.Listener
	httpListener net.Listener
	httpServer   *http.Server

	verifyTimeout atomic.Int64
	stopped       atomic.Bool
	stopOnce      *sync.Once
	doneWaiter    *sync.WaitGroup
}

// Awaits completion of the main loop, blocking the current goroutine.
func (s *Server) Await() {
	s.doneWaiter.Wait()
}

// Address the XMPP listener is bound to.
func (s *Server) XmppAddr() net.Addr {
	return s.listener.Addr()
}

// Address the HTTP control surface is bound to, or nil when disabled.
func (s *Server) HttpAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// Stops accepting connections, disconnects the client and fails
// every pending verification. Blocks until all goroutines finish.
// Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.listener.Close()
		if s.httpServer != nil {
			s.httpServer.Close()
		}
		s.connections.DisconnectAll()
		s.recorder.Shutdown()
		s.warnUnsent()
		logrus.Info("stabber stopped")
	})
	s.doneWaiter.Wait()
}

func (s *Server) start() error {
	listener, err := s.config.listener()
	if err != nil {
		logrus.Error("failed to open socket: ", err)
		return err
	}
	s.listener = listener

	if s.config.httpListener != nil {
		httpListener, err := s.config.httpListener()
		if err != nil {
			logrus.Error("failed to open HTTP socket: ", err)
			listener.Close()
			return err
		}
		s.httpListener = httpListener
		s.httpServer = &http.Server{
			Handler:           s.httpHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	logrus.Infof("stabber listening \033[0;31munencrypted\033[0m on %s", listener.Addr())

	s.doneWaiter.Add(1)
	go func() {
		defer s.doneWaiter.Done()
		s.acceptLoop()
	}()

	if s.httpServer != nil {
		logrus.Infof("stabber control API listening on %s", s.httpListener.Addr())
		s.doneWaiter.Add(1)
		go func() {
			defer s.doneWaiter.Done()
			if err := s.httpServer.Serve(s.httpListener); !errors.Is(err, http.ErrServerClosed) {
				logrus.Error("HTTP server failed: ", err)
			}
		}()
	}
	return nil
}

func (s *Server) httpHandler() http.Handler {
	h := httpapi.NewHandler(s)
	if s.config.rateLimiter != nil {
		h.WithRateLimiter(s.config.rateLimiter)
	}
	if s.config.apiKey != "" {
		h.WithApiKey(s.config.apiKey)
	}
	return h
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logrus.Error("Error accepting: ", err)
			continue
		}
		s.doneWaiter.Add(1)
		go func() {
			defer s.doneWaiter.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	c := connection.NewXmppConnection(conn, s.primer, s.recorder)
	log := logrus.WithFields(logrus.Fields{"conn": c.Id, "ip": c.Ip})
	c.Logger = s.createXmppLogger(c)

	// Fully configured before Send can see it
	c.StrictAuth = s.config.strictAuth
	if len(s.config.interceptors) > 0 {
		c.Interceptor = s.config.interceptors
	}

	if err := s.connections.onConnected(c); err != nil {
		log.Warn("Rejecting second client: ", err)
		s.discardXmppLogger(c.Logger)
		return
	}
	defer s.connections.onDisconnected(c)

	if s.stopped.Load() {
		// Stop ran between Accept and onConnected
		s.discardXmppLogger(c.Logger)
		return
	}

	log.Info("Accepting client")
	if err := c.Run(); err != nil {
		log.Warn("Connection ended: ", err)
	} else {
		log.Info("Connection ended")
	}
}

func (s *Server) createXmppLogger(c *connection.XmppConnection) *connection.XmppLogger {
	if s.config.transcriptDir == "" {
		return nil
	}
	logger, err := connection.NewXmppLogger(s.config.transcriptDir, c.Id, s.config.transcriptGz)
	if err != nil {
		logrus.WithField("conn", c.Id).Error("failed to create XMPP logger: ", err)
		return nil
	}
	return logger
}

// Removes the transcript of a connection that never ran.
func (s *Server) discardXmppLogger(logger *connection.XmppLogger) {
	if logger == nil {
		return
	}
	logger.Close()
	if err := os.Remove(logger.Path); err != nil {
		logrus.Warn("failed to remove unused transcript: ", err)
	}
}
