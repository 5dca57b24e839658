package server

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bluemods/go-stabber/constants"
	"github.com/bluemods/go-stabber/plugins"
	"github.com/bluemods/go-stabber/prime"
	"github.com/bluemods/go-stabber/ratelimit"
	"github.com/bluemods/go-stabber/verify"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	listener      func() (net.Listener, error)
	httpListener  func() (net.Listener, error)
	port          int
	verifyTimeout time.Duration
	strictAuth    bool
	interceptors  plugins.Chain
	transcriptDir string
	transcriptGz  bool
	rateLimiter   *ratelimit.IpRateLimiter
	apiKey        string
}

// New builder for a stub server that will accept
// plain text XMPP connections on the given port.
// Port 0 picks a free port, see Server.XmppAddr.
func New(port int) *ServerConfig {
	if port < 0 || port > 0xFFFF {
		logrus.Panicf("invalid port %d", port)
	}
	return &ServerConfig{
		listener:      listenFunc(port),
		port:          port,
		verifyTimeout: constants.DEFAULT_VERIFY_TIMEOUT_SECONDS * time.Second,
	}
}

func listenFunc(port int) func() (net.Listener, error) {
	return func() (net.Listener, error) {
		return net.Listen(constants.SERVER_TYPE, ":"+strconv.Itoa(port))
	}
}

// Serve the HTTP control surface on the given port.
// Port 0 picks a free port, see Server.HttpAddr.
func (s *ServerConfig) WithHttpPort(port int) *ServerConfig {
	if port < 0 || port > 0xFFFF {
		logrus.Panicf("invalid http port %d", port)
	}
	s.httpListener = listenFunc(port)
	return s
}

// How long verification calls wait for a matching stanza.
func (s *ServerConfig) WithVerifyTimeout(timeout time.Duration) *ServerConfig {
	s.verifyTimeout = timeout
	return s
}

// Clients authenticating with a password other than the primed
// credential are answered with not-authorized and disconnected.
func (s *ServerConfig) WithStrictAuth() *ServerConfig {
	s.strictAuth = true
	return s
}

// Adds an interceptor consulted for stanzas that have no primed reply.
// Interceptors run in the order they were added.
func (s *ServerConfig) WithInterceptor(i plugins.StanzaInterceptor) *ServerConfig {
	s.interceptors = append(s.interceptors, i)
	return s
}

// Answer unprimed XEP-0199 pings.
func (s *ServerConfig) WithAutoPing() *ServerConfig {
	return s.WithInterceptor(plugins.PingResponder{})
}

// Server logs all XMPP sent and received to dir, one file per connection.
func (s *ServerConfig) WithTranscripts(dir string, gzip bool) *ServerConfig {
	s.transcriptDir = dir
	s.transcriptGz = gzip
	return s
}

// Throttle control requests per remote IP.
func (s *ServerConfig) WithControlRateLimit(perSecond float64, burst int) *ServerConfig {
	s.rateLimiter = ratelimit.NewIpRateLimiter(perSecond, burst)
	return s
}

// Control requests must carry the 'x-api-key' header matching apiKey.
func (s *ServerConfig) WithApiKey(apiKey string) *ServerConfig {
	s.apiKey = apiKey
	return s
}

// Starts the server.
// Returns an error if a port cannot be bound.
// Call Server.Await() to block, which is required for CLI.
func (s *ServerConfig) Start() (*Server, error) {
	server := &Server{
		config:      s,
		primer:      prime.NewStore(),
		recorder:    verify.NewStore(),
		connections: NewConnectionHolder(),
		doneWaiter:  &sync.WaitGroup{},
		stopOnce:    &sync.Once{},
	}
	server.verifyTimeout.Store(int64(s.verifyTimeout))
	if err := server.start(); err != nil {
		return nil, err
	}
	return server, nil
}
