package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/bluemods/go-stabber/node"
	"github.com/bluemods/go-stabber/ratelimit"
	"github.com/bluemods/go-stabber/utils"
	"github.com/sirupsen/logrus"
)

// Largest request body accepted
const MAX_BODY_SIZE = 1 << 20

// The operations exposed over HTTP.
type StubApi interface {
	PrimeForId(id string, payload string)
	PrimeForQuery(namespace string, payload string)
	VerifyAnyStanza(ctx context.Context, target *node.Stanza, exact bool) bool

	// Fails when no client is connected.
	Send(raw string) error
}

// Serves the control surface:
//
//	POST /send           write the body to the connected client
//	POST /for?id=X       prime the body as the reply to stanza id X
//	POST /for?query=NS   prime the body as the reply to an iq query in NS
//	POST /verify         "true" if any received stanza contains the body,
//	                     "false" otherwise, including when the body is not a stanza
//
// Every other request is answered with 400.
type Handler struct {
	api     StubApi
	limiter *ratelimit.IpRateLimiter
	apiKey  ApiKey
}

func NewHandler(api StubApi) *Handler {
	return &Handler{api: api}
}

// Throttle requests per remote IP. Throttled requests get 429.
func (h *Handler) WithRateLimiter(limiter *ratelimit.IpRateLimiter) *Handler {
	h.limiter = limiter
	return h
}

// Require the x-api-key header to match key. Other requests get 401.
func (h *Handler) WithApiKey(key string) *Handler {
	h.apiKey = NewApiKey(key)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logrus.WithFields(logrus.Fields{"ip": utils.AddrToIp(r.RemoteAddr), "path": r.URL.Path})

	if h.limiter != nil && !h.limiter.Allow(utils.AddrToIp(r.RemoteAddr)) {
		log.Warn("Control request rate limited")
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	if h.apiKey != nil && !h.apiKey.Validate(r.Header.Get(API_KEY_HEADER)) {
		log.Warn("API key mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MAX_BODY_SIZE))
	if err != nil {
		log.WithError(err).Warn("Failed to read request body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.URL.Path {
	case "/send":
		h.send(w, log, string(body))
	case "/for":
		h.prime(w, r, log, string(body))
	case "/verify":
		h.verify(w, r, log, string(body))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (h *Handler) send(w http.ResponseWriter, log *logrus.Entry, body string) {
	if body == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.api.Send(body); err != nil {
		log.WithError(err).Warn("Send failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) prime(w http.ResponseWriter, r *http.Request, log *logrus.Entry, body string) {
	query := r.URL.Query()
	id, hasId := query["id"]
	ns, hasQuery := query["query"]
	if hasId == hasQuery || body == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if hasId {
		log.Debug("Priming for id ", id[0])
		h.api.PrimeForId(id[0], body)
	} else {
		log.Debug("Priming for query ", ns[0])
		h.api.PrimeForQuery(ns[0], body)
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, log *logrus.Entry, body string) {
	defer utils.TimeMethod("verify")()

	result := "false"
	target, err := node.ParseStanza(body)
	if err != nil {
		// Nothing received can match text that is not a stanza
		log.WithError(err).Warn("Verify body is not a stanza")
	} else if h.api.VerifyAnyStanza(r.Context(), target, false) {
		result = "true"
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, result)
}
