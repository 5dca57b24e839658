package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bluemods/go-stabber/node"
	"github.com/bluemods/go-stabber/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApi struct {
	mutex     sync.Mutex
	connected bool
	sent      []string
	ids       map[string]string
	queries   map[string]string
	received  []*node.Stanza
}

func newFakeApi() *fakeApi {
	return &fakeApi{ids: map[string]string{}, queries: map[string]string{}}
}

func (f *fakeApi) PrimeForId(id string, payload string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.ids[id] = payload
}

func (f *fakeApi) PrimeForQuery(namespace string, payload string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.queries[namespace] = payload
}

func (f *fakeApi) VerifyAnyStanza(ctx context.Context, target *node.Stanza, exact bool) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for _, s := range f.received {
		if s.Matches(target, exact) {
			return true
		}
	}
	return false
}

func (f *fakeApi) Send(raw string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if !f.connected {
		return errors.New("not connected")
	}
	f.sent = append(f.sent, raw)
	return nil
}

func do(t *testing.T, h http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSend(t *testing.T) {
	api := newFakeApi()
	h := NewHandler(api)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "POST", "/send", "<presence/>").Code)

	api.connected = true
	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/send", "<presence/>").Code)
	assert.Equal(t, []string{"<presence/>"}, api.sent)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/send", "").Code)
}

func TestFor(t *testing.T) {
	api := newFakeApi()
	h := NewHandler(api)

	assert.Equal(t, http.StatusCreated, do(t, h, "POST", "/for?id=roster_1", `<iq id="roster_1" type="result"/>`).Code)
	assert.Equal(t, `<iq id="roster_1" type="result"/>`, api.ids["roster_1"])

	assert.Equal(t, http.StatusCreated, do(t, h, "POST", "/for?query=jabber:iq:roster", "<roster/>").Code)
	assert.Equal(t, "<roster/>", api.queries["jabber:iq:roster"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/for?id=a&query=b", "<x/>").Code, "both keys")
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/for", "<x/>").Code, "no key")
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/for?id=a", "").Code, "no payload")
}

func TestVerify(t *testing.T) {
	api := newFakeApi()
	api.received = append(api.received, node.MustParse(`<iq id="1" type="get"><ping xmlns="urn:xmpp:ping"/></iq>`))
	h := NewHandler(api)

	rec := do(t, h, "POST", "/verify", `<iq type="get"/>`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Body.String(), "verify uses subset matching")

	rec = do(t, h, "POST", "/verify", `<message/>`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", rec.Body.String())

	for _, body := range []string{"not xml", "", `<iq type="get">`} {
		rec = do(t, h, "POST", "/verify", body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "false", rec.Body.String(), body)
	}
}

func TestUnknownRequests(t *testing.T) {
	h := NewHandler(newFakeApi())
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/verify", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/other", "<x/>").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "DELETE", "/for?id=1", "").Code)
}

func TestRateLimit(t *testing.T) {
	h := NewHandler(newFakeApi()).WithRateLimiter(ratelimit.NewIpRateLimiter(0.001, 2))
	assert.Equal(t, http.StatusCreated, do(t, h, "POST", "/for?id=1", "<a/>").Code)
	assert.Equal(t, http.StatusCreated, do(t, h, "POST", "/for?id=2", "<a/>").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, "POST", "/for?id=3", "<a/>").Code)
}

func TestApiKey(t *testing.T) {
	h := NewHandler(newFakeApi()).WithApiKey("s3cret")

	assert.Equal(t, http.StatusUnauthorized, do(t, h, "POST", "/for?id=1", "<a/>").Code)

	req := httptest.NewRequest("POST", "/for?id=1", strings.NewReader("<a/>"))
	req.Header.Set(API_KEY_HEADER, "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestApiKeyValidate(t *testing.T) {
	k := NewApiKey("abc")
	assert.True(t, k.Validate("abc"))
	assert.False(t, k.Validate("abd"))
	assert.False(t, k.Validate(""))
}

func TestOverHttp(t *testing.T) {
	api := newFakeApi()
	srv := httptest.NewServer(NewHandler(api))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/for?id=x", "text/xml", strings.NewReader("<a/>"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/verify", "text/xml", strings.NewReader("<a/>"))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "false", string(body))
}
