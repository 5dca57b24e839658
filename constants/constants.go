package constants

const (
	// Default XMPP port
	PLAIN_SERVER_PORT = 5222
	// Default HTTP control port
	HTTP_SERVER_PORT = 5230
	// Listen on all interfaces
	SERVER_TYPE = "tcp"

	// Abort if a write call takes longer than this
	WRITE_TIMEOUT_SECONDS = 15

	// How long verification calls wait for a matching stanza
	// unless the driver configures otherwise.
	DEFAULT_VERIFY_TIMEOUT_SECONDS = 10
)

// Fixed protocol text. Clients under test expect these byte for byte.
const (
	STREAM_REQ  = `<?xml version="1.0"?><stream:stream to="localhost" xml:lang="en" version="1.0" xmlns="jabber:client" xmlns:stream="http://etherx.jabber.org/streams">`
	STREAM_RESP = `<?xml version="1.0"?><stream:stream from="localhost" id="stream1" xml:lang="en" version="1.0" xmlns="jabber:client" xmlns:stream="http://etherx.jabber.org/streams">`
	FEATURES    = `<stream:features></stream:features>`
	AUTH_REQ    = `<iq id="_xmpp_auth1" type="set"><query xmlns="jabber:iq:auth"><username>stabber</username><password>password</password><resource>profanity</resource></query></iq>`
	AUTH_RESP   = `<iq id="_xmpp_auth1" type="result"/>`
	END_STREAM  = `</stream:stream>`
)

const (
	STUB_DOMAIN    = "localhost"
	STUB_STREAM_ID = "stream1"
	AUTH_ID        = "_xmpp_auth1"

	DEFAULT_USERNAME = "stabber"
	DEFAULT_PASSWORD = "password"
	DEFAULT_RESOURCE = "profanity"
)

// Namespaces
const (
	NS_CLIENT   = "jabber:client"
	NS_STREAMS  = "http://etherx.jabber.org/streams"
	NS_IQ_AUTH  = "jabber:iq:auth"
	NS_PING     = "urn:xmpp:ping"
	NS_STANZAS  = "urn:ietf:params:xml:ns:xmpp-stanzas"
	NS_XML      = "http://www.w3.org/XML/1998/namespace"
	NS_XMLNS    = "xmlns"
	XMLNS_ATTR  = "xmlns"
	ID_ATTR     = "id"
	TYPE_ATTR   = "type"
	RESULT_TYPE = "result"
)
