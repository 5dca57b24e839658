package utils

import (
	"net"
	"reflect"

	"github.com/sirupsen/logrus"
)

// Extracts the IP address from a net.Conn,
// returns "<nil>" if unavailable.
func ConnToIp(conn net.Conn) string {
	switch addr := conn.RemoteAddr().(type) {
	case *net.TCPAddr:
		return addr.IP.String()
	case *net.UDPAddr:
		return addr.IP.String()
	case nil:
		return "<nil>"
	default:
		logrus.Debugf("ConnToIp: unknown RemoteAddr type '%s'", reflect.TypeOf(addr))
		return "<nil>"
	}
}

// Extracts the IP address from a host:port string such as
// http.Request.RemoteAddr. Returns addr unchanged when it has no port.
func AddrToIp(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
