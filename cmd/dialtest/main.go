package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bluemods/go-stabber/connection"
	"github.com/bluemods/go-stabber/constants"
	"github.com/bluemods/go-stabber/node"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Dials a running stub, performs the fixed handshake,
// optionally sends one stanza and prints what comes back.
func main() {
	addr := pflag.StringP("addr", "a", fmt.Sprintf("127.0.0.1:%d", constants.PLAIN_SERVER_PORT), "stub address")
	stanza := pflag.StringP("send", "s", "", "stanza to send after authenticating")
	timeout := pflag.DurationP("timeout", "t", 5*time.Second, "read timeout")
	password := pflag.StringP("password", "p", constants.DEFAULT_PASSWORD, "password to authenticate with")
	pflag.Parse()

	auth := connection.AuthRequest(constants.DEFAULT_USERNAME, *password, constants.DEFAULT_RESOURCE)
	if err := dialTest(*addr, auth, *stanza, *timeout); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func dialTest(addr string, auth string, stanza string, timeout time.Duration) error {
	conn, err := net.DialTimeout(constants.SERVER_TYPE, addr, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err = exchange(conn, constants.STREAM_REQ, constants.STREAM_RESP+constants.FEATURES, timeout); err != nil {
		return fmt.Errorf("stream open: %w", err)
	}
	if err = exchange(conn, auth, constants.AUTH_RESP, timeout); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	fmt.Println("Handshake OK")

	if stanza != "" {
		if _, err = conn.Write([]byte(stanza)); err != nil {
			return err
		}
		input := node.NewStanzaInputStream(conn)
		for {
			conn.SetReadDeadline(time.Now().Add(timeout))
			reply, err := input.ReadNextStanza()
			if err != nil {
				if os.IsTimeout(err) {
					break
				}
				return err
			}
			fmt.Println(reply)
		}
	}

	conn.Write([]byte(constants.END_STREAM))
	return nil
}

// Writes request and checks that exactly expected comes back.
func exchange(conn net.Conn, request string, expected string, timeout time.Duration) error {
	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(request)); err != nil {
		return err
	}
	buf := make([]byte, len(expected))
	if _, err := io.ReadFull(conn, buf); err != nil {
		return err
	}
	if string(buf) != expected {
		return fmt.Errorf("unexpected response %q", buf)
	}
	return nil
}
