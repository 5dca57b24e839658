package connection

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

const (
	gzipLevel = 4 // 1-9
)

var (
	errWriteFailed = errors.New("logger shut down due to write failure")

	incomingTag = []byte{'<', '=', '=', ' '}
	outgoingTag = []byte{'=', '=', '>', ' '}
)

// Writes a transcript of one client connection.
// Outgoing data is prefixed with "==> ", incoming with "<== ".
type XmppLogger struct {
	Path string

	writer      io.Writer
	closers     []io.Closer
	writeFailed bool
	mutex       *sync.Mutex
}

// Creates <dir>/<connId>.xmpp, or <connId>.xmpp.gz when useGzip is set.
func NewXmppLogger(dir string, connId string, useGzip bool) (*XmppLogger, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	name := filepath.Base(connId) + ".xmpp"
	if useGzip {
		name += ".gz"
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	x := &XmppLogger{Path: path, writer: f, closers: []io.Closer{f}, mutex: &sync.Mutex{}}

	if useGzip {
		g, err := gzip.NewWriterLevel(f, gzipLevel)
		if err != nil {
			f.Close()
			return nil, err
		}
		x.writer = g
		// gzip must flush its footer before the file closes
		x.closers = []io.Closer{g, f}
	}
	return x, nil
}

func (x *XmppLogger) OnNewStanza(data string, isOutgoing bool) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.writeFailed {
		return errWriteFailed
	}
	var err error
	if isOutgoing {
		err = x.doWrite(outgoingTag)
	} else {
		err = x.doWrite(incomingTag)
	}
	if err == nil {
		err = x.doWrite([]byte(data))
		if err == nil {
			err = x.doWrite([]byte{'\n'})
		}
	}

	if err != nil {
		// Writes typically fail due to disk space constraints.
		// After writes fail, do not attempt again.
		x.writeFailed = true
		logrus.WithField("path", x.Path).
			Error("XmppLogger: write failed, no more logs will be written. Caused by: ", err)
	}
	return err
}

func (x *XmppLogger) Close() error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	var errs []error
	for _, c := range x.closers {
		errs = append(errs, c.Close())
	}
	x.closers = nil
	return errors.Join(errs...)
}

// It's annoying to do '_, err' everywhere
func (x *XmppLogger) doWrite(data []byte) error {
	_, err := x.writer.Write(data)
	return err
}
