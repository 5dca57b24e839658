package utils

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnToIp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "127.0.0.1", ConnToIp(conn))
}

func TestAddrToIp(t *testing.T) {
	assert.Equal(t, "10.0.0.1", AddrToIp("10.0.0.1:5230"))
	assert.Equal(t, "::1", AddrToIp("[::1]:5230"))
	assert.Equal(t, "pipe", AddrToIp("pipe"))
}

func TestLogFilePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	path, err := LogFilePath()
	require.NoError(t, err)
	assert.Equal(t, "/data/stabber/logs/stabber.log", path)
}

func TestSetupLoggingToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	defer logrus.SetOutput(os.Stderr)

	closer, err := SetupLogging("debug", true)
	require.NoError(t, err)
	logrus.Info("hello file")
	require.NoError(t, closer.Close())

	path := filepath.Join(dir, "stabber", "logs", "stabber.log")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetupLoggingBadLevel(t *testing.T) {
	_, err := SetupLogging("loud", false)
	assert.Error(t, err)
}
