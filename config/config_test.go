package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stabber.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 5222, c.Port)
	assert.Equal(t, 5230, c.HttpPort)
	assert.Equal(t, 10*time.Second, c.VerifyTimeout())
	assert.False(t, c.StrictAuth)
	assert.NoError(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
port: 6222
strict_auth: true
transcript_dir: /tmp/xmpp
control_rate_limit: 2.5
`)
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6222, c.Port)
	assert.True(t, c.StrictAuth)
	assert.Equal(t, "/tmp/xmpp", c.TranscriptDir)
	assert.Equal(t, 2.5, c.ControlRateLimit)
	assert.Equal(t, 5230, c.HttpPort, "unset fields keep their defaults")
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(writeFile(t, "port: [1, 2]"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "port: 70000"))
	assert.ErrorContains(t, err, "invalid port")
}

func TestApplyFlags(t *testing.T) {
	c, err := LoadFile(writeFile(t, "port: 6222\nhttp_port: 6230\n"))
	require.NoError(t, err)

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	require.NoError(t, flagSet.Parse([]string{"--http-port", "7230", "--auto-ping", "--verify-timeout=3"}))
	require.NoError(t, c.ApplyFlags(flagSet))

	assert.Equal(t, 6222, c.Port, "flags not given do not override the file")
	assert.Equal(t, 7230, c.HttpPort)
	assert.True(t, c.AutoPing)
	assert.Equal(t, 3*time.Second, c.VerifyTimeout())
}

func TestApplyFlagsValidates(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	require.NoError(t, flagSet.Parse([]string{"--port=-1"}))
	assert.Error(t, Default().ApplyFlags(flagSet))
}
