package config

import (
	"fmt"
	"os"
	"time"

	"github.com/bluemods/go-stabber/constants"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Stub server settings.
//
// Values come from Default, then an optional YAML file,
// then command line flags that were explicitly set.
type Config struct {
	// XMPP listen port
	Port int `yaml:"port"`

	// HTTP control listen port. 0 disables the control surface.
	HttpPort int `yaml:"http_port"`

	// debug, info, warn or error
	LogLevel string `yaml:"log_level"`

	// Also write logs to $XDG_DATA_HOME/stabber/logs/stabber.log
	LogFile bool `yaml:"log_file"`

	VerifyTimeoutSeconds int `yaml:"verify_timeout_seconds"`

	// Reject auth requests that do not carry the primed password
	StrictAuth bool `yaml:"strict_auth"`

	// Answer unprimed XEP-0199 pings
	AutoPing bool `yaml:"auto_ping"`

	// Directory for per-connection transcripts. Empty disables them.
	TranscriptDir  string `yaml:"transcript_dir"`
	TranscriptGzip bool   `yaml:"transcript_gzip"`

	// Requests per second allowed per remote IP on the control surface.
	// 0 disables rate limiting.
	ControlRateLimit float64 `yaml:"control_rate_limit"`
	ControlRateBurst int     `yaml:"control_rate_burst"`

	// Required value of the x-api-key header on control requests.
	// Empty disables the check.
	ApiKey string `yaml:"api_key"`

	// pprof listen port. 0 disables profiling.
	PprofPort int `yaml:"pprof_port"`
}

func Default() *Config {
	return &Config{
		Port:                 constants.PLAIN_SERVER_PORT,
		HttpPort:             constants.HTTP_SERVER_PORT,
		LogLevel:             "info",
		VerifyTimeoutSeconds: constants.DEFAULT_VERIFY_TIMEOUT_SECONDS,
		ControlRateBurst:     10,
	}
}

// Loads path on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.VerifyTimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	for name, port := range map[string]int{"port": c.Port, "http_port": c.HttpPort, "pprof_port": c.PprofPort} {
		if port < 0 || port > 0xFFFF {
			return fmt.Errorf("invalid %s %d", name, port)
		}
	}
	if c.VerifyTimeoutSeconds < 0 {
		return fmt.Errorf("invalid verify_timeout_seconds %d", c.VerifyTimeoutSeconds)
	}
	if c.ControlRateLimit < 0 {
		return fmt.Errorf("invalid control_rate_limit %v", c.ControlRateLimit)
	}
	return nil
}

// Registers one flag per field, with the defaults as flag defaults.
func AddFlags(flagSet *pflag.FlagSet) {
	d := Default()
	flagSet.IntP("port", "p", d.Port, "XMPP listen port")
	flagSet.Int("http-port", d.HttpPort, "HTTP control listen port (0 to disable)")
	flagSet.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	flagSet.Bool("log-file", d.LogFile, "also log to $XDG_DATA_HOME/stabber/logs/stabber.log")
	flagSet.Int("verify-timeout", d.VerifyTimeoutSeconds, "seconds verification calls wait for a matching stanza")
	flagSet.Bool("strict-auth", d.StrictAuth, "reject auth requests with the wrong password")
	flagSet.Bool("auto-ping", d.AutoPing, "answer unprimed XEP-0199 pings")
	flagSet.String("transcript-dir", d.TranscriptDir, "write a transcript of each connection to this directory")
	flagSet.Bool("transcript-gzip", d.TranscriptGzip, "gzip transcripts")
	flagSet.Float64("control-rate-limit", d.ControlRateLimit, "control requests per second per IP (0 to disable)")
	flagSet.Int("control-rate-burst", d.ControlRateBurst, "control request burst size per IP")
	flagSet.String("api-key", d.ApiKey, "require this x-api-key header on control requests")
	flagSet.Int("pprof-port", d.PprofPort, "pprof listen port (0 to disable)")
}

// Copies every flag the user explicitly set into c.
func (c *Config) ApplyFlags(flagSet *pflag.FlagSet) error {
	var err error
	flagSet.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "port":
			c.Port, err = flagSet.GetInt(f.Name)
		case "http-port":
			c.HttpPort, err = flagSet.GetInt(f.Name)
		case "log-level":
			c.LogLevel, err = flagSet.GetString(f.Name)
		case "log-file":
			c.LogFile, err = flagSet.GetBool(f.Name)
		case "verify-timeout":
			c.VerifyTimeoutSeconds, err = flagSet.GetInt(f.Name)
		case "strict-auth":
			c.StrictAuth, err = flagSet.GetBool(f.Name)
		case "auto-ping":
			c.AutoPing, err = flagSet.GetBool(f.Name)
		case "transcript-dir":
			c.TranscriptDir, err = flagSet.GetString(f.Name)
		case "transcript-gzip":
			c.TranscriptGzip, err = flagSet.GetBool(f.Name)
		case "control-rate-limit":
			c.ControlRateLimit, err = flagSet.GetFloat64(f.Name)
		case "control-rate-burst":
			c.ControlRateBurst, err = flagSet.GetInt(f.Name)
		case "api-key":
			c.ApiKey, err = flagSet.GetString(f.Name)
		case "pprof-port":
			c.PprofPort, err = flagSet.GetInt(f.Name)
		}
	})
	if err != nil {
		return err
	}
	return c.Validate()
}
