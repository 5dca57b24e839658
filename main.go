package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluemods/go-stabber/config"
	"github.com/bluemods/go-stabber/profiling"
	"github.com/bluemods/go-stabber/server"
	"github.com/bluemods/go-stabber/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const (
	// Second signal or this long after the first one forces exit
	STOP_TIMEOUT = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, "stabber:", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("stabber", pflag.ContinueOnError)
	configFile := flagSet.StringP("config", "c", "", "YAML config file")
	config.AddFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyFlags(flagSet); err != nil {
		return err
	}

	logFile, err := utils.SetupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if cfg.PprofPort != 0 {
		profiling.OpenProfileServer(cfg.PprofPort)
	}

	srv, err := newServerConfig(cfg).Start()
	if err != nil {
		return err
	}
	awaitSignals(srv)
	return nil
}

func newServerConfig(cfg *config.Config) *server.ServerConfig {
	s := server.New(cfg.Port).WithVerifyTimeout(cfg.VerifyTimeout())
	if cfg.HttpPort != 0 {
		s.WithHttpPort(cfg.HttpPort)
	}
	if cfg.StrictAuth {
		s.WithStrictAuth()
	}
	if cfg.AutoPing {
		s.WithAutoPing()
	}
	if cfg.TranscriptDir != "" {
		s.WithTranscripts(cfg.TranscriptDir, cfg.TranscriptGzip)
	}
	if cfg.ControlRateLimit > 0 {
		s.WithControlRateLimit(cfg.ControlRateLimit, cfg.ControlRateBurst)
	}
	if cfg.ApiKey != "" {
		s.WithApiKey(cfg.ApiKey)
	}
	return s
}

// Blocks until the server stops after SIGINT or SIGTERM.
func awaitSignals(srv *server.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	doneCh := make(chan struct{})
	go func() {
		srv.Await()
		close(doneCh)
	}()

	var forceStop bool
	stopTimeout := time.NewTimer(STOP_TIMEOUT)
	stopTimeout.Stop()

mainloop:
	for {
		select {
		case sig := <-signalCh:
			if forceStop {
				logrus.Infof("Got signal %v. Forcing exit.", sig)
				break mainloop
			}
			logrus.Info("Got signal ", sig)
			go srv.Stop()
			forceStop = true
			stopTimeout.Reset(STOP_TIMEOUT)
		case <-stopTimeout.C:
			logrus.Info("Shutdown timeout. Forcing exit.")
			break mainloop
		case <-doneCh:
			break mainloop
		}
	}
	logrus.Info("Exit.")
}
