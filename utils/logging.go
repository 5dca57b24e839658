package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	LOG_DIR_NAME  = "stabber"
	LOG_FILE_NAME = "stabber.log"
)

// Configures the global logger.
//
// level is one of the logrus level names (debug, info, warn, error).
// When logToFile is set, output is also appended to LogFilePath().
// The returned closer releases the log file and is never nil.
func SetupLogging(level string, logToFile bool) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nopCloser{}, err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	logrus.SetOutput(os.Stderr)

	if !logToFile {
		return nopCloser{}, nil
	}
	path, err := LogFilePath()
	if err != nil {
		return nopCloser{}, err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nopCloser{}, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nopCloser{}, err
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

// $XDG_DATA_HOME/stabber/logs/stabber.log,
// falling back to ~/.local/share when XDG_DATA_HOME is unset.
func LogFilePath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot locate log directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, LOG_DIR_NAME, "logs", LOG_FILE_NAME), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
