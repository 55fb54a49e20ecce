// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Logging owns log backend with stdout and rotated file outputs, and subsystem loggers created over it.
type Logging struct {
	mu         sync.Mutex
	backend    *btclog.Backend
	rotator    *rotator.Rotator
	subsystems map[string]btclog.Logger
}

// Config defines log output parameters.
type Config struct {
	LogFile        string // empty value disables file output.
	MaxLogFiles    int
	MaxLogFileSize int // in MB.
	Stdout         io.Writer
}

// logWriter writes to stdout and to the log rotator if any.
type logWriter struct {
	stdout  io.Writer
	rotator *rotator.Rotator
}

// Write implements io.Writer.
func (w *logWriter) Write(p []byte) (int, error) {
	if w.stdout != nil {
		_, _ = w.stdout.Write(p)
	}
	if w.rotator != nil {
		_, _ = w.rotator.Write(p)
	}

	return len(p), nil
}

// New is a constructor for Logging.
func New(config Config) (*Logging, error) {
	writer := &logWriter{stdout: config.Stdout}
	if writer.stdout == nil {
		writer.stdout = os.Stdout
	}

	l := &Logging{subsystems: make(map[string]btclog.Logger)}
	if config.LogFile != "" {
		err := os.MkdirAll(filepath.Dir(config.LogFile), 0700)
		if err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		l.rotator, err = rotator.New(config.LogFile, int64(config.MaxLogFileSize*1024), false, config.MaxLogFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %w", err)
		}

		writer.rotator = l.rotator
	}

	l.backend = btclog.NewBackend(writer)

	return l, nil
}

// Logger returns logger for subsystem, creating it on first use.
func (l *Logging) Logger(subsystem string) btclog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	logger, ok := l.subsystems[subsystem]
	if !ok {
		logger = l.backend.Logger(subsystem)
		logger.SetLevel(btclog.LevelInfo)
		l.subsystems[subsystem] = logger
	}

	return logger
}

// SetLevel applies level to every created subsystem logger.
func (l *Logging) SetLevel(level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("invalid log level: %s", level)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, logger := range l.subsystems {
		logger.SetLevel(lvl)
	}

	return nil
}

// Subsystems returns sorted names of created subsystem loggers.
func (l *Logging) Subsystems() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.subsystems))
	for name := range l.subsystems {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Close closes log file rotator if any.
func (l *Logging) Close() error {
	if l.rotator == nil {
		return nil
	}

	return l.rotator.Close()
}
