package build

import (
	"fmt"
	"os"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// LogTypeStdOut identifies a logger that writes to stdout only.
const LogTypeStdOut = "stdout"

// LogTypeFile identifies a logger that writes to a rotating file only.
const LogTypeFile = "file"

// RotatingLogWriter wraps a rotating file logger and fans out formatted log
// records to every registered subsystem logger. It is the single process-
// wide owner of the log file handle; subsystem loggers never open files
// directly.
type RotatingLogWriter struct {
	mu      sync.Mutex
	backend *btclog.Backend
	subLogs map[string]btclog.Logger
	rotator *rotator.Rotator
}

// NewRotatingLogWriter creates a log writer whose backend writes to stdout
// only, before and after InitLogRotator is called.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{
		subLogs: make(map[string]btclog.Logger),
		backend: btclog.NewBackend(os.Stdout),
	}
}

// InitLogRotator creates a size-based rotator for logFile, with roll files
// in the same directory, and keeps it on r. Calling it is optional. The
// backend is not connected to the rotator, so log records are not written
// to logFile.
func (r *RotatingLogWriter) InitLogRotator(logFile string, maxRolls int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rot, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	r.rotator = rot
	return nil
}

// GenSubLogger creates a new subsystem logger writing through this writer's
// backend and registers it so SetLevel/SetLevels can reach it later.
func (r *RotatingLogWriter) GenSubLogger(subsystem string) btclog.Logger {
	logger := r.backend.Logger(subsystem)
	r.RegisterSubLogger(subsystem, logger)
	return logger
}

// RegisterSubLogger records a subsystem logger under its tag so that
// SetLevel/SetLevels can later change its verbosity.
func (r *RotatingLogWriter) RegisterSubLogger(subsystem string, logger btclog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subLogs[subsystem] = logger
}

// SetLevel changes the logging level of the subsystem with the given tag.
func (r *RotatingLogWriter) SetLevel(subsystem string, level btclog.Level) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger, ok := r.subLogs[subsystem]
	if !ok {
		return false
	}
	logger.SetLevel(level)
	return true
}

// SetLevels applies level to every registered subsystem logger.
func (r *RotatingLogWriter) SetLevels(level btclog.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, logger := range r.subLogs {
		logger.SetLevel(level)
	}
}

// SubsystemTags returns the tag of every subsystem logger registered so far,
// primarily for diagnostics and CLI level-setting completion (the CLI
// itself is out of scope for this module).
func (r *RotatingLogWriter) SubsystemTags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := make([]string, 0, len(r.subLogs))
	for tag := range r.subLogs {
		tags = append(tags, tag)
	}
	return tags
}

// NewSubLogger builds a placeholder logger for subsystem before the root
// writer exists (used for package-level logger variables at init time), or
// delegates to genLogger once the root writer is ready: the same two-phase
// bring-up every package-level logger in this repo follows.
func NewSubLogger(subsystem string, genLogger func(string) btclog.Logger) btclog.Logger {
	if genLogger == nil {
		return btclog.Disabled
	}
	return genLogger(subsystem)
}
