package pixeld

import (
	"github.com/btcsuite/btclog"
	"github.com/pixelnode/pixeld/internal/build"
)

// replaceableLogger is a thin wrapper so a package-level logger variable can
// be swapped out once the root rotating logger is ready, without pointer
// indirection games at every call site.
type replaceableLogger struct {
	btclog.Logger
	subsystem string
}

var (
	// pkgLoggers tracks every package-level logger declared below so
	// SetupLoggers can replace them once in a batch.
	pkgLoggers []*replaceableLogger

	addPkgLogger = func(subsystem string) *replaceableLogger {
		l := &replaceableLogger{
			Logger:    btclog.Disabled,
			subsystem: subsystem,
		}
		pkgLoggers = append(pkgLoggers, l)
		return l
	}

	log = addPkgLogger("PIXD")
)

// SubLogger is implemented by every sub-package that exposes a UseLogger
// hook, following this repo's per-package logging convention.
type SubLogger interface {
	UseLogger(btclog.Logger)
}

// SetupLoggers wires every package-level logger, including this package's
// own, to root once the caller has a concrete RotatingLogWriter (typically
// right after config has been parsed by the caller — config parsing itself
// is out of scope for this module).
func SetupLoggers(root *build.RotatingLogWriter, useLoggers map[string]func(btclog.Logger)) {
	for _, l := range pkgLoggers {
		l.Logger = root.GenSubLogger(l.subsystem)
	}

	for subsystem, use := range useLoggers {
		AddSubLogger(root, subsystem, use)
	}
}

// AddSubLogger creates and registers the logger for one subsystem and feeds
// it to every UseLogger hook supplied for that subsystem.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string, useLoggers ...func(btclog.Logger)) {
	logger := root.GenSubLogger(subsystem)
	for _, use := range useLoggers {
		use(logger)
	}
}

// logClosure defers formatting of expensive log arguments until the log
// level actually warrants it.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
