package controller

import "github.com/btcsuite/btclog"

// log is the CTRL subsystem logger, replaced by UseLogger once the root
// rotating log writer is ready; disabled by default so the package is
// silent until a caller opts in.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-level logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
