package checker

import "github.com/btcsuite/btclog"

// log is the CHKR subsystem logger (spec.md §1.1's subsystem tag table).
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-level logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
