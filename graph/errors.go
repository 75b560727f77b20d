package graph

import "errors"

// ErrStaleWaitEntry is surfaced (as an InvalidTxs reason string, not
// returned to a caller) when a waiting entry is discarded for having
// exceeded the configured wait threshold without its parent ever attaching
// (spec.md §4.7, "bounded waiting").
var ErrStaleWaitEntry = errors.New("graph: parent never attached within the wait threshold")
