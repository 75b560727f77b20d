package confirmation

import "errors"

// ErrReorgExceedsWindow is returned by Tracker.NewBlock when a reorg's
// common ancestor lies further back than the tracker's confirmation-depth
// window — the fork the node is following exceeds what the tracker can
// reconcile, and indexing must stop (spec.md §4.5, "fail fatally").
var ErrReorgExceedsWindow = errors.New("confirmation: reorg exceeds tracker window")
