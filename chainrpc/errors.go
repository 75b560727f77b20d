package chainrpc

import "errors"

// ErrTxNotFound is returned by Confirmations and RawTransaction when the
// node has no record of the requested transaction (spec.md §4.6 rule 4,
// "TxNotFound").
var ErrTxNotFound = errors.New("chainrpc: transaction not found")

// ErrRateLimited is returned (or wrapped) by a Source implementation when
// the node has throttled the caller. The block loader treats it specially,
// sleeping its configured back-off instead of retrying immediately
// (spec.md §4.3 rule 4).
var ErrRateLimited = errors.New("chainrpc: rate limited")
