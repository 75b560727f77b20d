package yuvtx

import "errors"

var (
	// ErrMalformed covers wire-decode failures such as truncated buffers
	// or invalid lengths. An unrecognized type tag is reported as
	// ErrUnknownTxType and an unknown proof variant as
	// pixel.ErrUnknownProofVariant instead.
	ErrMalformed = errors.New("yuvtx: malformed wire data")

	// ErrUnknownTxType is returned when the one-byte type tag following
	// the Bitcoin transaction does not match Issue/Transfer/Announcement
	// (spec.md §6).
	ErrUnknownTxType = errors.New("yuvtx: unknown transaction type tag")

	// ErrInvalidVin / ErrInvalidVout name a wire-adjacent invariant: every
	// key in a proof map must be a valid vin/vout index into the carried
	// Bitcoin transaction. Neither this package nor the checker returns
	// them; the checker reports the case with its own checker.ErrInvalidVin
	// and checker.ErrInvalidVout.
	ErrInvalidVin  = errors.New("yuvtx: proof map references a vin index out of range")
	ErrInvalidVout = errors.New("yuvtx: proof map references a vout index out of range")
)
