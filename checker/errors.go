package checker

import "errors"

var (
	// ErrEmptyProofMap is returned when an Issue or Transfer transaction
	// carries no proofs at all (spec.md §4.6 rules 2, 3), and when an
	// Announcement transaction carries no parsed announcement.
	ErrEmptyProofMap = errors.New("checker: transaction carries no proofs")

	// ErrChromaMismatch is returned when an Issue output proof's chroma
	// doesn't match the announcement's chroma (spec.md §4.6 rule 2).
	ErrChromaMismatch = errors.New("checker: proof chroma does not match announcement chroma")

	// ErrAnnouncedAmountDoesNotMatch is returned when the sum of an
	// Issue transaction's output luma amounts doesn't equal the
	// announced amount (spec.md §4.6 rule 2).
	ErrAnnouncedAmountDoesNotMatch = errors.New("checker: announced amount does not match output total")

	// ErrInvalidVin/ErrInvalidVout are returned when a proof map key
	// doesn't index an existing input/output (spec.md §4.6 rule 3).
	ErrInvalidVin  = errors.New("checker: proof map key is not a valid vin index")
	ErrInvalidVout = errors.New("checker: proof map key is not a valid vout index")

	// ErrChromaNotConserved is returned when a Transfer's input chroma
	// doesn't appear among its outputs (spec.md §4.6 rule 3).
	ErrChromaNotConserved = errors.New("checker: input chroma does not appear in outputs")

	// ErrMixedProofVariants is returned when a transaction mixes
	// bulletproof and non-bulletproof proofs (spec.md §4.6 rule 3,
	// spec invariant 9).
	ErrMixedProofVariants = errors.New("checker: bulletproof and non-bulletproof proofs mixed in one transaction")

	// ErrParentNotFound is returned when a Transfer input proof
	// references a parent the node's own Bitcoin RPC has no knowledge
	// of (spec.md §4.6 rule 4).
	ErrParentNotFound = errors.New("checker: parent transaction not found")

	// ErrFrozen is returned when an input outpoint is frozen and the
	// freezing authority is unchanged (spec.md §4.6 rule 5).
	ErrFrozen = errors.New("checker: input outpoint is frozen")

	// ErrConservationMismatch is returned when a Transfer's per-chroma
	// input/output luma totals disagree (spec.md §4.6 rule 6).
	ErrConservationMismatch = errors.New("checker: input and output luma totals disagree for chroma")

	// ErrMaxSupplyExceeded is returned when an Issue would push a
	// chroma's total supply past its declared max supply (spec.md §4.6
	// rule 6).
	ErrMaxSupplyExceeded = errors.New("checker: issue would exceed declared max supply")

	// ErrIssuerNotAuthorized is returned when an Issue transaction's
	// authority input doesn't spend the chroma's current owner script
	// (spec.md §4.6 rule 7).
	ErrIssuerNotAuthorized = errors.New("checker: issue not authorized by current chroma owner")
)
