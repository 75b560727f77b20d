package pixel

import "errors"

// Error taxonomy for the pixel package. These are the "Validation errors"
// leaves of spec.md §7's taxonomy. Callers return them unwrapped; the
// go-errors/errors stack-trace wrapping in the controller is applied only to
// the storage errors it passes to Controller.fatal.
var (
	// ErrMalformed covers structurally invalid input: wrong-length byte
	// slices, unparseable public keys, out-of-range values.
	ErrMalformed = errors.New("pixel: malformed input")

	// ErrScriptMismatch is returned by check_by_output when the derived
	// script does not equal the txout's script_pubkey (spec §4.1).
	ErrScriptMismatch = errors.New("pixel: script mismatch")

	// ErrLumaMismatch is returned by check_by_output for bulletproof
	// proofs when luma does not equal H(commitment || range_proof).
	ErrLumaMismatch = errors.New("pixel: luma mismatch")

	// ErrInvalidRangeProof is returned when a bulletproof's range proof
	// fails to verify.
	ErrInvalidRangeProof = errors.New("pixel: invalid range proof")

	// ErrPublicKeyMismatch is returned by check_by_input when a witness
	// stack's public key does not match the proof's expected key.
	ErrPublicKeyMismatch = errors.New("pixel: public key mismatch")

	// ErrRedeemScriptMismatch is returned by check_by_input when a
	// witness stack's redeem script is not byte-for-byte the redeem script
	// derived from the proof.
	ErrRedeemScriptMismatch = errors.New("pixel: redeem script mismatch")

	// ErrSignatureMismatch is returned by check_by_input when a witness
	// signature fails to verify.
	ErrSignatureMismatch = errors.New("pixel: signature mismatch")

	// ErrNotSpendableByGenericWallet is returned by check_by_input for
	// HTLC proof variants, which require off-chain context (preimage or
	// timeout) no generic checker can supply (spec §4.1).
	ErrNotSpendableByGenericWallet = errors.New(
		"pixel: htlc input is not spendable by a generic wallet check")

	// ErrUnknownProofVariant is returned when a wire-decoded proof
	// discriminant does not match any known variant.
	ErrUnknownProofVariant = errors.New("pixel: unknown proof variant")

	// ErrMixedBulletproof names a single transaction mixing bulletproof and
	// non-bulletproof proofs (spec invariant 9). Nothing returns it: the
	// checker reports that case as checker.ErrMixedProofVariants.
	ErrMixedBulletproof = errors.New("pixel: bulletproof and non-bulletproof proofs cannot mix")
)
