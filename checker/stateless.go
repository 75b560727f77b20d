package checker

import (
	"math/big"

	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/yuvtx"
)

// issueAmount reads an IssueAnnouncement's little-endian u128 amount into a
// big.Int.
func issueAmount(b [16]byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

// checkStateless implements spec.md §4.6's three pure-function rules. It
// never touches storage or the chain.
func checkStateless(t yuvtx.Transaction) error {
	switch tx := t.(type) {
	case *yuvtx.AnnouncementTx:
		return checkStatelessAnnouncement(tx)
	case *yuvtx.IssueTx:
		return checkStatelessIssue(tx)
	case *yuvtx.TransferTx:
		return checkStatelessTransfer(tx)
	default:
		return nil
	}
}

// checkStatelessAnnouncement implements rule 1: the announcement was
// already parsed successfully by the sub-indexer (or by decode on receipt
// over p2p) to reach this point, so there is nothing further to verify
// beyond that parse having succeeded.
func checkStatelessAnnouncement(tx *yuvtx.AnnouncementTx) error {
	if tx.Announcement == nil {
		return ErrEmptyProofMap
	}
	return nil
}

// checkStatelessIssue implements rule 2.
func checkStatelessIssue(tx *yuvtx.IssueTx) error {
	if len(tx.OutputProofs) == 0 {
		return ErrEmptyProofMap
	}

	total := new(big.Int)
	for vout, proof := range tx.OutputProofs {
		if int(vout) >= len(tx.Tx.TxOut) {
			return ErrInvalidVout
		}

		px := proof.Pixel()
		if !px.Chroma.Equal(tx.Announcement.Chroma) {
			return ErrChromaMismatch
		}

		if err := pixel.CheckByOutput(proof, tx.Tx.TxOut[vout]); err != nil {
			return err
		}

		if !pixel.IsBulletproof(proof) {
			total.Add(total, px.Luma.AmountBigInt())
		}
	}

	if bp, mixed := yuvtx.IsBulletproof(tx); mixed {
		return ErrMixedProofVariants
	} else if !bp {
		if total.Cmp(issueAmount(tx.Announcement.Amount)) != 0 {
			return ErrAnnouncedAmountDoesNotMatch
		}
	}

	return nil
}

// checkStatelessTransfer implements rule 3's structural checks: map
// non-emptiness, index validity, per-chroma conservation of presence, and
// per-input/output script checks. Witness verification against the spent
// output (which needs the parent's pkScript/value) is deferred to the
// stateful pass, since fetching the parent is unavoidable there anyway.
func checkStatelessTransfer(tx *yuvtx.TransferTx) error {
	if len(tx.InputProofs) == 0 || len(tx.OutputProofs) == 0 {
		return ErrEmptyProofMap
	}

	if _, mixed := yuvtx.IsBulletproof(tx); mixed {
		return ErrMixedProofVariants
	}

	outputChromas := make(map[pixel.Chroma]struct{}, len(tx.OutputProofs))
	for vout, proof := range tx.OutputProofs {
		if int(vout) >= len(tx.Tx.TxOut) {
			return ErrInvalidVout
		}
		if err := pixel.CheckByOutput(proof, tx.Tx.TxOut[vout]); err != nil {
			return err
		}
		outputChromas[proof.Pixel().Chroma] = struct{}{}
	}

	for vin, proof := range tx.InputProofs {
		if int(vin) >= len(tx.Tx.TxIn) {
			return ErrInvalidVin
		}
		if _, ok := outputChromas[proof.Pixel().Chroma]; !ok {
			return ErrChromaNotConserved
		}
	}

	return nil
}
