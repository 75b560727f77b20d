package checker

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
)

// checkStateful implements spec.md §4.6's rules 4-7, which need the chain
// RPC and the store's read side. It never persists anything; conservation
// of supply is projected, not written — persistence happens in the
// controller once a transaction is attached.
func (c *Checker) checkStateful(t yuvtx.Transaction) error {
	switch tx := t.(type) {
	case *yuvtx.AnnouncementTx:
		return c.checkStatefulAnnouncement(tx)
	case *yuvtx.IssueTx:
		return c.checkStatefulIssue(tx)
	case *yuvtx.TransferTx:
		return c.checkStatefulTransfer(tx)
	default:
		return nil
	}
}

// checkStatefulAnnouncement implements rule 7 for Freeze announcements:
// the transaction must be signed by the chroma's current owner. The other
// announcement kinds carry no authority rule of their own today.
func (c *Checker) checkStatefulAnnouncement(tx *yuvtx.AnnouncementTx) error {
	fz, ok := tx.Announcement.(*announcement.Freeze)
	if !ok {
		return nil
	}

	expected, err := c.ownerScriptFor(fz.Chroma)
	if err != nil {
		return err
	}

	got, err := c.firstInputScript(tx.Tx)
	if err != nil {
		return err
	}

	if !bytes.Equal(expected, got) {
		return ErrIssuerNotAuthorized
	}
	return nil
}

// checkStatefulIssue implements rules 6 and 7 for an Issue transaction.
func (c *Checker) checkStatefulIssue(tx *yuvtx.IssueTx) error {
	expected, err := c.ownerScriptFor(tx.Announcement.Chroma)
	if err != nil {
		return err
	}
	got, err := c.firstInputScript(tx.Tx)
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, got) {
		return ErrIssuerNotAuthorized
	}

	if bp, _ := yuvtx.IsBulletproof(tx); bp {
		return nil
	}

	ci, err := c.cfg.Store.GetChromaInfo(tx.Announcement.Chroma)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	current := new(big.Int)
	var maxSupply *big.Int
	if ci != nil {
		if ci.TotalSupply != nil {
			current = ci.TotalSupply
		}
		maxSupply = maxSupplyOf(ci)
	}

	projected := new(big.Int).Add(current, issueAmount(tx.Announcement.Amount))
	if maxSupply != nil && maxSupply.Sign() > 0 && projected.Cmp(maxSupply) > 0 {
		return ErrMaxSupplyExceeded
	}

	return nil
}

// checkStatefulTransfer implements rules 4, 5, and 6 for a Transfer
// transaction.
func (c *Checker) checkStatefulTransfer(tx *yuvtx.TransferTx) error {
	inputTotals := make(map[pixel.Chroma]*big.Int)
	outputTotals := make(map[pixel.Chroma]*big.Int)

	bp, _ := yuvtx.IsBulletproof(tx)

	for vin, proof := range tx.InputProofs {
		txin := tx.Tx.TxIn[vin]
		outpoint := txin.PreviousOutPoint

		pkScript, amount, err := c.fetchParentOutput(outpoint)
		if err != nil {
			return err
		}

		if err := pixel.CheckByInput(proof, tx.Tx, int(vin), pkScript, amount); err != nil {
			return err
		}

		if err := c.checkFrozen(outpoint, proof.Pixel().Chroma); err != nil {
			return err
		}

		if !bp {
			chroma := proof.Pixel().Chroma
			if _, ok := inputTotals[chroma]; !ok {
				inputTotals[chroma] = new(big.Int)
			}
			inputTotals[chroma].Add(inputTotals[chroma], proof.Pixel().Luma.AmountBigInt())
		}
	}

	if !bp {
		for _, proof := range tx.OutputProofs {
			chroma := proof.Pixel().Chroma
			if _, ok := outputTotals[chroma]; !ok {
				outputTotals[chroma] = new(big.Int)
			}
			outputTotals[chroma].Add(outputTotals[chroma], proof.Pixel().Luma.AmountBigInt())
		}

		for chroma, in := range inputTotals {
			out, ok := outputTotals[chroma]
			if !ok || in.Cmp(out) != 0 {
				return ErrConservationMismatch
			}
		}
	}

	return nil
}

// fetchParentOutput implements rule 4 (parent existence) and supplies the
// pkScript/value rule 3's check_by_input needs, in one RPC round trip.
func (c *Checker) fetchParentOutput(outpoint wire.OutPoint) (pkScript []byte, amount int64, err error) {
	parent, err := c.cfg.Source.RawTransaction(&outpoint.Hash)
	if err != nil {
		if errors.Is(err, chainrpc.ErrTxNotFound) {
			return nil, 0, fmt.Errorf("%w: %v", ErrParentNotFound, err)
		}
		return nil, 0, err
	}

	parentTx := parent.MsgTx()
	if int(outpoint.Index) >= len(parentTx.TxOut) {
		return nil, 0, ErrInvalidVin
	}
	txOut := parentTx.TxOut[outpoint.Index]
	return txOut.PkScript, txOut.Value, nil
}

// checkFrozen implements rule 5.
func (c *Checker) checkFrozen(outpoint wire.OutPoint, chroma pixel.Chroma) error {
	key := store.OutpointBytes(outpoint.Hash, outpoint.Index)
	freeze, err := c.cfg.Store.GetFreeze(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	currentOwner, err := c.ownerScriptFor(chroma)
	if err != nil {
		return err
	}

	if bytes.Equal(freeze.Signer, currentOwner) {
		return ErrFrozen
	}
	return nil
}

// ownerScriptFor returns the chroma's current owner script: the one
// recorded by the last-seen TransferOwnership if any, else the default
// derived directly from the chroma's own key (spec.md §4.6 rule 7).
func (c *Checker) ownerScriptFor(chroma pixel.Chroma) ([]byte, error) {
	ci, err := c.cfg.Store.GetChromaInfo(chroma)
	if err == nil && len(ci.OwnerScript) > 0 {
		return ci.OwnerScript, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return pixel.OwnerScript(chroma)
}

// firstInputScript fetches the pkScript the transaction's first input
// spends, used as the stand-in for "signed by" authority checks: the caller
// confirms the right script's UTXO was spent, and no signature over that
// input is verified here (unlike pixel.CheckByInput's P2WPKH check, which
// verifies a BIP-143 signature).
func (c *Checker) firstInputScript(wtx *wire.MsgTx) ([]byte, error) {
	if len(wtx.TxIn) == 0 {
		return nil, ErrIssuerNotAuthorized
	}
	out := wtx.TxIn[0].PreviousOutPoint
	parent, err := c.cfg.Source.RawTransaction(&out.Hash)
	if err != nil {
		if errors.Is(err, chainrpc.ErrTxNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrParentNotFound, err)
		}
		return nil, err
	}
	parentTx := parent.MsgTx()
	if int(out.Index) >= len(parentTx.TxOut) {
		return nil, ErrInvalidVout
	}
	return parentTx.TxOut[out.Index].PkScript, nil
}

// maxSupplyOf reads the finite max-supply declared by the last-seen
// ChromaMetadata announcement, or nil if none was declared (unlimited).
func maxSupplyOf(ci *store.ChromaInfo) *big.Int {
	meta, ok := ci.Announcement.(*announcement.ChromaMetadata)
	if !ok {
		return nil
	}
	v := new(big.Int).SetBytes(meta.MaxSupply[:])
	if v.Sign() == 0 {
		return nil
	}
	return v
}
