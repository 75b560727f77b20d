// Package subindexer implements the two per-block handlers that share
// each loaded block: the announcement indexer and the confirmation
// indexer (spec.md §4.4).
package subindexer

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/yuvtx"
)

// IndexAnnouncements scans every non-coinbase transaction in block for a
// valid, currently-active announcement OP_RETURN output and returns the
// resulting announcement-only transactions, ready for the
// eventbus.InitializeTxs message (spec.md §4.4).
//
// A transaction with more than one OP_RETURN output is scanned output by
// output; the first output that parses as an announcement wins, mirroring
// the single-announcement-per-transaction shape of §4.2's wire format.
func IndexAnnouncements(block *wire.MsgBlock, height uint32) []yuvtx.Transaction {
	var out []yuvtx.Transaction

	for i, tx := range block.Transactions {
		if i == 0 && isCoinbaseTx(tx) {
			continue
		}

		for _, txOut := range tx.TxOut {
			ann, err := announcement.Parse(txOut.PkScript)
			if err != nil {
				continue
			}
			if !announcement.IsActiveAt(ann, height) {
				continue
			}

			log.Tracef("SIDX: found announcement in %v at height %d", tx.TxHash(), height)
			out = append(out, &yuvtx.AnnouncementTx{
				Tx:           tx,
				Announcement: ann,
			})
			break
		}
	}

	return out
}

// ConfirmedTxIds returns every txid present in block, for the confirmation
// indexer's ConfirmedTxIds emission (spec.md §4.4).
func ConfirmedTxIds(block *wire.MsgBlock) []chainhash.Hash {
	ids := make([]chainhash.Hash, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		ids = append(ids, tx.TxHash())
	}
	return ids
}

// isCoinbaseTx mirrors btcd's blockchain.IsCoinBaseTx without importing the
// full blockchain package: a coinbase has exactly one input whose previous
// outpoint is the all-zero hash and max-value index.
func isCoinbaseTx(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prevOut := &tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == ^uint32(0) && prevOut.Hash == chainhash.Hash{}
}
