package yuvtx

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// InvVect is the sole inventory kind exchanged over p2p: Ytx(txid)
// (spec.md §3, §4.9). It is distinguished from a Bitcoin tx inventory
// vector by living in this package's own wire command rather than
// wire.InvVect's InvType enum.
type InvVect struct {
	Txid chainhash.Hash
}

// NewInvVect builds an inventory entry for txid.
func NewInvVect(txid chainhash.Hash) InvVect {
	return InvVect{Txid: txid}
}

func (i InvVect) String() string {
	return "ytx:" + i.Txid.String()
}
