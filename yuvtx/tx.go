// Package yuvtx implements the tagged transaction type that sits alongside
// a Bitcoin transaction (spec.md §3, §6): Issue, Transfer, or a pure
// Announcement, each carrying a map of proofs keyed by input/output index.
package yuvtx

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/pixel"
)

// Type is the one-byte on-wire transaction-type tag (spec.md §6).
type Type uint8

const (
	TypeIssue Type = iota
	TypeTransfer
	TypeAnnouncement
)

func (t Type) String() string {
	switch t {
	case TypeIssue:
		return "issue"
	case TypeTransfer:
		return "transfer"
	case TypeAnnouncement:
		return "announcement"
	default:
		return "unknown"
	}
}

// amountBytes is the width of the little-endian u128 amount field embedded
// in an IssueAnnouncement (spec.md §6).
const amountBytes = 16

// IssueAnnouncement is the transaction-embedded issuance declaration
// (spec.md §3, §6) — distinct from announcement.Issue, the on-chain
// OP_RETURN kind with the same field shape, because this one never carries
// a min-height gate.
type IssueAnnouncement struct {
	Chroma pixel.Chroma
	Amount [amountBytes]byte // little-endian u128
}

// ProofMap maps a vin (for Transfer input proofs) or vout (for Issue/
// Transfer output proofs) index to the proof witnessing that input/output.
type ProofMap map[uint32]pixel.Proof

// Transaction is the tagged sum of the three wire transaction kinds.
type Transaction interface {
	// Type returns this transaction's stable on-wire discriminant.
	Type() Type

	// BitcoinTx returns the underlying Bitcoin transaction.
	BitcoinTx() *wire.MsgTx

	// Txid returns the Bitcoin transaction's hash.
	Txid() chainhash.Hash
}

// IssueTx is an issuance: output proofs plus the IssueAnnouncement naming
// the chroma and total amount issued (spec.md §3).
type IssueTx struct {
	Tx           *wire.MsgTx
	Announcement IssueAnnouncement
	OutputProofs ProofMap
}

func (t *IssueTx) Type() Type                  { return TypeIssue }
func (t *IssueTx) BitcoinTx() *wire.MsgTx       { return t.Tx }
func (t *IssueTx) Txid() chainhash.Hash         { return t.Tx.TxHash() }

// TransferTx moves pixels between outputs, input_proofs witnessing the
// inputs being spent and output_proofs witnessing the new outputs
// (spec.md §3).
type TransferTx struct {
	Tx            *wire.MsgTx
	InputProofs   ProofMap
	OutputProofs  ProofMap
}

func (t *TransferTx) Type() Type            { return TypeTransfer }
func (t *TransferTx) BitcoinTx() *wire.MsgTx { return t.Tx }
func (t *TransferTx) Txid() chainhash.Hash   { return t.Tx.TxHash() }

// AnnouncementTx is a pure on-chain announcement carrying no proofs
// (spec.md §3).
type AnnouncementTx struct {
	Tx           *wire.MsgTx
	Announcement announcement.Announcement
}

func (t *AnnouncementTx) Type() Type            { return TypeAnnouncement }
func (t *AnnouncementTx) BitcoinTx() *wire.MsgTx { return t.Tx }
func (t *AnnouncementTx) Txid() chainhash.Hash   { return t.Tx.TxHash() }

// Parents returns the distinct txids referenced by any input proof — the
// transaction's parents in the attach graph (spec.md §4.7). Issue and
// Announcement transactions have none.
func Parents(t Transaction) []chainhash.Hash {
	tt, ok := t.(*TransferTx)
	if !ok {
		return nil
	}

	seen := make(map[chainhash.Hash]struct{})
	var parents []chainhash.Hash
	for vin := range tt.InputProofs {
		if int(vin) >= len(tt.Tx.TxIn) {
			continue
		}
		parent := tt.Tx.TxIn[vin].PreviousOutPoint.Hash
		if _, ok := seen[parent]; !ok {
			seen[parent] = struct{}{}
			parents = append(parents, parent)
		}
	}
	return parents
}

// IsBulletproof reports whether any proof carried by t is the bulletproof
// variant (spec invariant 9: bulletproof and non-bulletproof proofs never
// mix within one transaction — this helper is used by the checker to
// enforce it).
func IsBulletproof(t Transaction) (isBP bool, mixed bool) {
	var sawBP, sawNonBP bool

	check := func(m ProofMap) {
		for _, p := range m {
			if pixel.IsBulletproof(p) {
				sawBP = true
			} else {
				sawNonBP = true
			}
		}
	}

	switch tt := t.(type) {
	case *IssueTx:
		check(tt.OutputProofs)
	case *TransferTx:
		check(tt.InputProofs)
		check(tt.OutputProofs)
	}

	return sawBP, sawBP && sawNonBP
}
