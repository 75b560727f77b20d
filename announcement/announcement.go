// Package announcement implements the OP_RETURN codec for on-chain protocol
// announcements: chroma metadata, freeze, issue, and ownership-transfer
// declarations (spec.md §3, §4.2).
package announcement

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/pixel"
)

// Magic is the 3-byte prefix every announcement push payload begins with.
var Magic = [3]byte{'y', 'u', 'v'}

// Kind is the 2-byte on-wire discriminant following Magic.
type Kind uint16

const (
	KindChromaMetadata Kind = iota
	KindFreeze
	KindIssue
	KindTransferOwnership
)

func (k Kind) String() string {
	switch k {
	case KindChromaMetadata:
		return "chroma-metadata"
	case KindFreeze:
		return "freeze"
	case KindIssue:
		return "issue"
	case KindTransferOwnership:
		return "transfer-ownership"
	default:
		return "unknown"
	}
}

// Announcement is the common interface implemented by every announcement
// kind.
type Announcement interface {
	Kind() Kind

	// MinHeight is the reserved minimum-block-height gate (spec.md §4.2);
	// defaults to 0 for every kind implemented today.
	MinHeight() uint32
}

// ChromaMetadata declares display metadata for a chroma (spec.md §3).
type ChromaMetadata struct {
	Chroma      pixel.Chroma
	Name        string
	Symbol      string
	Decimals    uint8
	MaxSupply   [amountBytes]byte // 0 == unlimited, big-endian u128
	IsFreezable bool
	MinHeightValue uint32
}

func (a *ChromaMetadata) Kind() Kind        { return KindChromaMetadata }
func (a *ChromaMetadata) MinHeight() uint32 { return a.MinHeightValue }

// Freeze declares that a specific outpoint may no longer be spent as a
// token input under chroma (spec.md §3).
type Freeze struct {
	Outpoint       FreezeOutpoint
	Chroma         pixel.Chroma
	MinHeightValue uint32
}

// FreezeOutpoint names the frozen UTXO, independent of wire.OutPoint so this
// package has no dependency on a specific Bitcoin tx representation.
type FreezeOutpoint struct {
	Hash  chainhash.Hash
	Index uint32
}

func (a *Freeze) Kind() Kind        { return KindFreeze }
func (a *Freeze) MinHeight() uint32 { return a.MinHeightValue }

// amountBytes is the width of a u128 amount field, matching Luma's amount
// half (spec.md §6: "32-byte chroma + 16-byte little-endian amount").
const amountBytes = 16

// Issue declares an issuance of amount under chroma (spec.md §3). This is
// the same 32-byte-chroma + 16-byte-LE-amount shape §6 specifies for the
// transaction-embedded IssueAnnouncement, reused verbatim here.
type Issue struct {
	Chroma         pixel.Chroma
	Amount         [amountBytes]byte // little-endian u128
	MinHeightValue uint32
}

func (a *Issue) Kind() Kind        { return KindIssue }
func (a *Issue) MinHeight() uint32 { return a.MinHeightValue }

// TransferOwnership declares a new owner script for chroma (spec.md §3),
// used to authorize future Freeze/Issue announcements.
type TransferOwnership struct {
	Chroma         pixel.Chroma
	NewOwnerScript []byte
	MinHeightValue uint32
}

func (a *TransferOwnership) Kind() Kind        { return KindTransferOwnership }
func (a *TransferOwnership) MinHeight() uint32 { return a.MinHeightValue }
