package store

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/yuvtx"
)

// chromaInfoAmountSize is the width of the big-endian u128 total_supply
// field (spec.md §3, "Chroma info").
const chromaInfoAmountSize = 16

// ChromaInfo is the per-chroma persistent aggregate (spec.md §3).
type ChromaInfo struct {
	Announcement announcement.Announcement // nil if none published yet
	TotalSupply  *big.Int
	OwnerScript  []byte // nil if no TransferOwnership seen yet
}

func encodeChromaInfo(ci *ChromaInfo) []byte {
	var out []byte

	if ci.Announcement != nil {
		encoded, err := announcement.Encode(ci.Announcement)
		if err == nil {
			var l [4]byte
			binary.LittleEndian.PutUint32(l[:], uint32(len(encoded)))
			out = append(out, 1)
			out = append(out, l[:]...)
			out = append(out, encoded...)
		} else {
			out = append(out, 0)
		}
	} else {
		out = append(out, 0)
	}

	supplyBytes := make([]byte, chromaInfoAmountSize)
	if ci.TotalSupply != nil {
		b := ci.TotalSupply.Bytes()
		copy(supplyBytes[chromaInfoAmountSize-len(b):], b)
	}
	out = append(out, supplyBytes...)

	var ownerLen [2]byte
	binary.LittleEndian.PutUint16(ownerLen[:], uint16(len(ci.OwnerScript)))
	out = append(out, ownerLen[:]...)
	out = append(out, ci.OwnerScript...)

	return out
}

func decodeChromaInfo(b []byte) (*ChromaInfo, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("store: chroma info truncated")
	}
	hasAnn := b[0] == 1
	off := 1

	ci := &ChromaInfo{}
	if hasAnn {
		if len(b) < off+4 {
			return nil, fmt.Errorf("store: chroma info announcement length truncated")
		}
		l := int(binary.LittleEndian.Uint32(b[off : off+4]))
		off += 4
		if len(b) < off+l {
			return nil, fmt.Errorf("store: chroma info announcement body truncated")
		}
		a, err := announcement.Parse(b[off : off+l])
		if err != nil {
			return nil, fmt.Errorf("store: chroma info announcement: %w", err)
		}
		ci.Announcement = a
		off += l
	}

	if len(b) < off+chromaInfoAmountSize+2 {
		return nil, fmt.Errorf("store: chroma info supply/owner truncated")
	}
	ci.TotalSupply = new(big.Int).SetBytes(b[off : off+chromaInfoAmountSize])
	off += chromaInfoAmountSize

	ownerLen := int(binary.LittleEndian.Uint16(b[off : off+2]))
	off += 2
	if len(b) < off+ownerLen {
		return nil, fmt.Errorf("store: chroma info owner script truncated")
	}
	if ownerLen > 0 {
		ci.OwnerScript = append([]byte{}, b[off:off+ownerLen]...)
	}

	return ci, nil
}

// FreezeRecord is the per-outpoint freeze record (spec.md §3): presence
// means the outpoint may not be spent as a token input. Signer is the
// chroma's owner script at the moment the freeze was accepted, needed to
// tell whether the freezing authority is still in control (spec.md §4.6
// rule 5).
type FreezeRecord struct {
	Txid   chainhash.Hash
	Chroma pixel.Chroma
	Signer []byte
}

func encodeFreezeRecord(r *FreezeRecord) []byte {
	chromaBytes := r.Chroma.Bytes()
	out := make([]byte, 0, chainhash.HashSize+pixel.ChromaSize+2+len(r.Signer))
	out = append(out, r.Txid[:]...)
	out = append(out, chromaBytes[:]...)
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(r.Signer)))
	out = append(out, l[:]...)
	out = append(out, r.Signer...)
	return out
}

func decodeFreezeRecord(b []byte) (*FreezeRecord, error) {
	const fixed = chainhash.HashSize + pixel.ChromaSize + 2
	if len(b) < fixed {
		return nil, fmt.Errorf("store: freeze record has wrong length %d", len(b))
	}
	var txid chainhash.Hash
	copy(txid[:], b[:chainhash.HashSize])
	off := chainhash.HashSize

	chroma, err := pixel.ChromaFromBytes(b[off : off+pixel.ChromaSize])
	if err != nil {
		return nil, fmt.Errorf("store: freeze record chroma: %w", err)
	}
	off += pixel.ChromaSize

	signerLen := int(binary.LittleEndian.Uint16(b[off : off+2]))
	off += 2
	if len(b) != off+signerLen {
		return nil, fmt.Errorf("store: freeze record signer length mismatch")
	}

	var signer []byte
	if signerLen > 0 {
		signer = append([]byte{}, b[off:off+signerLen]...)
	}

	return &FreezeRecord{Txid: txid, Chroma: chroma, Signer: signer}, nil
}

// OutpointBytes is the canonical encoding of a Bitcoin outpoint used as the
// freeze-record key: the 32-byte txid followed by the little-endian 4-byte
// output index. Every writer and reader of freeze records (the checker, the
// controller) must agree on this encoding.
func OutpointBytes(txid chainhash.Hash, index uint32) []byte {
	out := make([]byte, chainhash.HashSize+4)
	copy(out, txid[:])
	binary.LittleEndian.PutUint32(out[chainhash.HashSize:], index)
	return out
}

// Store is the typed façade over KV used by the rest of the node. It is
// the only thing the controller (and the checker/graph, for reads) touch
// directly; no component outside this package parses namespace prefixes.
type Store struct {
	kv KV
}

// New wraps kv in a typed Store.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// PutTx persists the hex wire encoding of tx under its txid.
func (s *Store) PutTx(txid chainhash.Hash, tx yuvtx.Transaction) error {
	hexStr, err := yuvtx.Encode(tx)
	if err != nil {
		return err
	}
	return s.kv.Put(txKey(txid[:]), []byte(hexStr))
}

// GetTx looks up a previously attached transaction by txid.
func (s *Store) GetTx(txid chainhash.Hash) (yuvtx.Transaction, error) {
	raw, err := s.kv.Get(txKey(txid[:]))
	if err != nil {
		return nil, err
	}
	return yuvtx.Decode(string(raw))
}

// DeleteTx removes a transaction (used when undoing a Reorganization,
// spec.md §4.8).
func (s *Store) DeleteTx(txid chainhash.Hash) error {
	return s.kv.Delete(txKey(txid[:]))
}

// HasTx reports whether txid is attached, without paying the decode cost
// (used by the graph builder's parent-resolution check, spec.md §4.7).
func (s *Store) HasTx(txid chainhash.Hash) bool {
	_, err := s.kv.Get(txKey(txid[:]))
	return err == nil
}

// PutFreeze records that outpoint is frozen under r.
func (s *Store) PutFreeze(outpoint []byte, r *FreezeRecord) error {
	return s.kv.Put(freezeKey(outpoint), encodeFreezeRecord(r))
}

// GetFreeze looks up a freeze record by outpoint, or ErrNotFound.
func (s *Store) GetFreeze(outpoint []byte) (*FreezeRecord, error) {
	raw, err := s.kv.Get(freezeKey(outpoint))
	if err != nil {
		return nil, err
	}
	return decodeFreezeRecord(raw)
}

// DeleteFreeze removes a freeze record (used when undoing a
// Reorganization whose only mined Freeze announcement was orphaned).
func (s *Store) DeleteFreeze(outpoint []byte) error {
	return s.kv.Delete(freezeKey(outpoint))
}

// PutChromaInfo writes the aggregate record for chroma.
func (s *Store) PutChromaInfo(chroma pixel.Chroma, ci *ChromaInfo) error {
	b := chroma.Bytes()
	return s.kv.Put(chromaKey(b[:]), encodeChromaInfo(ci))
}

// GetChromaInfo reads the aggregate record for chroma, or ErrNotFound if no
// Issue/ChromaMetadata/TransferOwnership has ever been seen for it.
func (s *Store) GetChromaInfo(chroma pixel.Chroma) (*ChromaInfo, error) {
	b := chroma.Bytes()
	raw, err := s.kv.Get(chromaKey(b[:]))
	if err != nil {
		return nil, err
	}
	return decodeChromaInfo(raw)
}

// SetIndexedBlock records the last block hash the indexer has fully
// processed, surviving restarts.
func (s *Store) SetIndexedBlock(hash chainhash.Hash) error {
	return s.kv.Put(keyIndexedBlock, hash[:])
}

// IndexedBlock returns the last indexed block hash, or ErrNotFound before
// the first block has ever been indexed.
func (s *Store) IndexedBlock() (chainhash.Hash, error) {
	raw, err := s.kv.Get(keyIndexedBlock)
	if err != nil {
		return chainhash.Hash{}, err
	}
	var h chainhash.Hash
	copy(h[:], raw)
	return h, nil
}

// hexTxid returns the lower-case hex encoding of h's bytes. Nothing in this
// package calls it: the inventory and page lists are stored as a
// count-prefixed binary list (see encodeInventoryList).
func hexTxid(h chainhash.Hash) string { return hex.EncodeToString(h[:]) }
