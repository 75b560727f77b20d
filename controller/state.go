package controller

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/yuvtx"
)

// TxState is the in-flight lifecycle state of a transaction the controller
// hasn't attached yet (spec.md §2, "Lifecycle of a YUV transaction").
// Attached transactions leave this map entirely; their state from then on
// is just "present in the transaction store".
type TxState int

const (
	// StatePending is "submitted, awaiting check".
	StatePending TxState = iota
	// StateChecked is "checker passed it, awaiting its parents" (or, for
	// an announcement-only transaction, awaiting nothing further).
	StateChecked
)

func (s TxState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateChecked:
		return "checked"
	default:
		return "unknown"
	}
}

// entry is what the tx-state map holds per in-flight transaction: not just
// its lifecycle state but the transaction object itself, since a later
// CheckedAnnouncement or AttachedTxs message only carries a txid and the
// controller still needs the full transaction to persist it.
type entry struct {
	tx     yuvtx.Transaction
	state  TxState
	sender eventbus.PeerID
}

// stateMap is the tx-state map of spec.md §2: "the only mutable shared
// structure touched by multiple pipeline stages ... guarded by a single
// reader-writer lock". The controller is its only writer; Status is the
// read-only view other components (the RPC surface) use.
type stateMap struct {
	mu sync.RWMutex
	m  map[chainhash.Hash]*entry
}

func newStateMap() *stateMap {
	return &stateMap{m: make(map[chainhash.Hash]*entry)}
}

// insert records tx as Pending, unless it's already tracked (InitializeTxs
// may be re-delivered for a tx the controller is already watching, e.g. by
// the reorg-undo path below).
func (s *stateMap) insert(tx yuvtx.Transaction, sender eventbus.PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txid := tx.Txid()
	if _, ok := s.m[txid]; ok {
		return
	}
	s.m[txid] = &entry{tx: tx, state: StatePending, sender: sender}
}

// setChecked transitions txid to Checked, returning its tracked entry so
// the caller can decide whether to attach it immediately (announcements
// have no parents to wait on).
func (s *stateMap) setChecked(txid chainhash.Hash) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[txid]
	if !ok {
		return nil, false
	}
	e.state = StateChecked
	return e, true
}

// remove drops txid from the map, returning whatever was tracked for it (or
// nil if nothing was).
func (s *stateMap) remove(txid chainhash.Hash) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.m[txid]
	delete(s.m, txid)
	return e
}

// get returns the tracked entry for txid without mutating the map.
func (s *stateMap) get(txid chainhash.Hash) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[txid]
	return e, ok
}

// Status reports txid's tx-state: "pending"/"checked" if still tracked
// in-memory, else "none" (the caller is expected to additionally check
// store.HasTx for "attached").
func (s *stateMap) Status(txid chainhash.Hash) (TxState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[txid]
	if !ok {
		return 0, false
	}
	return e.state, true
}
