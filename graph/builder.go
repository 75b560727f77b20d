// Package graph implements the attach engine (spec.md §4.7): it holds
// transactions whose parents aren't attached yet in a waiting map, and
// releases them — topologically ordered, parents before children — as
// soon as every parent becomes available.
package graph

import (
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
)

// DefaultWaitThreshold/DefaultCleanUpInterval bound how long a transaction
// may sit in the waiting map before it is given up on (spec.md §4.7,
// "bounded waiting").
const (
	DefaultWaitThreshold   = 10 * time.Minute
	DefaultCleanUpInterval = time.Minute
)

// Config wires the graph builder's dependencies.
type Config struct {
	Store           *store.Store
	Bus             *eventbus.Bus
	WaitThreshold   time.Duration
	CleanUpInterval time.Duration
	Clock           clock.Clock
	Ticker          ticker.Ticker
}

// pendingEntry is one transaction blocked on the parents named in
// remaining. Indexed by the transaction's own txid.
type pendingEntry struct {
	tx         yuvtx.Transaction
	remaining  map[chainhash.Hash]struct{}
	insertedAt time.Time
}

// Builder is the attach engine described by spec.md §4.7.
type Builder struct {
	cfg     Config
	in      <-chan interface{}
	reorgIn <-chan interface{}

	mu sync.Mutex
	// pending holds every transaction waiting on at least one parent,
	// keyed by its own txid.
	pending map[chainhash.Hash]*pendingEntry
	// byParent is the reverse index: missing parent txid -> set of
	// child txids blocked on it.
	byParent map[chainhash.Hash]map[chainhash.Hash]struct{}
	// attached tracks txids this Builder has itself decided are
	// attachable, ahead of (or independent of) the controller's
	// persistence of them, so a cascading child within the same
	// recursive pass doesn't have to wait on store.HasTx catching up.
	attached map[chainhash.Hash]struct{}
}

// New builds a Builder and subscribes it to TopicCheckedTxs and
// TopicReorganization right away, before Run's goroutine ever starts, so
// no message published immediately after New returns can be missed.
func New(cfg Config) *Builder {
	if cfg.WaitThreshold <= 0 {
		cfg.WaitThreshold = DefaultWaitThreshold
	}
	if cfg.CleanUpInterval <= 0 {
		cfg.CleanUpInterval = DefaultCleanUpInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Ticker == nil {
		cfg.Ticker = ticker.New(cfg.CleanUpInterval)
	}

	return &Builder{
		cfg:      cfg,
		in:       cfg.Bus.Subscribe(eventbus.TopicCheckedTxs),
		reorgIn:  cfg.Bus.Subscribe(eventbus.TopicReorganization),
		pending:  make(map[chainhash.Hash]*pendingEntry),
		byParent: make(map[chainhash.Hash]map[chainhash.Hash]struct{}),
		attached: make(map[chainhash.Hash]struct{}),
	}
}

// Run drives the subscription and the clean-up ticker until ctx is
// cancelled.
func (b *Builder) Run(ctx context.Context) {
	b.cfg.Ticker.Resume()
	defer b.cfg.Ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-b.in:
			if !ok {
				return
			}
			if checked, ok := msg.(eventbus.CheckedTxs); ok {
				b.Process(checked.Txs)
			}

		case msg, ok := <-b.reorgIn:
			if !ok {
				return
			}
			if reorg, ok := msg.(eventbus.Reorganization); ok {
				b.undo(reorg.Txs)
			}

		case <-b.cfg.Ticker.Ticks():
			b.CleanUp()
		}
	}
}

// Process implements spec.md §4.7's five-step procedure for one CheckedTxs
// batch.
func (b *Builder) Process(txs []yuvtx.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ready []yuvtx.Transaction
	for _, tx := range txs {
		b.tryAttach(tx, &ready)
	}

	if len(ready) > 0 {
		b.cfg.Bus.Publish(eventbus.TopicAttachedTxs, eventbus.AttachedTxs{Txs: ready})
	}
}

// tryAttach implements rules 1-3: compute parents, and either mark tx
// attachable (cascading into any of its own waiting children, rule 5) or
// park it under every still-missing parent (rule 3). Must be called with
// b.mu held.
func (b *Builder) tryAttach(tx yuvtx.Transaction, ready *[]yuvtx.Transaction) {
	txid := tx.Txid()
	if _, ok := b.attached[txid]; ok {
		return
	}

	missing := make(map[chainhash.Hash]struct{})
	for _, p := range yuvtx.Parents(tx) {
		if !b.isAttached(p) {
			missing[p] = struct{}{}
		}
	}

	if len(missing) == 0 {
		b.markAttached(tx, ready)
		return
	}

	entry, exists := b.pending[txid]
	if !exists {
		entry = &pendingEntry{tx: tx, remaining: missing, insertedAt: b.cfg.Clock.Now()}
		b.pending[txid] = entry
	} else {
		entry.remaining = missing
	}

	for p := range missing {
		if b.byParent[p] == nil {
			b.byParent[p] = make(map[chainhash.Hash]struct{})
		}
		b.byParent[p][txid] = struct{}{}
	}
}

// markAttached records tx as attached, appends it to ready, and recurses
// into any children whose last missing parent was tx (rule 5). Must be
// called with b.mu held.
func (b *Builder) markAttached(tx yuvtx.Transaction, ready *[]yuvtx.Transaction) {
	txid := tx.Txid()
	if _, ok := b.attached[txid]; ok {
		return
	}
	b.attached[txid] = struct{}{}
	*ready = append(*ready, tx)
	delete(b.pending, txid)

	children := b.byParent[txid]
	delete(b.byParent, txid)
	for childTxid := range children {
		child, ok := b.pending[childTxid]
		if !ok {
			continue
		}
		delete(child.remaining, txid)
		if len(child.remaining) == 0 {
			delete(b.pending, childTxid)
			b.markAttached(child.tx, ready)
		}
	}
}

// isAttached reports whether parent is already known attached, either by
// this Builder's own in-memory decision or by the store (for parents
// attached in a previous process lifetime; issues have no parents and are
// never looked up here).
func (b *Builder) isAttached(parent chainhash.Hash) bool {
	if _, ok := b.attached[parent]; ok {
		return true
	}
	return b.cfg.Store.HasTx(parent)
}

// undo reverses previously-recorded attachment decisions for txs whose
// blocks were orphaned by a reorg, so a resubmitted version of one of them
// is re-evaluated from scratch instead of being short-circuited by a stale
// in-memory attached marker.
func (b *Builder) undo(txs []chainhash.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, txid := range txs {
		delete(b.attached, txid)
	}
}

// CleanUp discards pending entries older than WaitThreshold and reports
// them as invalid, per spec.md §4.7's "bounded waiting."
func (b *Builder) CleanUp() {
	b.mu.Lock()
	cutoff := b.cfg.Clock.Now().Add(-b.cfg.WaitThreshold)

	var stale []chainhash.Hash
	for txid, entry := range b.pending {
		if !entry.insertedAt.Before(cutoff) {
			continue
		}
		stale = append(stale, txid)
		delete(b.pending, txid)
		for parent := range entry.remaining {
			delete(b.byParent[parent], txid)
			if len(b.byParent[parent]) == 0 {
				delete(b.byParent, parent)
			}
		}
	}
	b.mu.Unlock()

	if len(stale) > 0 {
		log.Debugf("GRPH: dropping %d txs stuck waiting past %s", len(stale), b.cfg.WaitThreshold)
		b.cfg.Bus.Publish(eventbus.TopicInvalidTxs, eventbus.InvalidTxs{
			TxIDs:  stale,
			Reason: ErrStaleWaitEntry.Error(),
		})
	}
}

// Waiting reports whether txid is currently pending on at least one
// parent, for tests and diagnostics.
func (b *Builder) Waiting(txid chainhash.Hash) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[txid]
	return ok
}
