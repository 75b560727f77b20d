// Package confirmation implements the sliding-window confirmation tracker
// (spec.md §4.5): it watches transactions through mining and confirmation,
// and reconciles reorgs against its own window of recent block summaries.
package confirmation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/eventbus"
)

// BlockSummary is the minimal per-block record the tracker's window holds:
// enough to detect a reorg and to know which waiting txids just mined.
type BlockSummary struct {
	Height   int32
	Hash     chainhash.Hash
	PrevHash chainhash.Hash
	TxIDs    []chainhash.Hash
}

// Config parameterizes a Tracker.
type Config struct {
	Source chainrpc.Source
	Bus    *eventbus.Bus

	// Depth is the confirmation depth: the window's capacity, and the
	// confirmation count NewTxToConfirm checks against.
	Depth int

	// MaxConfirmationTime bounds how long an unconfirmed txid is
	// tracked before CleanUp drops it.
	MaxConfirmationTime time.Duration

	// CleanUpInterval is how often Run ticks CleanUp.
	CleanUpInterval time.Duration

	// Clock supplies Now(), overridable in tests.
	Clock clock.Clock

	// Ticker drives the periodic clean-up tick, overridable in tests.
	Ticker ticker.Ticker
}

// Tracker is the sliding-window confirmation tracker of spec.md §4.5.
type Tracker struct {
	cfg Config
	in  <-chan interface{}

	mu      sync.Mutex
	window  []BlockSummary
	waiting map[chainhash.Hash]time.Time
}

// New constructs a Tracker from cfg, defaulting Clock/Ticker when unset,
// and subscribes it to TopicInitializeTxs right away — matching the same
// eager-subscribe idiom checker.New/graph.New/controller.New/p2p.New use
// — so the "New txid to confirm" rule (spec.md §4.5) fires for every
// transaction as soon as it enters Pending, rather than requiring some
// other component to hold a direct reference to the Tracker and call
// NewTxToConfirm itself.
func New(cfg Config) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Ticker == nil {
		cfg.Ticker = ticker.New(cfg.CleanUpInterval)
	}
	return &Tracker{
		cfg:     cfg,
		in:      cfg.Bus.Subscribe(eventbus.TopicInitializeTxs),
		waiting: make(map[chainhash.Hash]time.Time),
	}
}

// Run drives the periodic clean-up tick and the TopicInitializeTxs
// subscription until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	t.cfg.Ticker.Resume()
	defer t.cfg.Ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.cfg.Ticker.Ticks():
			t.CleanUp()
		case msg, ok := <-t.in:
			if !ok {
				continue
			}
			init, ok := msg.(eventbus.InitializeTxs)
			if !ok {
				continue
			}
			for _, tx := range init.Txs {
				if err := t.NewTxToConfirm(tx.Txid()); err != nil {
					log.Warnf("CNFT: registering %s for confirmation: %v", tx.Txid(), err)
				}
			}
		}
	}
}

// NewBlock processes a newly loaded block (spec.md §4.5, "New block b").
func (t *Tracker) NewBlock(b BlockSummary) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.window) > 0 && t.window[len(t.window)-1].Hash != b.PrevHash {
		if err := t.reorg(b); err != nil {
			return err
		}
	}

	t.appendBlock(b)
	return nil
}

// appendBlock appends b to the window, emits MinedTxs for any waiting
// txid it contains, and — once the window exceeds Depth — pops the
// oldest block and emits ConfirmedTxs for its waiting txids.
func (t *Tracker) appendBlock(b BlockSummary) {
	t.window = append(t.window, b)

	var mined []chainhash.Hash
	for _, txid := range b.TxIDs {
		if _, ok := t.waiting[txid]; ok {
			mined = append(mined, txid)
		}
	}
	if len(mined) > 0 {
		t.cfg.Bus.Publish(eventbus.TopicMinedTxs, eventbus.MinedTxs{TxIDs: mined})
	}

	if len(t.window) <= t.cfg.Depth {
		return
	}

	popped := t.window[0]
	t.window = t.window[1:]

	var confirmed []chainhash.Hash
	for _, txid := range popped.TxIDs {
		if _, ok := t.waiting[txid]; ok {
			confirmed = append(confirmed, txid)
			delete(t.waiting, txid)
		}
	}
	if len(confirmed) > 0 {
		t.cfg.Bus.Publish(eventbus.TopicConfirmedTxs, eventbus.ConfirmedTxs{TxIDs: confirmed})
	}
}

// reorg pops window blocks back until the tail's hash matches the
// canonical ancestor of b at the same depth, walking that canonical chain
// backwards one block header at a time via RPC once the window has been
// popped down to the ancestor's height (spec.md §4.5, "Reorg"). Caller
// holds t.mu.
func (t *Tracker) reorg(b BlockSummary) error {
	var collected []chainhash.Hash
	ancestorHeight := b.Height - 1
	ancestorHash := b.PrevHash

	for {
		if len(t.window) == 0 {
			return ErrReorgExceedsWindow
		}

		tail := t.window[len(t.window)-1]
		if tail.Height == ancestorHeight && tail.Hash == ancestorHash {
			break
		}

		switch {
		case tail.Height > ancestorHeight:
			// Definitely stale: the new chain replaces everything
			// from b.Height up.
			t.window = t.window[:len(t.window)-1]
			collected = append(collected, tail.TxIDs...)

		case tail.Height == ancestorHeight:
			// Same height, different hash: the fork goes deeper.
			// Pop this block too and step one more level back
			// along the new canonical chain.
			t.window = t.window[:len(t.window)-1]
			collected = append(collected, tail.TxIDs...)
			if len(t.window) == 0 {
				return ErrReorgExceedsWindow
			}

			hdr, err := t.cfg.Source.BlockHeaderByHash(&ancestorHash)
			if err != nil {
				return err
			}
			ancestorHash = hdr.PrevBlock
			ancestorHeight--

		default:
			// The window is missing a height the fork needs; it
			// can't be reconciled.
			return ErrReorgExceedsWindow
		}
	}

	newHeight := int32(0)
	if len(t.window) > 0 {
		newHeight = t.window[len(t.window)-1].Height + 1
	}

	var txs []chainhash.Hash
	for _, txid := range collected {
		if _, ok := t.waiting[txid]; ok {
			txs = append(txs, txid)
			delete(t.waiting, txid)
		}
	}

	log.Warnf("CNFT: reorg detected, resuming indexing at height %d, %d txs orphaned", newHeight, len(txs))
	t.cfg.Bus.Publish(eventbus.TopicReorganization, eventbus.Reorganization{
		Txs:               txs,
		NewIndexingHeight: newHeight,
	})

	return nil
}

// NewTxToConfirm registers txid for confirmation tracking (spec.md §4.5,
// "New txid to confirm"). If the node already reports depth-or-greater
// confirmations, it is emitted as confirmed immediately.
func (t *Tracker) NewTxToConfirm(txid chainhash.Hash) error {
	t.mu.Lock()
	if _, exists := t.waiting[txid]; exists {
		t.mu.Unlock()
		return nil
	}
	t.waiting[txid] = t.cfg.Clock.Now()
	t.mu.Unlock()

	confs, err := t.cfg.Source.Confirmations(&txid)
	if err != nil {
		if errors.Is(err, chainrpc.ErrTxNotFound) {
			return nil
		}
		return err
	}

	if confs < int32(t.cfg.Depth) {
		return nil
	}

	t.mu.Lock()
	delete(t.waiting, txid)
	t.mu.Unlock()

	t.cfg.Bus.Publish(eventbus.TopicConfirmedTxs, eventbus.ConfirmedTxs{TxIDs: []chainhash.Hash{txid}})
	return nil
}

// CleanUp drops waiting entries older than MaxConfirmationTime (spec.md
// §4.5, "Clean-up tick").
func (t *Tracker) CleanUp() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.cfg.Clock.Now()
	for txid, seen := range t.waiting {
		if now.Sub(seen) > t.cfg.MaxConfirmationTime {
			delete(t.waiting, txid)
		}
	}
}

// Waiting reports whether txid is currently being tracked, for tests and
// diagnostics.
func (t *Tracker) Waiting(txid chainhash.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.waiting[txid]
	return ok
}
