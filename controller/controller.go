// Package controller implements the controller (spec.md §4.8): the single
// writer of the attached-transaction store, the chroma-info store, and the
// freeze store, and the owner of the in-flight tx-state map and the
// inventory-sharing timer.
package controller

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	goerrors "github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/internal/metrics"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
)

// DefaultInvSharingInterval/DefaultMaxInvSize match spec.md §4.8's
// "inv_sharing_interval"/"max_inv_size" parameters' suggested defaults.
const (
	DefaultInvSharingInterval = 30 * time.Second
	DefaultMaxInvSize         = 500
)

// Config wires the controller's dependencies.
type Config struct {
	Store   *store.Store
	Bus     *eventbus.Bus
	Metrics *metrics.Metrics

	InvSharingInterval time.Duration
	MaxInvSize         int

	Clock  clock.Clock
	Ticker ticker.Ticker

	// ResumeIndexing, if set, is called with the new resume height after
	// a Reorganization has been fully undone (spec.md §4.8, "instruct
	// the indexer to resume from new_indexing_height"). The controller
	// has no direct handle on the block loader, which lives in whatever
	// process wires the whole node together; this is that handle.
	ResumeIndexing func(height int32)

	// OnFatal, if set, is called when a store operation fails — spec.md
	// §7's "Fatal errors ... trigger cancellation of the whole node" —
	// so the owning process can cancel its global token.
	OnFatal func(error)
}

// Controller is the orchestrator of spec.md §4.8.
type Controller struct {
	cfg   Config
	state *stateMap

	initIn       <-chan interface{}
	checkedAnnIn <-chan interface{}
	attachedIn   <-chan interface{}
	invalidIn    <-chan interface{}
	confirmedIn  <-chan interface{}
	minedIn      <-chan interface{}
	reorgIn      <-chan interface{}
	p2pInvIn     <-chan interface{}
	p2pGetDataIn <-chan interface{}
	p2pYuvTxIn   <-chan interface{}
}

// New builds a Controller and subscribes it to every topic in spec.md
// §4.8's command table right away, inside New rather than Run, for the
// same reason checker.New and graph.New do: a message published
// immediately after New returns must never race Run's goroutine startup.
func New(cfg Config) *Controller {
	if cfg.MaxInvSize <= 0 {
		cfg.MaxInvSize = DefaultMaxInvSize
	}
	if cfg.InvSharingInterval <= 0 {
		cfg.InvSharingInterval = DefaultInvSharingInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Ticker == nil {
		cfg.Ticker = ticker.New(cfg.InvSharingInterval)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	return &Controller{
		cfg:          cfg,
		state:        newStateMap(),
		initIn:       cfg.Bus.Subscribe(eventbus.TopicInitializeTxs),
		checkedAnnIn: cfg.Bus.Subscribe(eventbus.TopicCheckedAnnouncement),
		attachedIn:   cfg.Bus.Subscribe(eventbus.TopicAttachedTxs),
		invalidIn:    cfg.Bus.Subscribe(eventbus.TopicInvalidTxs),
		confirmedIn:  cfg.Bus.Subscribe(eventbus.TopicConfirmedTxs),
		minedIn:      cfg.Bus.Subscribe(eventbus.TopicMinedTxs),
		reorgIn:      cfg.Bus.Subscribe(eventbus.TopicReorganization),
		p2pInvIn:     cfg.Bus.Subscribe(eventbus.TopicP2PInv),
		p2pGetDataIn: cfg.Bus.Subscribe(eventbus.TopicP2PGetData),
		p2pYuvTxIn:   cfg.Bus.Subscribe(eventbus.TopicP2PYuvTx),
	}
}

// Status reports txid's controller-local state, for the RPC surface's
// getyuvtransaction: "pending"/"checked" if tracked in-memory, "attached"
// if persisted, else "none".
func (c *Controller) Status(txid chainhash.Hash) string {
	if st, ok := c.state.Status(txid); ok {
		return st.String()
	}
	if c.cfg.Store.HasTx(txid) {
		return "attached"
	}
	return "none"
}

// Run drives every subscription and the inventory-sharing ticker until ctx
// is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.cfg.Ticker.Resume()
	defer c.cfg.Ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.initIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.InitializeTxs); ok {
				c.handleInitializeTxs(m)
			}

		case msg, ok := <-c.checkedAnnIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.CheckedAnnouncement); ok {
				c.handleCheckedAnnouncement(m)
			}

		case msg, ok := <-c.attachedIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.AttachedTxs); ok {
				c.handleAttachedTxs(m)
			}

		case msg, ok := <-c.invalidIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.InvalidTxs); ok {
				c.handleInvalidTxs(m)
			}

		case msg, ok := <-c.confirmedIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.ConfirmedTxs); ok {
				c.handleLifecycleAdvance(m.TxIDs)
			}

		case msg, ok := <-c.minedIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.MinedTxs); ok {
				c.handleLifecycleAdvance(m.TxIDs)
			}

		case msg, ok := <-c.reorgIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.Reorganization); ok {
				c.handleReorganization(m)
			}

		case msg, ok := <-c.p2pInvIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.P2PInv); ok {
				c.handleP2PInv(m)
			}

		case msg, ok := <-c.p2pGetDataIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.P2PGetData); ok {
				c.handleP2PGetData(m)
			}

		case msg, ok := <-c.p2pYuvTxIn:
			if !ok {
				return
			}
			if m, ok := msg.(eventbus.P2PYuvTx); ok {
				c.handleP2PYuvTx(m)
			}

		case <-c.cfg.Ticker.Ticks():
			c.shareInventory()
		}
	}
}

// handleInitializeTxs implements spec.md §4.8's InitializeTxs row: the
// checker is dispatched to by the bus's own fan-out (it subscribes to the
// same topic independently), so the controller's only job here is to
// start tracking the transactions as Pending.
func (c *Controller) handleInitializeTxs(m eventbus.InitializeTxs) {
	for _, tx := range m.Txs {
		c.state.insert(tx, m.Sender)
	}
}

// handleCheckedAnnouncement implements the CheckedAnnouncement row: an
// announcement-only transaction has no parents for the graph builder to
// wait on, so the controller attaches it immediately instead of routing
// it through graph.
func (c *Controller) handleCheckedAnnouncement(m eventbus.CheckedAnnouncement) {
	e, ok := c.state.setChecked(m.Txid)
	if !ok {
		log.Warnf("CTRL: checked announcement %v has no tracked tx-state entry", m.Txid)
		return
	}
	c.attachOne(e.tx)
}

// handleAttachedTxs implements the AttachedTxs row for the graph builder's
// topologically-ordered batch.
func (c *Controller) handleAttachedTxs(m eventbus.AttachedTxs) {
	for _, tx := range m.Txs {
		c.attachOne(tx)
	}
}

// attachOne persists tx and clears its tx-state entry.
func (c *Controller) attachOne(tx yuvtx.Transaction) {
	if err := c.persist(tx); err != nil {
		c.fatal(goerrors.Wrap(err, 0))
		return
	}
	c.state.remove(tx.Txid())
	c.cfg.Metrics.TxsAttached.Inc()
}

// handleInvalidTxs implements the InvalidTxs row.
func (c *Controller) handleInvalidTxs(m eventbus.InvalidTxs) {
	for range m.TxIDs {
		c.cfg.Metrics.TxsRejected.Inc()
	}
	for _, txid := range m.TxIDs {
		c.state.remove(txid)
	}
	if m.Sender != 0 {
		c.cfg.Bus.Publish(eventbus.TopicBanPeer, eventbus.BanPeer{Peer: m.Sender, Reason: m.Reason})
		c.cfg.Metrics.PeersBanned.Inc()
	}
}

// handleLifecycleAdvance implements the ConfirmedTxs/MinedTxs row: any
// txid still sitting at Pending (the checker never got to it, e.g. across
// a restart) is re-dispatched through the same InitializeTxs entry point.
func (c *Controller) handleLifecycleAdvance(txids []chainhash.Hash) {
	for _, txid := range txids {
		e, ok := c.state.get(txid)
		if !ok || e.state != StatePending {
			continue
		}
		c.cfg.Bus.Publish(eventbus.TopicInitializeTxs, eventbus.InitializeTxs{
			Txs:    []yuvtx.Transaction{e.tx},
			Sender: e.sender,
		})
	}
}

// handleReorganization implements the Reorganization row: txs arrives in
// reverse-mined order (confirmation.Tracker's reorg walk collects most-
// recent-block-first), which is exactly the order derived aggregates must
// be undone in.
func (c *Controller) handleReorganization(m eventbus.Reorganization) {
	for _, txid := range m.Txs {
		tx, err := c.cfg.Store.GetTx(txid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			c.fatal(goerrors.Wrap(err, 0))
			return
		}

		if err := c.undo(tx); err != nil {
			c.fatal(goerrors.Wrap(err, 0))
			return
		}

		c.state.insert(tx, 0)
	}

	c.cfg.Metrics.ReorgsHandled.Inc()
	if c.cfg.ResumeIndexing != nil {
		c.cfg.ResumeIndexing(m.NewIndexingHeight)
	}
}

// handleP2PInv implements the P2P(Inv) row: diff against the attached-
// transaction store and request anything missing.
func (c *Controller) handleP2PInv(m eventbus.P2PInv) {
	var missing []yuvtx.InvVect
	for _, inv := range m.Inv {
		if !c.cfg.Store.HasTx(inv.Txid) {
			missing = append(missing, inv)
		}
	}
	if len(missing) == 0 {
		return
	}
	c.cfg.Bus.Publish(eventbus.TopicOutboundGetData, eventbus.OutboundGetData{Inv: missing, Peer: m.Sender})
}

// handleP2PGetData implements the P2P(GetData) row: respond with known
// transactions only.
func (c *Controller) handleP2PGetData(m eventbus.P2PGetData) {
	var known []yuvtx.Transaction
	for _, inv := range m.Inv {
		tx, err := c.cfg.Store.GetTx(inv.Txid)
		if err != nil {
			continue
		}
		known = append(known, tx)
	}
	if len(known) == 0 {
		return
	}
	c.cfg.Bus.Publish(eventbus.TopicOutboundYuvTx, eventbus.OutboundYuvTx{Txs: known, Peer: m.Sender})
}

// handleP2PYuvTx implements the P2P(YuvTx) row: feed into the same
// InitializeTxs pipeline, keeping Sender for ban-on-invalid.
func (c *Controller) handleP2PYuvTx(m eventbus.P2PYuvTx) {
	c.cfg.Bus.Publish(eventbus.TopicInitializeTxs, eventbus.InitializeTxs{Txs: m.Txs, Sender: m.Sender})
}

// shareInventory implements spec.md §4.8's "Inventory sharing": pop up to
// MaxInvSize of the most recent attached txids and broadcast them.
func (c *Controller) shareInventory() {
	list, err := c.cfg.Store.Inventory()
	if err != nil {
		c.fatal(goerrors.Wrap(err, 0))
		return
	}
	if len(list) > c.cfg.MaxInvSize {
		list = list[len(list)-c.cfg.MaxInvSize:]
	}
	if len(list) == 0 {
		return
	}
	c.cfg.Bus.Publish(eventbus.TopicOutboundInv, eventbus.OutboundInv{TxIDs: list})
}

// fatal logs err with its stack trace and invokes OnFatal, implementing
// spec.md §7's "Fatal errors ... trigger cancellation of the whole node".
func (c *Controller) fatal(err error) {
	if ge, ok := err.(*goerrors.Error); ok {
		log.Errorf("CTRL: fatal: %s", ge.ErrorStack())
	} else {
		log.Errorf("CTRL: fatal: %s", err)
	}
	if c.cfg.OnFatal != nil {
		c.cfg.OnFatal(err)
	}
}
