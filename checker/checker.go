// Package checker implements the transaction checker (spec.md §4.6): a
// worker pool that validates every newly extracted or submitted
// transaction, stateless rules first, then the stateful rules that need
// the chain RPC and the store's read side.
package checker

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
)

// DefaultWorkers/DefaultTaskQueueSize are the checker's own defaults: the
// worker count used when Config.Workers is unset, and the capacity of the
// shared task queue.
const (
	DefaultWorkers       = 4
	DefaultTaskQueueSize = 256
)

// Config wires the checker's dependencies.
type Config struct {
	Source  chainrpc.Source
	Store   *store.Store
	Bus     *eventbus.Bus
	Workers int
}

// Checker validates transactions concurrently against spec.md §4.6's
// rules and reports the outcome on the bus.
type Checker struct {
	cfg Config
	in  <-chan interface{}
}

// New builds a Checker and subscribes it to TopicInitializeTxs right away
// (rather than on Run), so a message published immediately after New
// returns is never missed regardless of when Run's goroutines actually get
// scheduled. Workers defaults to DefaultWorkers if unset.
func New(cfg Config) *Checker {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Checker{cfg: cfg, in: cfg.Bus.Subscribe(eventbus.TopicInitializeTxs)}
}

// task pairs one transaction with the sender that originally submitted its
// batch, so InvalidTxs can carry Sender through for the controller's
// ban-on-invalid decision.
type task struct {
	tx     yuvtx.Transaction
	sender eventbus.PeerID
}

// Run drives Workers goroutines against a shared task queue, fed from the
// subscription New already made, until ctx is cancelled — matching spec.md
// §4.6's "each worker consumes from a shared task queue; there is no
// cross-worker state beyond the storage handles."
func (c *Checker) Run(ctx context.Context) {
	tasks := make(chan task, DefaultTaskQueueSize)

	go c.dispatch(ctx, c.in, tasks)

	done := make(chan struct{})
	for i := 0; i < c.cfg.Workers; i++ {
		go c.work(ctx, tasks, done)
	}
	for i := 0; i < c.cfg.Workers; i++ {
		<-done
	}
}

func (c *Checker) dispatch(ctx context.Context, in <-chan interface{}, tasks chan<- task) {
	defer close(tasks)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			init, ok := msg.(eventbus.InitializeTxs)
			if !ok {
				continue
			}
			for _, tx := range init.Txs {
				select {
				case tasks <- task{tx: tx, sender: init.Sender}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (c *Checker) work(ctx context.Context, tasks <-chan task, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			c.checkOne(t)
		}
	}
}

// checkOne runs both check passes for one transaction and publishes the
// outcome.
func (c *Checker) checkOne(t task) {
	if err := checkStateless(t.tx); err != nil {
		c.reject(t, err)
		return
	}
	if err := c.checkStateful(t.tx); err != nil {
		c.reject(t, err)
		return
	}

	if ann, ok := t.tx.(*yuvtx.AnnouncementTx); ok {
		c.cfg.Bus.Publish(eventbus.TopicCheckedAnnouncement, eventbus.CheckedAnnouncement{
			Txid: ann.Txid(),
		})
		return
	}

	c.cfg.Bus.Publish(eventbus.TopicCheckedTxs, eventbus.CheckedTxs{
		Txs: []yuvtx.Transaction{t.tx},
	})
}

// Emulate runs both check passes for tx without publishing any outcome,
// for the RPC surface's emulateyuvtransaction (spec.md §6): the caller
// gets a verdict against the node's current state without the
// transaction ever entering Pending.
func (c *Checker) Emulate(tx yuvtx.Transaction) error {
	if err := checkStateless(tx); err != nil {
		return err
	}
	return c.checkStateful(tx)
}

func (c *Checker) reject(t task, cause error) {
	log.Debugf("CHKR: rejecting %v from %v: %v", t.tx.Txid(), t.sender, cause)
	c.cfg.Bus.Publish(eventbus.TopicInvalidTxs, eventbus.InvalidTxs{
		TxIDs:  []chainhash.Hash{t.tx.Txid()},
		Sender: t.sender,
		Reason: cause.Error(),
	})
}
