// This file wires every subsystem package into one running node: the
// block loader, the two sub-indexers, the confirmation tracker, the
// checker, the graph builder, the controller, the p2p layer, and the
// RPC surface, all sharing one event bus (spec.md §2's data-flow
// diagram, §4.3-§4.9). None of the subsystem packages import this file;
// it only depends on them, the same direction a node-assembly file always
// depends on its subsystems rather than the reverse.
package pixeld

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/checker"
	"github.com/pixelnode/pixeld/config"
	"github.com/pixelnode/pixeld/confirmation"
	"github.com/pixelnode/pixeld/controller"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/graph"
	"github.com/pixelnode/pixeld/indexer/blockloader"
	"github.com/pixelnode/pixeld/indexer/subindexer"
	"github.com/pixelnode/pixeld/internal/metrics"
	"github.com/pixelnode/pixeld/p2p"
	"github.com/pixelnode/pixeld/rpc"
	"github.com/pixelnode/pixeld/store"
)

// Node assembles and runs every subsystem of spec.md §2 against one
// event bus and one storage backend.
type Node struct {
	cfg config.NodeConfig

	Store   *store.Store
	Bus     *eventbus.Bus
	Metrics *metrics.Metrics
	Source  chainrpc.Source

	Tracker    *confirmation.Tracker
	Checker    *checker.Checker
	Graph      *graph.Builder
	Controller *controller.Controller
	P2P        *p2p.Manager
	RPC        *rpc.Server

	resumeHeight chan int32
}

// NewNode builds a Node from cfg. source is the Bitcoin RPC connection
// (chainrpc.New for a live node, chainrpc.NewFake for tests); kv is the
// storage backend (store.NewMemKV for tests, boltstore.Open for a real
// node).
func NewNode(cfg config.NodeConfig, source chainrpc.Source, kv store.KV) (*Node, error) {
	st := store.New(kv)
	bus := eventbus.New()
	m := metrics.New()

	n := &Node{
		cfg:          cfg,
		Store:        st,
		Bus:          bus,
		Metrics:      m,
		Source:       source,
		resumeHeight: make(chan int32, 1),
	}

	n.Tracker = confirmation.New(confirmation.Config{
		Source:              source,
		Bus:                 bus,
		Depth:               cfg.Confirmation.Depth,
		MaxConfirmationTime: cfg.Confirmation.MaxConfirmationTime,
		CleanUpInterval:     cfg.Confirmation.CleanupInterval,
	})

	n.Checker = checker.New(checker.Config{
		Source:  source,
		Store:   st,
		Bus:     bus,
		Workers: cfg.Checker.WorkerCount,
	})

	n.Graph = graph.New(graph.Config{
		Store:         st,
		Bus:           bus,
		WaitThreshold: cfg.Graph.WaitThreshold,
	})

	n.Controller = controller.New(controller.Config{
		Store:              st,
		Bus:                bus,
		Metrics:            m,
		InvSharingInterval: cfg.Controller.InvSharingInterval,
		MaxInvSize:         cfg.Controller.MaxInvSize,
		ResumeIndexing:     n.requestResume,
		OnFatal: func(err error) {
			log.Errorf("PIXD: fatal controller error: %v", err)
		},
	})

	p2pMgr, err := p2p.New(p2p.Config{
		Magic:            netMagic(cfg.P2P),
		ListenAddrs:      cfg.P2P.ListenAddrs,
		Bootnodes:        cfg.P2P.BootNodes,
		DNSSeeds:         cfg.P2P.DNSSeeds,
		MaxInbound:       cfg.P2P.MaxInbound,
		MaxOutbound:      cfg.P2P.MaxOutbound,
		Bus:              bus,
		BanDuration:      cfg.P2P.BanDuration,
		AnnounceWindow:   cfg.P2P.InvRecentWindow,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     cfg.P2P.PingInterval,
		PingTimeout:      cfg.P2P.PingTimeout,
		DataDir:          cfg.Storage.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("p2p manager: %w", err)
	}
	n.P2P = p2pMgr

	n.RPC = rpc.New(rpc.Config{
		Addr:           cfg.RPC.ListenAddr,
		Store:          st,
		Bus:            bus,
		Status:         n.Controller,
		Check:          n.Checker,
		Source:         source,
		MaxRequestSize: cfg.RPC.MaxRequestBytes,
		MaxArrayLength: cfg.RPC.MaxArrayLen,
	})

	return n, nil
}

// netMagic picks the protocol's own network magic (spec.md §4.9) rather
// than Bitcoin's, unless the config names a custom network.
func netMagic(cfg config.P2PConfig) p2p.NetMagic {
	if cfg.CustomNetworkMagic != nil {
		return p2p.NetMagic(*cfg.CustomNetworkMagic)
	}
	switch cfg.NetParams.Net {
	case chaincfg.TestNet3Params.Net:
		return p2p.MagicTestNet
	case chaincfg.RegressionNetParams.Net:
		return p2p.MagicRegtest
	default:
		return p2p.MagicMainNet
	}
}

// requestResume is Controller.Config's ResumeIndexing hook: the
// controller has no direct handle on the block loader, so it reports the
// post-reorg resume height back here, and runIndexing's select picks it
// up on its next iteration (spec.md §4.8, "instruct the indexer to
// resume from new_indexing_height").
func (n *Node) requestResume(height int32) {
	select {
	case n.resumeHeight <- height:
	default:
		// A resume is already pending; the older one hasn't been
		// picked up yet, and the newer height always supersedes it
		// once it is (reorgs only move the resume point; a second one
		// arriving before runIndexing wakes up just means it should
		// jump straight to the latest).
		select {
		case <-n.resumeHeight:
		default:
		}
		n.resumeHeight <- height
	}
}

// Run starts every subsystem's Run loop and the block-loader-driven
// indexing pipeline, and blocks until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	go n.Tracker.Run(ctx)
	go n.Checker.Run(ctx)
	go n.Graph.Run(ctx)
	go n.Controller.Run(ctx)

	errCh := make(chan error, 2)
	go func() { errCh <- n.P2P.Run(ctx) }()
	go func() { errCh <- n.RPC.Run(ctx) }()

	go n.runIndexing(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// runIndexing drives indexer/blockloader.Loader and, for each loaded
// block, feeds both sub-indexers and the confirmation tracker, observing
// spec.md §5's ordering invariant: "within one block, announcement
// extraction precedes confirmation notification". It restarts the loader
// from whatever height requestResume last reported whenever a resume is
// pending, and otherwise re-polls from the tip once a run finishes.
func (n *Node) runIndexing(ctx context.Context) {
	// cfg.Indexer.StartHeight is the configured resume point. Store.
	// IndexedBlock persists the last processed hash for external
	// inspection, but chainrpc.Source has no height-by-hash lookup, so
	// recovering a height from it after a restart isn't possible here —
	// the caller (cmd/pixeld) is expected to pass the right StartHeight
	// on its next launch.
	height := n.cfg.Indexer.StartHeight

	loader := blockloader.New(blockloader.Config{
		Source:        n.Source,
		ChunkSize:     n.cfg.Indexer.ChunkSize,
		WorkerCount:   n.cfg.Indexer.WorkerCount,
		Confirmations: n.cfg.Indexer.ConfirmationDepth,
		RetryBackoff:  n.cfg.Indexer.RateLimitBackoff,
	})

	var prevHash chainhash.Hash

	for {
		select {
		case <-ctx.Done():
			return
		case h := <-n.resumeHeight:
			height = h
			prevHash = chainhash.Hash{}
		default:
		}

		results, err := loader.Run(ctx, height)
		if err != nil {
			log.Errorf("PIXD: block loader: %v", err)
			if !sleep(ctx, n.cfg.Indexer.PollInterval) {
				return
			}
			continue
		}

		cancelled := n.drainResults(ctx, results, &height, &prevHash)
		if cancelled {
			return
		}

		select {
		case <-ctx.Done():
			return
		case h := <-n.resumeHeight:
			height = h
			prevHash = chainhash.Hash{}
		case <-time.After(n.cfg.Indexer.PollInterval):
		}
	}
}

// drainResults consumes one Loader.Run's output channel to completion,
// advancing height/prevHash as blocks arrive. It returns true if the run
// ended via Cancelled (ctx done) rather than Finished.
func (n *Node) drainResults(ctx context.Context, results <-chan blockloader.Result, height *int32, prevHash *chainhash.Hash) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case res, ok := <-results:
			if !ok {
				return false
			}
			for _, lb := range res.Blocks {
				anns := subindexer.IndexAnnouncements(lb.Block, uint32(lb.Height))
				if len(anns) > 0 {
					n.Bus.Publish(eventbus.TopicInitializeTxs, eventbus.InitializeTxs{Txs: anns})
				}

				ids := subindexer.ConfirmedTxIds(lb.Block)
				if err := n.Tracker.NewBlock(confirmation.BlockSummary{
					Height:   lb.Height,
					Hash:     lb.Hash,
					PrevHash: *prevHash,
					TxIDs:    ids,
				}); err != nil {
					log.Errorf("PIXD: confirmation tracker: %v", err)
				}

				if err := n.Store.SetIndexedBlock(lb.Hash); err != nil {
					log.Errorf("PIXD: persisting indexed block: %v", err)
				}

				*prevHash = lb.Hash
				*height = lb.Height + 1
			}
			if res.Cancelled {
				return true
			}
			if res.Finished {
				return false
			}
		}
	}
}

// sleep waits d or until ctx is cancelled, reporting which happened.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
