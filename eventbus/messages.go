// Package eventbus implements the typed multi-producer/multi-consumer
// message bus the controller, checker, indexer, graph builder, and p2p
// layer communicate through (spec.md §2, §4.8, §5).
package eventbus

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/yuvtx"
)

// Topic names every message type the bus routes, used as the Subscribe/
// Publish key (spec.md §4.8's command table, §4.4's sub-indexer outputs,
// §4.5's confirmation-tracker outputs, §4.6's checker outcomes).
type Topic string

const (
	TopicInitializeTxs       Topic = "initialize-txs"
	TopicCheckedAnnouncement Topic = "checked-announcement"
	TopicCheckedTxs          Topic = "checked-txs"
	TopicInvalidTxs          Topic = "invalid-txs"
	TopicAttachedTxs         Topic = "attached-txs"
	TopicConfirmedTxs        Topic = "confirmed-txs"
	TopicMinedTxs            Topic = "mined-txs"
	TopicReorganization      Topic = "reorganization"
	TopicP2PInv              Topic = "p2p-inv"
	TopicP2PGetData          Topic = "p2p-getdata"
	TopicP2PYuvTx            Topic = "p2p-yuvtx"

	// The Out* topics carry the controller's outbound half of the p2p
	// command table (spec.md §4.8): the p2p layer subscribes to these and
	// turns them into wire messages, rather than the controller holding a
	// direct reference to the peer manager.
	TopicOutboundInv     Topic = "outbound-inv"
	TopicOutboundGetData Topic = "outbound-getdata"
	TopicOutboundYuvTx   Topic = "outbound-yuvtx"
	TopicBanPeer         Topic = "ban-peer"
)

// InitializeTxs carries newly extracted/submitted transactions into the
// Pending state and dispatches them to the checker (spec.md §4.8).
type InitializeTxs struct {
	Txs    []yuvtx.Transaction
	Sender PeerID // zero value if locally submitted, not received over p2p
}

// CheckedAnnouncement marks an announcement-only transaction checked and
// ready to attach (spec.md §4.6 rule 1, §4.8).
type CheckedAnnouncement struct {
	Txid chainhash.Hash
}

// CheckedTxs is the checker's positive outcome, handed to the graph
// builder (spec.md §4.6).
type CheckedTxs struct {
	Txs []yuvtx.Transaction
}

// InvalidTxs is the checker's (or graph builder's, or p2p's) negative
// outcome; Sender is non-zero when the transaction arrived over p2p and
// should be banned (spec.md §4.6, §4.8).
type InvalidTxs struct {
	TxIDs  []chainhash.Hash
	Sender PeerID
	Reason string
}

// AttachedTxs is the graph builder's topologically-ordered attachable
// batch, handed to the controller to persist (spec.md §4.7, §4.8).
type AttachedTxs struct {
	Txs []yuvtx.Transaction
}

// ConfirmedTxs/MinedTxs are the confirmation tracker's lifecycle
// advancement events (spec.md §4.5, §4.8).
type ConfirmedTxs struct {
	TxIDs []chainhash.Hash
}

type MinedTxs struct {
	TxIDs []chainhash.Hash
}

// Reorganization reports that txs were in now-orphaned blocks and that
// indexing should resume from NewIndexingHeight (spec.md §4.5, §4.8).
type Reorganization struct {
	Txs               []chainhash.Hash
	NewIndexingHeight int32
}

// PeerID identifies a p2p peer for ban/sender-tracking purposes. The p2p
// package is the only writer of non-zero values.
type PeerID uint64

// P2PInv/P2PGetData/P2PYuvTx mirror the wire messages of the same name
// (spec.md §4.9), lifted onto the bus for the controller to consume.
type P2PInv struct {
	Inv    []yuvtx.InvVect
	Sender PeerID
}

type P2PGetData struct {
	Inv    []yuvtx.InvVect
	Sender PeerID
}

type P2PYuvTx struct {
	Txs    []yuvtx.Transaction
	Sender PeerID
}

// OutboundInv is the controller's periodic inventory-sharing broadcast
// (spec.md §4.8, "Inventory sharing"); Peer is zero for "every outbound
// peer".
type OutboundInv struct {
	TxIDs []chainhash.Hash
	Peer  PeerID
}

// OutboundGetData is the controller's response to a peer's Inv announcing
// txids the node doesn't have yet.
type OutboundGetData struct {
	Inv  []yuvtx.InvVect
	Peer PeerID
}

// OutboundYuvTx is the controller's response to a peer's GetData, carrying
// only the transactions the node actually has (spec.md §4.8, "P2P(GetData)").
type OutboundYuvTx struct {
	Txs  []yuvtx.Transaction
	Peer PeerID
}

// BanPeer instructs the p2p layer to disconnect and suppress Peer
// (spec.md §4.9, "Peers that return InvalidTxs are banned").
type BanPeer struct {
	Peer   PeerID
	Reason string
}
