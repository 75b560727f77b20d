// Package chainrpc wraps the Bitcoin RPC connection the block loader,
// confirmation tracker, and checker query against. The interface is kept
// narrow and query-only (a "Queryable" abstraction over the node, not a
// wallet or miner control surface) so every consumer can depend on it
// without pulling in the block loader's bulk-fetch machinery.
package chainrpc

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Source is the read-only Bitcoin RPC surface the indexer, confirmation
// tracker, and checker depend on. It is satisfied by *Client and by a
// fake in tests.
type Source interface {
	// BestHeight returns the node's current best block height.
	BestHeight() (int32, error)

	// BlockHashByHeight returns the hash of the block at height on the
	// node's currently-best chain.
	BlockHashByHeight(height int32) (*chainhash.Hash, error)

	// BlockByHash fetches the full block identified by hash.
	BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, error)

	// BlockHeaderByHash fetches only the header, used while walking a
	// reorg backwards without paying for full block bodies.
	BlockHeaderByHash(hash *chainhash.Hash) (*wire.BlockHeader, error)

	// RawTransaction fetches a transaction by txid, searching the
	// mempool and, when the node has txindex enabled, the chain.
	RawTransaction(txid *chainhash.Hash) (*btcutil.Tx, error)

	// Confirmations returns the number of confirmations txid currently
	// has (0 if unconfirmed, and ErrTxNotFound if the node has no
	// knowledge of it at all).
	Confirmations(txid *chainhash.Hash) (int32, error)

	// SendRawTransaction broadcasts tx to the network.
	SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error)
}
