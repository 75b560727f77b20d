package chainrpc

import (
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// rpcTxNotFoundCode is the JSON-RPC error code bitcoind/btcd return for
// "No such mempool or blockchain transaction" (and the analogous "Block
// not found"). Used to translate the underlying RPC error into
// ErrTxNotFound so callers don't need to know the wire error shape.
const rpcTxNotFoundCode = btcjson.ErrRPCNoTxInfo

// Config holds the connection parameters for a single Bitcoin RPC node.
type Config struct {
	Host         string
	User         string
	Pass         string
	HTTPPostMode bool
	DisableTLS   bool
}

// Client is the concrete Source implementation, wrapping a single
// btcsuite/btcd/rpcclient.Client connection (grounded on the
// AttestClient.MainClient field/connection idiom: one rpcclient.Client per
// node, held for the lifetime of the component that owns it).
type Client struct {
	rpc *rpcclient.Client
}

var _ Source = (*Client)(nil)

// New dials a Bitcoin RPC node per cfg. The connection is kept open until
// Close is called.
func New(cfg Config) (*Client, error) {
	rpc, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: cfg.HTTPPostMode,
		DisableTLS:   cfg.DisableTLS,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc}, nil
}

// Close shuts down the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Shutdown()
}

func (c *Client) BestHeight() (int32, error) {
	height, err := c.rpc.GetBlockCount()
	if err != nil {
		return 0, err
	}
	return int32(height), nil
}

func (c *Client) BlockHashByHeight(height int32) (*chainhash.Hash, error) {
	return c.rpc.GetBlockHash(int64(height))
}

func (c *Client) BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return c.rpc.GetBlock(hash)
}

func (c *Client) BlockHeaderByHash(hash *chainhash.Hash) (*wire.BlockHeader, error) {
	return c.rpc.GetBlockHeader(hash)
}

func (c *Client) RawTransaction(txid *chainhash.Hash) (*btcutil.Tx, error) {
	tx, err := c.rpc.GetRawTransaction(txid)
	if err != nil {
		if isTxNotFound(err) {
			return nil, ErrTxNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (c *Client) Confirmations(txid *chainhash.Hash) (int32, error) {
	result, err := c.rpc.GetRawTransactionVerbose(txid)
	if err != nil {
		if isTxNotFound(err) {
			return 0, ErrTxNotFound
		}
		return 0, err
	}
	return int32(result.Confirmations), nil
}

func (c *Client) SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error) {
	return c.rpc.SendRawTransaction(tx, false)
}

func isTxNotFound(err error) bool {
	rpcErr, ok := err.(*btcjson.RPCError)
	return ok && rpcErr.Code == rpcTxNotFoundCode
}
