package chainrpc

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Fake is an in-memory Source for tests: the block loader, confirmation
// tracker, and checker test suites populate it directly instead of
// standing up a real Bitcoin node.
type Fake struct {
	Blocks        map[int32]*wire.MsgBlock
	Txs           map[chainhash.Hash]*btcutil.Tx
	Confs         map[chainhash.Hash]int32
	Sent          []*wire.MsgTx
	FailHeights   map[int32]error
	FailOnce      map[int32]bool
	BestHeightVal int32
}

var _ Source = (*Fake)(nil)

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Blocks:      make(map[int32]*wire.MsgBlock),
		Txs:         make(map[chainhash.Hash]*btcutil.Tx),
		Confs:       make(map[chainhash.Hash]int32),
		FailHeights: make(map[int32]error),
		FailOnce:    make(map[int32]bool),
	}
}

// PutBlock registers a block at height, usable via BlockByHash/
// BlockHashByHeight/BlockHeaderByHash.
func (f *Fake) PutBlock(height int32, block *wire.MsgBlock) {
	f.Blocks[height] = block
	if height > f.BestHeightVal {
		f.BestHeightVal = height
	}
}

func (f *Fake) heightForHash(hash chainhash.Hash) (int32, bool) {
	for h, b := range f.Blocks {
		if b.BlockHash() == hash {
			return h, true
		}
	}
	return 0, false
}

func (f *Fake) BestHeight() (int32, error) {
	return f.BestHeightVal, nil
}

func (f *Fake) BlockHashByHeight(height int32) (*chainhash.Hash, error) {
	if err := f.FailHeights[height]; err != nil && f.consumeFail(height) {
		return nil, err
	}
	b, ok := f.Blocks[height]
	if !ok {
		return nil, ErrTxNotFound
	}
	hash := b.BlockHash()
	return &hash, nil
}

func (f *Fake) BlockByHash(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	height, ok := f.heightForHash(*hash)
	if !ok {
		return nil, ErrTxNotFound
	}
	if err := f.FailHeights[height]; err != nil && f.consumeFail(height) {
		return nil, err
	}
	return f.Blocks[height], nil
}

func (f *Fake) BlockHeaderByHash(hash *chainhash.Hash) (*wire.BlockHeader, error) {
	block, err := f.BlockByHash(hash)
	if err != nil {
		return nil, err
	}
	return &block.Header, nil
}

func (f *Fake) RawTransaction(txid *chainhash.Hash) (*btcutil.Tx, error) {
	tx, ok := f.Txs[*txid]
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

func (f *Fake) Confirmations(txid *chainhash.Hash) (int32, error) {
	c, ok := f.Confs[*txid]
	if !ok {
		return 0, ErrTxNotFound
	}
	return c, nil
}

func (f *Fake) SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error) {
	f.Sent = append(f.Sent, tx)
	hash := tx.TxHash()
	return &hash, nil
}

func (f *Fake) consumeFail(height int32) bool {
	if !f.FailOnce[height] {
		return true
	}
	delete(f.FailHeights, height)
	delete(f.FailOnce, height)
	return true
}

// Heights returns every populated block height in ascending order.
func (f *Fake) Heights() []int32 {
	heights := make([]int32, 0, len(f.Blocks))
	for h := range f.Blocks {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}
