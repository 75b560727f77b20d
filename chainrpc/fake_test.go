package chainrpc

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestFakeBlockLookup(t *testing.T) {
	f := NewFake()
	block := &wire.MsgBlock{Header: wire.BlockHeader{Nonce: 1}}
	f.PutBlock(100, block)

	height, err := f.BestHeight()
	require.NoError(t, err)
	require.Equal(t, int32(100), height)

	hash, err := f.BlockHashByHeight(100)
	require.NoError(t, err)
	require.Equal(t, block.BlockHash(), *hash)

	back, err := f.BlockByHash(hash)
	require.NoError(t, err)
	require.Equal(t, block, back)

	_, err = f.BlockHashByHeight(999)
	require.ErrorIs(t, err, ErrTxNotFound)
}

func TestFakeSendRawTransaction(t *testing.T) {
	f := NewFake()
	tx := wire.NewMsgTx(wire.TxVersion)
	hash, err := f.SendRawTransaction(tx)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), *hash)
	require.Len(t, f.Sent, 1)
}

func TestFakeConfirmationsNotFound(t *testing.T) {
	f := NewFake()
	txid := wire.NewMsgTx(wire.TxVersion).TxHash()
	_, err := f.Confirmations(&txid)
	require.ErrorIs(t, err, ErrTxNotFound)

	f.Confs[txid] = 6
	confs, err := f.Confirmations(&txid)
	require.NoError(t, err)
	require.Equal(t, int32(6), confs)
}
