package subindexer

import (
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/yuvtx"
	"github.com/stretchr/testify/require"
)

func coinbaseTx() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: math.MaxUint32},
	})
	tx.AddTxOut(&wire.TxOut{Value: 5000000000})
	return tx
}

func announcementTx(t *testing.T) *wire.MsgTx {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	chroma := pixel.ChromaFromPublicKey(sk.PubKey())

	script, err := announcement.Encode(&announcement.Issue{
		Chroma: chroma,
		Amount: [16]byte{1},
	})
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{9}, Index: 0}})
	tx.AddTxOut(&wire.TxOut{Value: 0, PkScript: script})
	return tx
}

func TestIndexAnnouncementsSkipsCoinbase(t *testing.T) {
	cb := coinbaseTx()
	ann := announcementTx(t)

	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{cb, ann}}

	txs := IndexAnnouncements(block, 0)
	require.Len(t, txs, 1)
	require.Equal(t, ann.TxHash(), txs[0].Txid())
}

func TestIndexAnnouncementsDropsBelowMinHeight(t *testing.T) {
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	chroma := pixel.ChromaFromPublicKey(sk.PubKey())

	script, err := announcement.Encode(&announcement.Freeze{
		Outpoint:       announcement.FreezeOutpoint{Hash: chainhash.Hash{1}, Index: 0},
		Chroma:         chroma,
		MinHeightValue: 100,
	})
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{2}}})
	tx.AddTxOut(&wire.TxOut{PkScript: script})

	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}

	require.Empty(t, IndexAnnouncements(block, 50))

	txs := IndexAnnouncements(block, 100)
	require.Len(t, txs, 1)
	_, ok := txs[0].(*yuvtx.AnnouncementTx)
	require.True(t, ok)
}

func TestIndexAnnouncementsIgnoresNonAnnouncementOutputs(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{3}}})
	tx.AddTxOut(&wire.TxOut{PkScript: []byte{0x00, 0x14}})

	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}
	require.Empty(t, IndexAnnouncements(block, 0))
}

func TestConfirmedTxIds(t *testing.T) {
	tx1 := coinbaseTx()
	tx2 := announcementTx(t)
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx1, tx2}}

	ids := ConfirmedTxIds(block)
	require.Equal(t, []chainhash.Hash{tx1.TxHash(), tx2.TxHash()}, ids)
}
