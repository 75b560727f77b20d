package p2p

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/yuvtx"
	"github.com/stretchr/testify/require"
)

func issueTxFixture(t *testing.T) *yuvtx.IssueTx {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x01}))
	var amount [16]byte
	amount[0] = 99
	return &yuvtx.IssueTx{
		Tx:           tx,
		Announcement: yuvtx.IssueAnnouncement{Chroma: pixel.ChromaFromPublicKey(sk.PubKey()), Amount: amount},
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ping := &MsgPing{Nonce: 0xdeadbeef}
	require.NoError(t, ping.Encode(&buf))

	var got MsgPing
	require.NoError(t, got.Decode(&buf))
	require.Equal(t, ping.Nonce, got.Nonce)
}

func TestYInvRoundTrip(t *testing.T) {
	var h1, h2 chainhash.Hash
	h1[0] = 0x01
	h2[0] = 0x02
	msg := &MsgYInv{Inv: []yuvtx.InvVect{yuvtx.NewInvVect(h1), yuvtx.NewInvVect(h2)}}

	var buf bytes.Buffer
	require.NoError(t, msg.Encode(&buf))

	var got MsgYInv
	require.NoError(t, got.Decode(&buf))
	require.Equal(t, msg.Inv, got.Inv)
}

func TestYGetDataRoundTripEmpty(t *testing.T) {
	msg := &MsgYGetData{}
	var buf bytes.Buffer
	require.NoError(t, msg.Encode(&buf))

	var got MsgYGetData
	require.NoError(t, got.Decode(&buf))
	require.Empty(t, got.Inv)
}

func TestYuvTxRoundTrip(t *testing.T) {
	msg := &MsgYuvTx{Txs: []yuvtx.Transaction{issueTxFixture(t)}}

	var buf bytes.Buffer
	require.NoError(t, msg.Encode(&buf))

	var got MsgYuvTx
	require.NoError(t, got.Decode(&buf))
	require.Len(t, got.Txs, 1)
	require.Equal(t, msg.Txs[0].Txid(), got.Txs[0].Txid())
}

func TestYuvTxDecodeRejectsOversizedBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteVarInt(&buf, protocolVersion, maxTxsPerMessage+1))

	var got MsgYuvTx
	require.Error(t, got.Decode(&buf))
}

func TestEmptyMessageUnknownCommand(t *testing.T) {
	require.Nil(t, emptyMessage("not-a-real-command"))
}

func TestEmptyMessageKnownCommands(t *testing.T) {
	for _, cmd := range []string{cmdYtxIDRelay, cmdYtxIDAck, cmdYInv, cmdYGetData, cmdYuvTx, cmdPing, cmdPong} {
		msg := emptyMessage(cmd)
		require.NotNil(t, msg)
		require.Equal(t, cmd, msg.Command())
	}
}
