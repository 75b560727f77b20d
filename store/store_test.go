package store

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/yuvtx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(NewMemKV())
}

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return sk
}

// TestTxRoundTrip checks Put/Get/Has/Delete for an attached transaction.
func TestTxRoundTrip(t *testing.T) {
	s := newTestStore(t)
	issuer := newKey(t)
	owner := newKey(t)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(&wire.TxOut{Value: 1000, PkScript: []byte{0x00}})

	p := pixel.NewPixel(pixel.NewLuma(10), pixel.ChromaFromPublicKey(issuer.PubKey()))
	issueTx := &yuvtx.IssueTx{
		Tx: tx,
		Announcement: yuvtx.IssueAnnouncement{
			Chroma: pixel.ChromaFromPublicKey(issuer.PubKey()),
		},
		OutputProofs: yuvtx.ProofMap{
			0: &pixel.SigProof{PixelValue: p, Owner: owner.PubKey(), Sig: []byte("sig")},
		},
	}

	txid := tx.TxHash()
	require.False(t, s.HasTx(txid))

	require.NoError(t, s.PutTx(txid, issueTx))
	require.True(t, s.HasTx(txid))

	back, err := s.GetTx(txid)
	require.NoError(t, err)
	backIssue, ok := back.(*yuvtx.IssueTx)
	require.True(t, ok)
	require.Equal(t, issueTx.Announcement, backIssue.Announcement)

	require.NoError(t, s.DeleteTx(txid))
	require.False(t, s.HasTx(txid))

	_, err = s.GetTx(txid)
	require.ErrorIs(t, err, ErrNotFound)
}

// TestFreezeRoundTrip checks freeze record persistence.
func TestFreezeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	issuer := newKey(t)

	outpoint := []byte("deadbeef-outpoint-bytes")
	r := &FreezeRecord{
		Txid:   chainhash.Hash{7, 7, 7},
		Chroma: pixel.ChromaFromPublicKey(issuer.PubKey()),
	}

	_, err := s.GetFreeze(outpoint)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutFreeze(outpoint, r))
	back, err := s.GetFreeze(outpoint)
	require.NoError(t, err)
	require.Equal(t, r.Txid, back.Txid)
	require.True(t, r.Chroma.Equal(back.Chroma))

	require.NoError(t, s.DeleteFreeze(outpoint))
	_, err = s.GetFreeze(outpoint)
	require.ErrorIs(t, err, ErrNotFound)
}

// TestChromaInfoRoundTrip checks chroma aggregate persistence of the total
// supply and the optional owner script, with no announcement set.
func TestChromaInfoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	issuer := newKey(t)
	chroma := pixel.ChromaFromPublicKey(issuer.PubKey())

	ci := &ChromaInfo{
		TotalSupply: big.NewInt(10_000),
		OwnerScript: []byte{0x00, 0x14, 1, 2, 3},
	}

	require.NoError(t, s.PutChromaInfo(chroma, ci))
	back, err := s.GetChromaInfo(chroma)
	require.NoError(t, err)
	require.Equal(t, 0, ci.TotalSupply.Cmp(back.TotalSupply))
	require.Equal(t, ci.OwnerScript, back.OwnerScript)
}

// TestIndexedBlockRoundTrip checks the last-indexed-block pointer.
func TestIndexedBlockRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.IndexedBlock()
	require.ErrorIs(t, err, ErrNotFound)

	h := chainhash.Hash{1, 2, 3}
	require.NoError(t, s.SetIndexedBlock(h))

	back, err := s.IndexedBlock()
	require.NoError(t, err)
	require.Equal(t, h, back)
}

// TestInventoryFIFOEviction checks the bounded FIFO eviction behavior
// (spec.md §4.8).
func TestInventoryFIFOEviction(t *testing.T) {
	s := newTestStore(t)

	for i := byte(0); i < 5; i++ {
		require.NoError(t, s.PushInventory(chainhash.Hash{i}, 3))
	}

	list, err := s.Inventory()
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, chainhash.Hash{2}, list[0])
	require.Equal(t, chainhash.Hash{4}, list[2])
}

// TestPagination checks AppendAttached rolls over to a new page once the
// current one fills.
func TestPagination(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < PageSize+1; i++ {
		require.NoError(t, s.AppendAttached(chainhash.Hash{byte(i), byte(i >> 8)}))
	}

	n, err := s.PagesNumber()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	page0, err := s.Page(0)
	require.NoError(t, err)
	require.Len(t, page0, PageSize)

	page1, err := s.Page(1)
	require.NoError(t, err)
	require.Len(t, page1, 1)
}
