package graph

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, waitThreshold time.Duration) (*Builder, *store.Store, *eventbus.Bus, *clock.TestClock) {
	t.Helper()
	st := store.New(store.NewMemKV())
	bus := eventbus.New()
	testClock := clock.NewTestClock(time.Unix(0, 0))

	b := New(Config{
		Store:           st,
		Bus:             bus,
		WaitThreshold:   waitThreshold,
		CleanUpInterval: time.Hour,
		Clock:           testClock,
		Ticker:          ticker.NewTestTicker(time.Hour),
	})
	return b, st, bus, testClock
}

// issueTx builds a minimal IssueTx whose txid is derived from seed and
// which has no parents.
func issueTx(seed byte) *yuvtx.IssueTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(int64(seed), []byte{seed}))
	return &yuvtx.IssueTx{Tx: tx}
}

// transferTx builds a minimal TransferTx spending one input per parent,
// with seed folded into an output to keep the txid distinct from its
// siblings.
func transferTx(seed byte, parents ...chainhash.Hash) *yuvtx.TransferTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	proofs := make(yuvtx.ProofMap)
	for i, p := range parents {
		tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: p, Index: 0}})
		proofs[uint32(i)] = nil
	}
	tx.AddTxOut(wire.NewTxOut(int64(seed), []byte{seed}))
	return &yuvtx.TransferTx{Tx: tx, InputProofs: proofs, OutputProofs: yuvtx.ProofMap{0: nil}}
}

func TestProcessAttachesIssueImmediately(t *testing.T) {
	b, _, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	tx := issueTx(1)
	b.Process([]yuvtx.Transaction{tx})

	msg := (<-ch).(eventbus.AttachedTxs)
	require.Len(t, msg.Txs, 1)
	require.Equal(t, tx.Txid(), msg.Txs[0].Txid())
	require.False(t, b.Waiting(tx.Txid()))
}

func TestProcessAttachesChainInOneBatch(t *testing.T) {
	b, _, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	parent := issueTx(1)
	child := transferTx(2, parent.Txid())

	// Child appears before its parent in the batch; the builder must
	// still emit parent before child (rule 4, topological order).
	b.Process([]yuvtx.Transaction{child, parent})

	msg := (<-ch).(eventbus.AttachedTxs)
	require.Len(t, msg.Txs, 2)
	require.Equal(t, parent.Txid(), msg.Txs[0].Txid())
	require.Equal(t, child.Txid(), msg.Txs[1].Txid())
}

func TestProcessParksTxWithMissingParent(t *testing.T) {
	b, _, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	missingParent := hashAt(9)
	child := transferTx(1, missingParent)

	b.Process([]yuvtx.Transaction{child})

	select {
	case <-ch:
		t.Fatal("child should not have attached: its parent was never seen")
	default:
	}
	require.True(t, b.Waiting(child.Txid()))
}

func TestCascadeAttachesWaitingChildOnceParentArrivesLater(t *testing.T) {
	b, _, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	parent := issueTx(1)
	child := transferTx(2, parent.Txid())

	b.Process([]yuvtx.Transaction{child})
	require.True(t, b.Waiting(child.Txid()))

	b.Process([]yuvtx.Transaction{parent})

	msg := (<-ch).(eventbus.AttachedTxs)
	require.Len(t, msg.Txs, 2)
	require.Equal(t, parent.Txid(), msg.Txs[0].Txid())
	require.Equal(t, child.Txid(), msg.Txs[1].Txid())
	require.False(t, b.Waiting(child.Txid()))
}

func TestCascadeWaitsForAllParentsBeforeAttaching(t *testing.T) {
	b, _, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	parentA := issueTx(1)
	parentB := issueTx(2)
	child := transferTx(3, parentA.Txid(), parentB.Txid())

	b.Process([]yuvtx.Transaction{child, parentA})

	msg := (<-ch).(eventbus.AttachedTxs)
	require.Len(t, msg.Txs, 1)
	require.Equal(t, parentA.Txid(), msg.Txs[0].Txid())
	require.True(t, b.Waiting(child.Txid()), "child still owes parentB")

	b.Process([]yuvtx.Transaction{parentB})

	msg2 := (<-ch).(eventbus.AttachedTxs)
	require.Len(t, msg2.Txs, 2)
	require.Equal(t, parentB.Txid(), msg2.Txs[0].Txid())
	require.Equal(t, child.Txid(), msg2.Txs[1].Txid())
	require.False(t, b.Waiting(child.Txid()))
}

func TestParentAlreadyInStoreAttachesImmediately(t *testing.T) {
	b, st, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	parent := issueTx(1)
	require.NoError(t, st.PutTx(parent.Txid(), parent))

	child := transferTx(2, parent.Txid())
	b.Process([]yuvtx.Transaction{child})

	msg := (<-ch).(eventbus.AttachedTxs)
	require.Len(t, msg.Txs, 1)
	require.Equal(t, child.Txid(), msg.Txs[0].Txid())
}

func TestCleanUpDiscardsStaleWaitingAndPublishesInvalid(t *testing.T) {
	b, _, bus, testClock := newTestBuilder(t, time.Minute)
	invalidCh := bus.Subscribe(eventbus.TopicInvalidTxs)

	missingParent := hashAt(9)
	child := transferTx(1, missingParent)
	b.Process([]yuvtx.Transaction{child})
	require.True(t, b.Waiting(child.Txid()))

	testClock.SetTime(time.Unix(0, 0).Add(2 * time.Minute))
	b.CleanUp()

	msg := (<-invalidCh).(eventbus.InvalidTxs)
	require.Equal(t, []chainhash.Hash{child.Txid()}, msg.TxIDs)
	require.Equal(t, ErrStaleWaitEntry.Error(), msg.Reason)
	require.False(t, b.Waiting(child.Txid()))
}

func TestCleanUpKeepsFreshWaitingEntries(t *testing.T) {
	b, _, _, testClock := newTestBuilder(t, time.Minute)

	missingParent := hashAt(9)
	child := transferTx(1, missingParent)
	b.Process([]yuvtx.Transaction{child})

	testClock.SetTime(time.Unix(0, 0).Add(30 * time.Second))
	b.CleanUp()

	require.True(t, b.Waiting(child.Txid()))
}

func TestUndoScrubsAttachedCacheOnReorg(t *testing.T) {
	b, _, bus, _ := newTestBuilder(t, time.Hour)
	ch := bus.Subscribe(eventbus.TopicAttachedTxs)

	parent := issueTx(1)
	b.Process([]yuvtx.Transaction{parent})
	<-ch

	b.undo([]chainhash.Hash{parent.Txid()})

	// A transfer spending the now-reorged-out parent must wait again:
	// the in-memory attached marker was scrubbed and the store never
	// had the parent persisted in this test, so it's treated as missing.
	child := transferTx(2, parent.Txid())
	b.Process([]yuvtx.Transaction{child})
	require.True(t, b.Waiting(child.Txid()))
}

func hashAt(n byte) chainhash.Hash {
	return chainhash.Hash{n}
}
