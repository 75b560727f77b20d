package p2p

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/stretchr/testify/require"
)

func TestInvManagerWasAnnouncedToWithinWindow(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	m := newInvManager(time.Minute, c)

	var txid chainhash.Hash
	txid[0] = 0x01
	const peer = eventbus.PeerID(1)

	require.False(t, m.wasAnnouncedTo(peer, txid))

	m.announced(peer, []chainhash.Hash{txid})
	require.True(t, m.wasAnnouncedTo(peer, txid))

	c.SetTime(time.Unix(0, 0).Add(2 * time.Minute))
	require.False(t, m.wasAnnouncedTo(peer, txid))
}

func TestInvManagerReceivedTracksKnownFrom(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	m := newInvManager(time.Minute, c)

	var txid chainhash.Hash
	txid[0] = 0x02
	const peer = eventbus.PeerID(7)

	require.False(t, m.alreadyKnownFrom(peer, txid))
	m.received(peer, []chainhash.Hash{txid})
	require.True(t, m.alreadyKnownFrom(peer, txid))
}

func TestInvManagerPeerDisconnectedClearsState(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	m := newInvManager(time.Minute, c)

	var txid chainhash.Hash
	txid[0] = 0x03
	const peer = eventbus.PeerID(3)

	m.announced(peer, []chainhash.Hash{txid})
	m.received(peer, []chainhash.Hash{txid})
	m.peerDisconnected(peer)

	require.False(t, m.wasAnnouncedTo(peer, txid))
	require.False(t, m.alreadyKnownFrom(peer, txid))
}

func TestInvManagerSweepDropsExpired(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	m := newInvManager(time.Minute, c)

	var txid chainhash.Hash
	txid[0] = 0x04
	const peer = eventbus.PeerID(9)

	m.announced(peer, []chainhash.Hash{txid})
	c.SetTime(time.Unix(0, 0).Add(2 * time.Minute))
	m.sweep()

	m.mu.Lock()
	_, ok := m.announcedTo[peer]
	m.mu.Unlock()
	require.False(t, ok)
}
