package p2p

import (
	"testing"

	"github.com/pixelnode/pixeld/eventbus"
	"github.com/stretchr/testify/require"
)

func TestFloodControlAllowsWithinBurst(t *testing.T) {
	f := newFloodControl(1, 5)
	const peer = eventbus.PeerID(1)

	for i := 0; i < 5; i++ {
		require.True(t, f.allow(peer), "message %d should be within burst", i)
	}
	require.False(t, f.allow(peer), "burst exhausted, should now be rate-limited")
}

func TestFloodControlTracksPeersIndependently(t *testing.T) {
	f := newFloodControl(1, 1)
	const a, b = eventbus.PeerID(1), eventbus.PeerID(2)

	require.True(t, f.allow(a))
	require.False(t, f.allow(a))
	require.True(t, f.allow(b))
}

func TestFloodControlForgetDropsLimiter(t *testing.T) {
	f := newFloodControl(1, 1)
	const peer = eventbus.PeerID(1)

	require.True(t, f.allow(peer))
	require.False(t, f.allow(peer))

	f.forget(peer)
	require.True(t, f.allow(peer), "forgetting the peer should reset its bucket")
}
