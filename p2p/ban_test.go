package p2p

import (
	"net"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func TestBanListBanAndExpire(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	b := newBanList(time.Minute, c)
	addr := &net.TCPAddr{IP: net.ParseIP("203.0.113.5"), Port: 8333}

	require.False(t, b.isBanned(addr))

	b.ban(addr, "sent invalid transaction")
	require.True(t, b.isBanned(addr))

	c.SetTime(time.Unix(0, 0).Add(2 * time.Minute))
	require.False(t, b.isBanned(addr))
}

func TestBanListIgnoresPort(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	b := newBanList(time.Minute, c)

	b.ban(&net.TCPAddr{IP: net.ParseIP("203.0.113.5"), Port: 8333}, "flood")
	require.True(t, b.isBanned(&net.TCPAddr{IP: net.ParseIP("203.0.113.5"), Port: 40000}))
}

func TestBanListSweepDropsExpired(t *testing.T) {
	c := clock.NewTestClock(time.Unix(0, 0))
	b := newBanList(time.Minute, c)
	addr := &net.TCPAddr{IP: net.ParseIP("198.51.100.9"), Port: 8333}

	b.ban(addr, "bad proof")
	c.SetTime(time.Unix(0, 0).Add(2 * time.Minute))
	b.sweep()

	b.mu.Lock()
	_, ok := b.bans[normalizeAddr(addr)]
	b.mu.Unlock()
	require.False(t, ok)
}
