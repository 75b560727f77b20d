package p2p

import (
	"net"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// DefaultBanDuration is how long an address stays suppressed after a ban
// (spec.md §4.9: "ban is an immediate disconnect plus address-book
// suppression").
const DefaultBanDuration = 24 * time.Hour

// banList is the mutex-guarded, clock-driven ban table, grounded on
// crates/p2p/src/common/time.rs's interior-mutability clock wrapper —
// generalized here from that file's peer-time-offset bookkeeping to this
// protocol's own ban-expiry bookkeeping, using the same mockable-clock
// idiom (lnd/clock) the confirmation tracker and graph builder already
// use, rather than reading real wall-clock time directly.
type banList struct {
	duration time.Duration
	clock    clock.Clock

	mu      sync.Mutex
	bans    map[string]time.Time // addr -> ban expiry
	reasons map[string]string
}

func newBanList(duration time.Duration, c clock.Clock) *banList {
	if duration <= 0 {
		duration = DefaultBanDuration
	}
	if c == nil {
		c = clock.NewDefaultClock()
	}
	return &banList{
		duration: duration,
		clock:    c,
		bans:     make(map[string]time.Time),
		reasons:  make(map[string]string),
	}
}

func normalizeAddr(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// ban suppresses addr until the configured duration elapses.
func (b *banList) ban(addr net.Addr, reason string) {
	key := normalizeAddr(addr)
	if key == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bans[key] = b.clock.Now().Add(b.duration)
	b.reasons[key] = reason
}

// isBanned reports whether addr is currently suppressed.
func (b *banList) isBanned(addr net.Addr) bool {
	key := normalizeAddr(addr)
	if key == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.bans[key]
	if !ok {
		return false
	}
	if b.clock.Now().After(expiry) {
		delete(b.bans, key)
		delete(b.reasons, key)
		return false
	}
	return true
}

// sweep drops every expired ban, bounding the table's size across a
// long-running node.
func (b *banList) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	for key, expiry := range b.bans {
		if now.After(expiry) {
			delete(b.bans, key)
			delete(b.reasons, key)
		}
	}
}
