package p2p

import (
	"sync"

	"github.com/pixelnode/pixeld/eventbus"
	"golang.org/x/time/rate"
)

// DefaultMessageRate/DefaultMessageBurst bound how fast a single peer may
// send frames before being flood-controlled (spec.md §4.9 has no explicit
// number; this is a conservative default a caller can override via
// Config.MessageRate/MessageBurst).
const (
	DefaultMessageRate  = 50 // messages/sec
	DefaultMessageBurst = 100
)

// floodControl tracks one token-bucket limiter per connected peer, so a
// single abusive peer can't starve the others or the node's own CPU budget
// decoding frames.
type floodControl struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[eventbus.PeerID]*rate.Limiter
}

func newFloodControl(perSecond float64, burst int) *floodControl {
	if perSecond <= 0 {
		perSecond = DefaultMessageRate
	}
	if burst <= 0 {
		burst = DefaultMessageBurst
	}
	return &floodControl{
		rate:     rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[eventbus.PeerID]*rate.Limiter),
	}
}

// allow reports whether peer may process one more message right now,
// lazily creating its limiter on first contact.
func (f *floodControl) allow(peer eventbus.PeerID) bool {
	f.mu.Lock()
	l, ok := f.limiters[peer]
	if !ok {
		l = rate.NewLimiter(f.rate, f.burst)
		f.limiters[peer] = l
	}
	f.mu.Unlock()
	return l.Allow()
}

// forget drops peer's limiter on disconnect.
func (f *floodControl) forget(peer eventbus.PeerID) {
	f.mu.Lock()
	delete(f.limiters, peer)
	f.mu.Unlock()
}
