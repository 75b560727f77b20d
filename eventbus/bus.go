package eventbus

import (
	"sync"

	"github.com/lightningnetwork/lnd/queue"
)

// DefaultSubscriberCapacity is the buffer size of each subscriber queue's
// input and output channels. Messages beyond it go to the queue's unbounded
// internal overflow list, so Publish does not block on a slow subscriber
// and a subscriber's backlog has no upper bound.
const DefaultSubscriberCapacity = 1000

// subscriber wraps the concurrent queue backing a single Subscribe call.
// queue.ConcurrentQueue decouples Publish (writes to ChanIn) from the
// consumer's read rate (ChanOut) with its own internal unbounded buffer, so
// a slow subscriber never stalls Publish for every other subscriber of the
// same topic.
type subscriber struct {
	q *queue.ConcurrentQueue
}

// Bus is the typed multi-producer/multi-consumer message bus the indexer,
// checker, graph builder, confirmation tracker, controller, and p2p layer
// publish and subscribe through (spec.md §2, §4.8, §5). Each Topic fans out
// to every subscriber registered for it; each subscriber gets its own
// queue so one laggard can't starve the others.
type Bus struct {
	mu          sync.Mutex
	subscribers map[Topic][]*subscriber
	stopped     bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[Topic][]*subscriber),
	}
}

// Subscribe registers a new listener for topic and returns the channel it
// will receive messages on. The channel is closed when Stop is called.
func (b *Bus) Subscribe(topic Topic) <-chan interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := queue.NewConcurrentQueue(DefaultSubscriberCapacity)
	q.Start()

	sub := &subscriber{q: q}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	return q.ChanOut()
}

// Publish fans msg out to every subscriber currently registered for topic.
// It is safe to call from any goroutine and never blocks past a single
// subscriber's internal queue.
func (b *Bus) Publish(topic Topic, msg interface{}) {
	b.mu.Lock()
	subs := append([]*subscriber(nil), b.subscribers[topic]...)
	stopped := b.stopped
	b.mu.Unlock()

	if stopped {
		return
	}

	for _, sub := range subs {
		sub.q.ChanIn() <- msg
	}
}

// Stop shuts down every subscriber queue and closes their output channels.
// The bus must not be used after Stop returns.
func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.stopped = true

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			sub.q.Stop()
		}
	}
}
