package p2p

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pixelnode/pixeld/eventbus"
)

// DefaultHandshakeTimeout/DefaultPingInterval/DefaultPingTimeout implement
// spec.md §4.9's "Ping/pong keepalive with timeout eviction".
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 2 * time.Minute
	DefaultPingTimeout      = 30 * time.Second
)

// peer wraps one negotiated connection: a read loop decoding frames, a
// write loop serializing outbound messages off a buffered channel (so a
// slow peer's socket write never blocks the component that queued the
// message), and a ping/pong keepalive.
type peer struct {
	id      eventbus.PeerID
	conn    net.Conn
	addr    net.Addr
	inbound bool
	magic   NetMagic

	sendCh chan Message
	quit   chan struct{}
	once   sync.Once

	lastPongAt time.Time
	mu         sync.Mutex
}

func newPeer(id eventbus.PeerID, conn net.Conn, inbound bool, magic NetMagic) *peer {
	return &peer{
		id:      id,
		conn:    conn,
		addr:    conn.RemoteAddr(),
		inbound: inbound,
		magic:   magic,
		sendCh:  make(chan Message, 100),
		quit:    make(chan struct{}),
	}
}

// send queues msg for the write loop, dropping it (rather than blocking
// the caller) if the peer's outbound buffer is already full — a stalled
// peer backpressures onto its own queue, never onto the controller.
func (p *peer) send(msg Message) {
	select {
	case p.sendCh <- msg:
	case <-p.quit:
	default:
		log.Warnf("PEER: %v outbound queue full, dropping %s", p.id, msg.Command())
	}
}

// close shuts the connection and signals both loops to exit. Safe to call
// more than once or concurrently.
func (p *peer) close() {
	p.once.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

// writeLoop drains sendCh onto the wire until quit fires.
func (p *peer) writeLoop() {
	for {
		select {
		case <-p.quit:
			return
		case msg := <-p.sendCh:
			if err := WriteMessage(p.conn, p.magic, msg); err != nil {
				log.Errorf("PEER: %v write %s: %v", p.id, msg.Command(), err)
				p.close()
				return
			}
		}
	}
}

// readLoop decodes frames until quit fires or the connection errors, and
// is fed into handle for every decoded message.
func (p *peer) readLoop(handle func(*peer, Message)) {
	for {
		msg, err := ReadMessage(p.conn, p.magic)
		if err != nil {
			select {
			case <-p.quit:
			default:
				log.Debugf("PEER: %v read: %v", p.id, err)
			}
			p.close()
			return
		}
		handle(p, msg)
	}
}

// recordPong updates the last-seen-alive timestamp.
func (p *peer) recordPong(now time.Time) {
	p.mu.Lock()
	p.lastPongAt = now
	p.mu.Unlock()
}

// silentFor reports how long it's been since the last pong, for the
// keepalive loop's timeout-eviction check.
func (p *peer) silentFor(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastPongAt.IsZero() {
		return 0
	}
	return now.Sub(p.lastPongAt)
}

// handshake performs the opt-in protocol negotiation of spec.md §4.9: an
// outbound peer sends MsgYtxIDRelay and must receive MsgYtxIDAck back (or
// vice versa for an inbound connection) before any other traffic is
// trusted.
func handshake(p *peer, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	p.conn.SetDeadline(time.Now().Add(timeout))
	defer p.conn.SetDeadline(time.Time{})

	if p.inbound {
		msg, err := ReadMessage(p.conn, p.magic)
		if err != nil {
			return fmt.Errorf("p2p: %w: %v", ErrHandshakeTimeout, err)
		}
		if _, ok := msg.(*MsgYtxIDRelay); !ok {
			return fmt.Errorf("p2p: expected ytxidrelay, got %s", msg.Command())
		}
		return WriteMessage(p.conn, p.magic, &MsgYtxIDAck{})
	}

	if err := WriteMessage(p.conn, p.magic, &MsgYtxIDRelay{}); err != nil {
		return err
	}
	msg, err := ReadMessage(p.conn, p.magic)
	if err != nil {
		return fmt.Errorf("p2p: %w: %v", ErrHandshakeTimeout, err)
	}
	if _, ok := msg.(*MsgYtxIDAck); !ok {
		return fmt.Errorf("p2p: expected ytxidack, got %s", msg.Command())
	}
	return nil
}
