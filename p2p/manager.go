package p2p

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/addrmgr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/connmgr"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/yuvtx"
)

// Config wires the peer manager's dependencies (spec.md §4.9).
type Config struct {
	Magic       NetMagic
	ListenAddrs []string
	Bootnodes   []string
	DNSSeeds    []string
	DefaultPort uint16

	MaxInbound  int
	MaxOutbound int

	Bus   *eventbus.Bus
	Clock clock.Clock

	BanDuration      time.Duration
	AnnounceWindow   time.Duration
	MessageRate      float64
	MessageBurst     int
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PingTimeout      time.Duration

	// DataDir backs the address manager's persisted peers.json, matching
	// btcd's own addrmgr.New convention.
	DataDir string
}

const (
	DefaultMaxInbound  = 40
	DefaultMaxOutbound = 8
)

// Manager is the peer manager of spec.md §4.9: dials bootnodes and
// DNS-seed/addr-learned peers up to configured outbound/inbound slot
// counts, negotiates the protocol handshake, applies ban policy and flood
// control, and bridges decoded wire traffic onto the event bus (and the
// bus's Outbound*/BanPeer topics back onto the wire).
type Manager struct {
	cfg Config

	addrs *addrmgr.AddrManager
	conns *connmgr.ConnManager
	bans  *banList
	inv   *invManager
	flood *floodControl

	listeners []net.Listener

	mu         sync.Mutex
	peers      map[eventbus.PeerID]*peer
	inboundN   int32
	outboundN  int32
	nextPeerID uint64

	outboundInvIn     <-chan interface{}
	outboundGetDataIn <-chan interface{}
	outboundYuvTxIn   <-chan interface{}
	banPeerIn         <-chan interface{}
}

// New builds a Manager and subscribes it to the controller's outbound
// topics right away (the same eager-subscribe idiom checker.New,
// graph.New, and controller.New already use), so a message published
// before Run's goroutine starts is never lost.
func New(cfg Config) (*Manager, error) {
	if cfg.MaxInbound <= 0 {
		cfg.MaxInbound = DefaultMaxInbound
	}
	if cfg.MaxOutbound <= 0 {
		cfg.MaxOutbound = DefaultMaxOutbound
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	am := addrmgr.New(cfg.DataDir, net.LookupIP)

	m := &Manager{
		cfg:               cfg,
		addrs:             am,
		bans:              newBanList(cfg.BanDuration, cfg.Clock),
		inv:               newInvManager(cfg.AnnounceWindow, cfg.Clock),
		flood:             newFloodControl(cfg.MessageRate, cfg.MessageBurst),
		peers:             make(map[eventbus.PeerID]*peer),
		outboundInvIn:     cfg.Bus.Subscribe(eventbus.TopicOutboundInv),
		outboundGetDataIn: cfg.Bus.Subscribe(eventbus.TopicOutboundGetData),
		outboundYuvTxIn:   cfg.Bus.Subscribe(eventbus.TopicOutboundYuvTx),
		banPeerIn:         cfg.Bus.Subscribe(eventbus.TopicBanPeer),
	}

	cm, err := connmgr.New(&connmgr.Config{
		TargetOutbound:  uint32(cfg.MaxOutbound),
		RetryDuration:   10 * time.Second,
		Dial:            m.dial,
		OnConnection:    m.onOutboundConnection,
		OnDisconnection: m.onOutboundDisconnection,
		GetNewAddress:   m.getNewAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("p2p: connmgr: %w", err)
	}
	m.conns = cm

	return m, nil
}

func (m *Manager) dial(addr net.Addr) (net.Conn, error) {
	if m.bans.isBanned(addr) {
		return nil, ErrPeerBanned
	}
	return net.DialTimeout(addr.Network(), addr.String(), 10*time.Second)
}

func (m *Manager) getNewAddress() (net.Addr, error) {
	ka := m.addrs.GetAddress()
	if ka == nil {
		return nil, fmt.Errorf("p2p: no addresses available")
	}
	na := ka.NetAddress()
	return &net.TCPAddr{IP: na.IP, Port: int(na.Port)}, nil
}

// Run starts listeners, seeds the address manager from bootnodes and DNS
// seeds, starts the connection manager, and drives the event-bus bridge
// until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.addrs.Start()
	defer m.addrs.Stop()

	m.seedBootnodes()
	if len(m.cfg.DNSSeeds) > 0 {
		m.seedDNS()
	}

	for _, addr := range m.cfg.ListenAddrs {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("p2p: listen %s: %w", addr, err)
		}
		m.listeners = append(m.listeners, ln)
		go m.acceptLoop(ln)
	}
	defer func() {
		for _, ln := range m.listeners {
			ln.Close()
		}
	}()

	m.conns.Start()
	defer m.conns.Stop()

	keepalive := time.NewTicker(pingIntervalOrDefault(m.cfg.PingInterval))
	defer keepalive.Stop()
	sweepTick := time.NewTicker(time.Minute)
	defer sweepTick.Stop()

	for {
		select {
		case <-ctx.Done():
			m.disconnectAll()
			return nil

		case msg, ok := <-m.outboundInvIn:
			if !ok {
				return nil
			}
			if out, ok := msg.(eventbus.OutboundInv); ok {
				m.handleOutboundInv(out)
			}

		case msg, ok := <-m.outboundGetDataIn:
			if !ok {
				return nil
			}
			if out, ok := msg.(eventbus.OutboundGetData); ok {
				m.sendTo(out.Peer, &MsgYGetData{Inv: out.Inv})
			}

		case msg, ok := <-m.outboundYuvTxIn:
			if !ok {
				return nil
			}
			if out, ok := msg.(eventbus.OutboundYuvTx); ok {
				m.sendTo(out.Peer, &MsgYuvTx{Txs: out.Txs})
			}

		case msg, ok := <-m.banPeerIn:
			if !ok {
				return nil
			}
			if b, ok := msg.(eventbus.BanPeer); ok {
				m.handleBanPeer(b)
			}

		case <-keepalive.C:
			m.pingAll()

		case <-sweepTick.C:
			m.bans.sweep()
			m.inv.sweep()
		}
	}
}

func pingIntervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPingInterval
	}
	return d
}

func (m *Manager) seedBootnodes() {
	for _, addr := range m.cfg.Bootnodes {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			host, portStr = addr, fmt.Sprint(m.cfg.DefaultPort)
		}
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			log.Warnf("PEER: bootnode %s unresolvable: %v", addr, err)
			continue
		}
		var port uint16
		fmt.Sscanf(portStr, "%d", &port)
		na := wire.NewNetAddressIPPort(ips[0], port, 0)
		m.addrs.AddAddress(na, na)
		m.conns.Connect(context.Background(), &connmgr.ConnReq{
			Addr:      &net.TCPAddr{IP: ips[0], Port: int(port)},
			Permanent: true,
		})
	}
}

func (m *Manager) seedDNS() {
	addrs := SeedLookupAll(m.cfg.DNSSeeds, m.cfg.DefaultPort, DefaultDNSTimeout)
	for _, a := range addrs {
		na := wire.NewNetAddressIPPort(a.IP, uint16(a.Port), 0)
		m.addrs.AddAddress(na, na)
	}
}

func (m *Manager) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		if m.bans.isBanned(conn.RemoteAddr()) {
			conn.Close()
			continue
		}
		if int(atomic.LoadInt32(&m.inboundN)) >= m.cfg.MaxInbound {
			conn.Close()
			continue
		}
		go m.negotiate(conn, true)
	}
}

func (m *Manager) onOutboundConnection(_ *connmgr.ConnReq, conn net.Conn) {
	go m.negotiate(conn, false)
}

func (m *Manager) onOutboundDisconnection(_ *connmgr.ConnReq) {}

// negotiate performs the handshake and, on success, registers the peer and
// starts its read/write loops; on failure it closes the connection without
// ever exposing it to the rest of the node.
func (m *Manager) negotiate(conn net.Conn, inbound bool) {
	id := eventbus.PeerID(atomic.AddUint64(&m.nextPeerID, 1))
	p := newPeer(id, conn, inbound, m.cfg.Magic)

	if err := handshake(p, m.cfg.HandshakeTimeout); err != nil {
		log.Debugf("PEER: handshake with %v failed: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	m.mu.Lock()
	if inbound {
		m.inboundN++
	} else {
		m.outboundN++
	}
	m.peers[id] = p
	m.mu.Unlock()

	log.Infof("PEER: negotiated %s peer %v (%v)", directionLabel(inbound), id, conn.RemoteAddr())

	go p.writeLoop()
	p.readLoop(m.handleMessage)

	m.mu.Lock()
	delete(m.peers, id)
	if inbound {
		m.inboundN--
	} else {
		m.outboundN--
	}
	m.mu.Unlock()
	m.inv.peerDisconnected(id)
	m.flood.forget(id)
}

func directionLabel(inbound bool) string {
	if inbound {
		return "inbound"
	}
	return "outbound"
}

// handleMessage is the per-peer dispatch point: it applies flood control,
// then translates the wire message into an eventbus publication (or a
// direct reply for ping/pong), implementing spec.md §4.9's request/response
// discipline along the way.
func (m *Manager) handleMessage(p *peer, msg Message) {
	if !m.flood.allow(p.id) {
		log.Warnf("PEER: %v flood-controlled, dropping %s", p.id, msg.Command())
		return
	}

	switch v := msg.(type) {
	case *MsgPing:
		p.send(&MsgPong{Nonce: v.Nonce})

	case *MsgPong:
		p.recordPong(m.cfg.Clock.Now())

	case *MsgYInv:
		m.inv.received(p.id, invTxids(v.Inv))
		m.cfg.Bus.Publish(eventbus.TopicP2PInv, eventbus.P2PInv{Inv: v.Inv, Sender: p.id})

	case *MsgYGetData:
		solicited := make([]yuvtx.InvVect, 0, len(v.Inv))
		for _, vect := range v.Inv {
			if m.inv.wasAnnouncedTo(p.id, vect.Txid) {
				solicited = append(solicited, vect)
			}
		}
		if len(solicited) < len(v.Inv) {
			log.Warnf("PEER: %v requested %d un-announced %v", p.id,
				len(v.Inv)-len(solicited), ErrUnsolicitedGetData)
		}
		if len(solicited) == 0 {
			return
		}
		m.cfg.Bus.Publish(eventbus.TopicP2PGetData, eventbus.P2PGetData{Inv: solicited, Sender: p.id})

	case *MsgYuvTx:
		m.cfg.Bus.Publish(eventbus.TopicP2PYuvTx, eventbus.P2PYuvTx{Txs: v.Txs, Sender: p.id})

	case *MsgYtxIDRelay, *MsgYtxIDAck:
		// Handshake-only messages received post-negotiation are ignored.
	}
}

func invTxids(inv []yuvtx.InvVect) []chainhash.Hash {
	txids := make([]chainhash.Hash, len(inv))
	for i, v := range inv {
		txids[i] = v.Txid
	}
	return txids
}

// handleOutboundInv turns the controller's periodic inventory-sharing
// broadcast into MsgYInv sends, recording each announcement so a later
// GetData for the same txids is honored by handleMessage.
func (m *Manager) handleOutboundInv(out eventbus.OutboundInv) {
	inv := make([]yuvtx.InvVect, len(out.TxIDs))
	for i, txid := range out.TxIDs {
		inv[i] = yuvtx.NewInvVect(txid)
	}

	if out.Peer == 0 {
		m.mu.Lock()
		targets := make([]eventbus.PeerID, 0, len(m.peers))
		for id := range m.peers {
			targets = append(targets, id)
		}
		m.mu.Unlock()
		for _, id := range targets {
			m.inv.announced(id, out.TxIDs)
		}
		m.sendTo(0, &MsgYInv{Inv: inv})
		return
	}

	m.inv.announced(out.Peer, out.TxIDs)
	m.sendTo(out.Peer, &MsgYInv{Inv: inv})
}

// sendTo queues msg for peer, or for every connected peer if peer is the
// zero value (spec.md §4.8's inventory-sharing broadcast).
func (m *Manager) sendTo(peer eventbus.PeerID, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if peer == 0 {
		for _, p := range m.peers {
			p.send(msg)
		}
		return
	}
	if p, ok := m.peers[peer]; ok {
		p.send(msg)
	}
}

// handleBanPeer implements spec.md §4.9's ban policy: immediate disconnect
// plus address-book suppression.
func (m *Manager) handleBanPeer(b eventbus.BanPeer) {
	m.mu.Lock()
	p, ok := m.peers[b.Peer]
	m.mu.Unlock()
	if !ok {
		return
	}

	log.Warnf("PEER: banning %v: %s", b.Peer, b.Reason)
	m.bans.ban(p.addr, b.Reason)
	p.close()
}

// pingAll sends a keepalive ping to every peer and evicts any that have
// gone silent past the configured PingTimeout (DefaultPingTimeout when
// unset).
func (m *Manager) pingAll() {
	now := m.cfg.Clock.Now()
	timeout := m.cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}

	m.mu.Lock()
	peers := make([]*peer, 0, len(m.peers))
	for _, p := range m.peers {
		peers = append(peers, p)
	}
	m.mu.Unlock()

	for _, p := range peers {
		if p.silentFor(now) > timeout {
			log.Warnf("PEER: %v timed out, disconnecting", p.id)
			p.close()
			continue
		}
		p.send(&MsgPing{Nonce: uint64(now.UnixNano())})
	}
}

func (m *Manager) disconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.peers {
		p.close()
	}
}
