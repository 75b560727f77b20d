package p2p

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pixelnode/pixeld/eventbus"
	"github.com/stretchr/testify/require"
)

func TestHandshakeBothSides(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	client := newPeer(eventbus.PeerID(1), clientConn, false, MagicRegtest)
	server := newPeer(eventbus.PeerID(2), serverConn, true, MagicRegtest)

	var wg sync.WaitGroup
	var clientErr, serverErr error
	wg.Add(2)
	go func() { defer wg.Done(); clientErr = handshake(client, time.Second) }()
	go func() { defer wg.Done(); serverErr = handshake(server, time.Second) }()
	wg.Wait()

	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
}

func TestHandshakeRejectsWrongFirstMessage(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	server := newPeer(eventbus.PeerID(1), serverConn, true, MagicRegtest)

	done := make(chan error, 1)
	go func() { done <- handshake(server, time.Second) }()

	require.NoError(t, WriteMessage(clientConn, MagicRegtest, &MsgPing{Nonce: 1}))

	err := <-done
	require.Error(t, err)
}

func TestPeerSendDropsWhenQueueFull(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	p := newPeer(eventbus.PeerID(1), clientConn, false, MagicRegtest)
	p.sendCh = make(chan Message, 1)

	p.send(&MsgPing{Nonce: 1})
	p.send(&MsgPing{Nonce: 2}) // queue full, should drop rather than block

	require.Len(t, p.sendCh, 1)
}

func TestPeerSilentForBeforeAnyPong(t *testing.T) {
	clientConn, _ := net.Pipe()
	defer clientConn.Close()

	p := newPeer(eventbus.PeerID(1), clientConn, false, MagicRegtest)
	require.Equal(t, time.Duration(0), p.silentFor(time.Now()))
}

func TestPeerCloseIsIdempotent(t *testing.T) {
	clientConn, _ := net.Pipe()

	p := newPeer(eventbus.PeerID(1), clientConn, false, MagicRegtest)
	p.close()
	require.NotPanics(t, p.close)
}
