package p2p

import "errors"

var (
	// ErrUnknownCommand is returned by ReadMessage for a command string
	// this protocol doesn't implement.
	ErrUnknownCommand = errors.New("p2p: unknown command")

	// ErrUnsolicitedGetData is the discipline spec.md §4.9 requires:
	// "GetData may only be answered for inventories the peer previously
	// Inv-announced within a recent window."
	ErrUnsolicitedGetData = errors.New("p2p: getdata for inventory never announced")

	// ErrPeerBanned is returned by the peer manager's dialer for an
	// address currently suppressed by the ban policy. An inbound
	// connection from a banned address is closed without an error value.
	ErrPeerBanned = errors.New("p2p: peer is banned")

	// ErrTooManyInbound/ErrTooManyOutbound name the full-slot conditions.
	// The manager does not return them: an inbound connection over the
	// limit is closed, and outbound slots are capped by connmgr.
	ErrTooManyInbound  = errors.New("p2p: inbound slots full")
	ErrTooManyOutbound = errors.New("p2p: outbound slots full")

	// ErrHandshakeTimeout wraps any read failure during the handshake.
	// ErrPingTimeout names keepalive eviction; pingAll closes a silent
	// peer without returning it.
	ErrHandshakeTimeout = errors.New("p2p: handshake timed out")
	ErrPingTimeout      = errors.New("p2p: ping timed out")
)
