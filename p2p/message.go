// Package p2p implements the wire protocol, peer manager, and inventory
// discipline of spec.md §4.9: a Bitcoin-style framed transport carrying this
// protocol's own message kinds alongside btcsuite/btcd/wire primitives it
// reuses directly (MsgTx serialization, varint/varbytes encoding).
package p2p

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/yuvtx"
)

// protocolVersion is passed to the wire varint/varbytes helpers. This
// protocol doesn't version-gate on it the way Bitcoin's handshake does;
// it's threaded through purely because every wire.Read*/Write* helper
// requires one.
const protocolVersion = 0

// maxInvPerMessage bounds a single Inv/GetData message's vector count,
// the same defensive cap wire.MaxInvPerMsg applies to Bitcoin's own inv
// message.
const maxInvPerMessage = 50000

// maxTxsPerMessage bounds a single YuvTx message's transaction count.
const maxTxsPerMessage = 10000

// Command strings, fixed at 12 bytes on the wire per spec.md §4.9 ("a
// Bitcoin-style framed message with ... a 12-byte command string").
const (
	cmdYtxIDRelay = "ytxidrelay"
	cmdYtxIDAck   = "ytxidack"
	cmdYInv       = "yinv"
	cmdYGetData   = "ygetdata"
	cmdYuvTx      = "yuvtx"
	cmdPing       = "ping"
	cmdPong       = "pong"
)

// Message is this protocol's wire message interface, deliberately narrower
// than wire.Message: every message kind here is specific to this protocol,
// so there's no MaxPayloadLength-by-version negotiation to model.
type Message interface {
	Command() string
	Encode(w io.Writer) error
	Decode(r io.Reader) error
}

// MsgYtxIDRelay is the opt-in negotiation request: "I speak this protocol."
// It carries no payload.
type MsgYtxIDRelay struct{}

func (*MsgYtxIDRelay) Command() string       { return cmdYtxIDRelay }
func (*MsgYtxIDRelay) Encode(io.Writer) error { return nil }
func (*MsgYtxIDRelay) Decode(io.Reader) error { return nil }

// MsgYtxIDAck acknowledges a MsgYtxIDRelay. Also payload-free.
type MsgYtxIDAck struct{}

func (*MsgYtxIDAck) Command() string       { return cmdYtxIDAck }
func (*MsgYtxIDAck) Encode(io.Writer) error { return nil }
func (*MsgYtxIDAck) Decode(io.Reader) error { return nil }

// MsgPing/MsgPong implement the keepalive of spec.md §4.9 ("Ping/pong
// keepalive with timeout eviction"), a single nonce round-tripped to
// detect a dead or frozen connection.
type MsgPing struct{ Nonce uint64 }
type MsgPong struct{ Nonce uint64 }

func (*MsgPing) Command() string { return cmdPing }
func (*MsgPong) Command() string { return cmdPong }

func (m *MsgPing) Encode(w io.Writer) error { return wire.WriteVarInt(w, protocolVersion, m.Nonce) }
func (m *MsgPing) Decode(r io.Reader) error {
	n, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}

func (m *MsgPong) Encode(w io.Writer) error { return wire.WriteVarInt(w, protocolVersion, m.Nonce) }
func (m *MsgPong) Decode(r io.Reader) error {
	n, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return err
	}
	m.Nonce = n
	return nil
}

// MsgYInv announces inventory of kind Ytx(txid) (spec.md §4.9), distinct
// from Bitcoin's own inv message/InvType enum.
type MsgYInv struct {
	Inv []yuvtx.InvVect
}

func (*MsgYInv) Command() string { return cmdYInv }

func (m *MsgYInv) Encode(w io.Writer) error { return encodeInvVects(w, m.Inv) }
func (m *MsgYInv) Decode(r io.Reader) error {
	inv, err := decodeInvVects(r)
	if err != nil {
		return err
	}
	m.Inv = inv
	return nil
}

// MsgYGetData requests the transactions behind a prior Inv announcement.
type MsgYGetData struct {
	Inv []yuvtx.InvVect
}

func (*MsgYGetData) Command() string { return cmdYGetData }

func (m *MsgYGetData) Encode(w io.Writer) error { return encodeInvVects(w, m.Inv) }
func (m *MsgYGetData) Decode(r io.Reader) error {
	inv, err := decodeInvVects(r)
	if err != nil {
		return err
	}
	m.Inv = inv
	return nil
}

// MsgYuvTx carries a batch of this protocol's transactions (spec.md §4.9).
// Each transaction is encoded with yuvtx.Encode (Bitcoin tx + type tag +
// proof data) and framed with wire.WriteVarBytes/ReadVarBytes, so the
// per-tx length prefix and the underlying MsgTx serialization are both
// reused directly from btcsuite/btcd/wire rather than reimplemented.
type MsgYuvTx struct {
	Txs []yuvtx.Transaction
}

func (*MsgYuvTx) Command() string { return cmdYuvTx }

func (m *MsgYuvTx) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, protocolVersion, uint64(len(m.Txs))); err != nil {
		return err
	}
	for _, tx := range m.Txs {
		raw, err := yuvtx.Encode(tx)
		if err != nil {
			return fmt.Errorf("p2p: encode yuvtx: %w", err)
		}
		b, err := hex.DecodeString(raw)
		if err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, protocolVersion, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *MsgYuvTx) Decode(r io.Reader) error {
	count, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return err
	}
	if count > maxTxsPerMessage {
		return fmt.Errorf("p2p: yuvtx message carries %d txs, max is %d", count, maxTxsPerMessage)
	}

	txs := make([]yuvtx.Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		b, err := wire.ReadVarBytes(r, protocolVersion, wire.MaxMessagePayload, "yuvtx")
		if err != nil {
			return err
		}
		tx, err := yuvtx.Decode(hex.EncodeToString(b))
		if err != nil {
			return fmt.Errorf("p2p: decode yuvtx: %w", err)
		}
		txs = append(txs, tx)
	}
	m.Txs = txs
	return nil
}

func encodeInvVects(w io.Writer, inv []yuvtx.InvVect) error {
	if err := wire.WriteVarInt(w, protocolVersion, uint64(len(inv))); err != nil {
		return err
	}
	for _, v := range inv {
		if _, err := w.Write(v.Txid[:]); err != nil {
			return err
		}
	}
	return nil
}

func decodeInvVects(r io.Reader) ([]yuvtx.InvVect, error) {
	count, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return nil, err
	}
	if count > maxInvPerMessage {
		return nil, fmt.Errorf("p2p: inv message carries %d vectors, max is %d", count, maxInvPerMessage)
	}

	inv := make([]yuvtx.InvVect, count)
	for i := range inv {
		if _, err := io.ReadFull(r, inv[i].Txid[:]); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// emptyMessage builds a zero-valued Message for command, or nil if command
// isn't one this protocol understands. Used by the frame reader to decide
// what to decode an incoming payload into.
func emptyMessage(command string) Message {
	switch command {
	case cmdYtxIDRelay:
		return &MsgYtxIDRelay{}
	case cmdYtxIDAck:
		return &MsgYtxIDAck{}
	case cmdYInv:
		return &MsgYInv{}
	case cmdYGetData:
		return &MsgYGetData{}
	case cmdYuvTx:
		return &MsgYuvTx{}
	case cmdPing:
		return &MsgPing{}
	case cmdPong:
		return &MsgPong{}
	default:
		return nil
	}
}
