package p2p

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// commandSize is the fixed width of a command string on the wire, matching
// Bitcoin's own 12-byte command field (spec.md §4.9).
const commandSize = 12

// MaxPayloadLength bounds a single frame's payload, guarding against a
// malicious or corrupt length field driving an unbounded allocation.
const MaxPayloadLength = 4 * 1024 * 1024

// NetMagic identifies this protocol's network, occupying the same
// leading-4-bytes role Bitcoin's network magic plays — a different value
// per network so a node never mistakes a Bitcoin peer's traffic (or a peer
// on a different network of this protocol) for its own.
type NetMagic uint32

const (
	MagicMainNet NetMagic = 0x50584c31 // "PXL1"
	MagicTestNet NetMagic = 0x50584c74 // "PXLt"
	MagicRegtest NetMagic = 0x50584c72 // "PXLr"
)

// The frame header is 24 bytes: 4-byte magic, 12-byte zero-padded command,
// 4-byte little-endian payload length, 4-byte checksum (the first four
// bytes of the double-SHA256 of the payload, the same truncated-hash
// checksum scheme Bitcoin's own message header uses).

func checksum(payload []byte) [4]byte {
	h := chainhash.DoubleHashB(payload)
	var c [4]byte
	copy(c[:], h[:4])
	return c
}

// WriteMessage frames msg and writes it to w.
func WriteMessage(w io.Writer, magic NetMagic, msg Message) error {
	var payload bytes.Buffer
	if err := msg.Encode(&payload); err != nil {
		return fmt.Errorf("p2p: encode %s: %w", msg.Command(), err)
	}
	if payload.Len() > MaxPayloadLength {
		return fmt.Errorf("p2p: %s payload of %d bytes exceeds max %d",
			msg.Command(), payload.Len(), MaxPayloadLength)
	}

	var cmd [commandSize]byte
	copy(cmd[:], msg.Command())

	var hdr [24]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(magic))
	copy(hdr[4:16], cmd[:])
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(payload.Len()))
	sum := checksum(payload.Bytes())
	copy(hdr[20:24], sum[:])

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// ReadMessage reads and decodes one frame from r, verifying magic and
// checksum before dispatching to the command's Message implementation.
func ReadMessage(r io.Reader, magic NetMagic) (Message, error) {
	var raw [24]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, err
	}

	gotMagic := NetMagic(binary.LittleEndian.Uint32(raw[0:4]))
	if gotMagic != magic {
		return nil, fmt.Errorf("p2p: wrong network magic: got %#x, want %#x", gotMagic, magic)
	}

	cmd := string(bytes.TrimRight(raw[4:16], "\x00"))
	length := binary.LittleEndian.Uint32(raw[16:20])
	if length > MaxPayloadLength {
		return nil, fmt.Errorf("p2p: %s declares payload of %d bytes, exceeds max %d",
			cmd, length, MaxPayloadLength)
	}
	var wantSum [4]byte
	copy(wantSum[:], raw[20:24])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	if got := checksum(payload); got != wantSum {
		return nil, fmt.Errorf("p2p: %s checksum mismatch", cmd)
	}

	msg := emptyMessage(cmd)
	if msg == nil {
		return nil, fmt.Errorf("p2p: %w: %q", ErrUnknownCommand, cmd)
	}
	if err := msg.Decode(bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("p2p: decode %s: %w", cmd, err)
	}
	return msg, nil
}
