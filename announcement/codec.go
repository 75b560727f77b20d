package announcement

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pixelnode/pixeld/pixel"
)

const headerSize = len(Magic) + 2 /* kind */ + 4 /* min_height */

// Encode serializes a into an OP_RETURN script_pubkey (spec.md §4.2: a push
// beginning with the 3-byte magic, a 2-byte kind, and kind-specific data).
func Encode(a Announcement) ([]byte, error) {
	payload, err := encodePayload(a)
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	copy(header[:3], Magic[:])
	binary.LittleEndian.PutUint16(header[3:5], uint16(a.Kind()))
	binary.LittleEndian.PutUint32(header[5:9], a.MinHeight())

	full := append(header, payload...)

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(full).
		Script()
}

// Parse extracts and decodes an announcement from a candidate
// script_pubkey. It never fails the containing transaction: a non-OP_RETURN
// or non-magic-prefixed script simply yields ErrNotAnnouncement, and an
// otherwise-recognized announcement with a corrupt payload yields
// ErrMalformed (spec.md §4.2, "parsing is permissive").
func Parse(pkScript []byte) (Announcement, error) {
	pushes, err := txscript.PushedData(pkScript)
	if err != nil || len(pushes) == 0 {
		return nil, ErrNotAnnouncement
	}

	var payload []byte
	for _, p := range pushes {
		if len(p) >= headerSize && string(p[:3]) == string(Magic[:]) {
			payload = p
			break
		}
	}
	if payload == nil {
		return nil, ErrNotAnnouncement
	}

	kind := Kind(binary.LittleEndian.Uint16(payload[3:5]))
	minHeight := binary.LittleEndian.Uint32(payload[5:9])
	body := payload[headerSize:]

	switch kind {
	case KindChromaMetadata:
		return decodeChromaMetadata(body, minHeight)
	case KindFreeze:
		return decodeFreeze(body, minHeight)
	case KindIssue:
		return decodeIssue(body, minHeight)
	case KindTransferOwnership:
		return decodeTransferOwnership(body, minHeight)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownKind, kind)
	}
}

func encodePayload(a Announcement) ([]byte, error) {
	switch v := a.(type) {
	case *ChromaMetadata:
		return encodeChromaMetadata(v), nil
	case *Freeze:
		return encodeFreeze(v), nil
	case *Issue:
		return encodeIssue(v), nil
	case *TransferOwnership:
		return encodeTransferOwnership(v), nil
	default:
		return nil, fmt.Errorf("%w: unrecognized announcement type %T", ErrUnknownKind, a)
	}
}

func encodeChromaMetadata(v *ChromaMetadata) []byte {
	chromaBytes := v.Chroma.Bytes()
	out := make([]byte, 0, 32+1+len(v.Name)+1+len(v.Symbol)+1+amountBytes+1)
	out = append(out, chromaBytes[:]...)
	out = append(out, byte(len(v.Name)))
	out = append(out, v.Name...)
	out = append(out, byte(len(v.Symbol)))
	out = append(out, v.Symbol...)
	out = append(out, v.Decimals)
	out = append(out, v.MaxSupply[:]...)
	if v.IsFreezable {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

func decodeChromaMetadata(b []byte, minHeight uint32) (*ChromaMetadata, error) {
	if len(b) < 32+1 {
		return nil, fmt.Errorf("%w: chroma-metadata too short", ErrMalformed)
	}
	chroma, err := pixel.ChromaFromBytes(b[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: chroma: %v", ErrMalformed, err)
	}
	off := 32

	nameLen := int(b[off])
	off++
	if len(b) < off+nameLen+1 {
		return nil, fmt.Errorf("%w: chroma-metadata name truncated", ErrMalformed)
	}
	name := string(b[off : off+nameLen])
	off += nameLen

	symLen := int(b[off])
	off++
	if len(b) < off+symLen+1+amountBytes+1 {
		return nil, fmt.Errorf("%w: chroma-metadata symbol truncated", ErrMalformed)
	}
	symbol := string(b[off : off+symLen])
	off += symLen

	decimals := b[off]
	off++

	var maxSupply [amountBytes]byte
	copy(maxSupply[:], b[off:off+amountBytes])
	off += amountBytes

	isFreezable := b[off] != 0

	return &ChromaMetadata{
		Chroma:         chroma,
		Name:           name,
		Symbol:         symbol,
		Decimals:       decimals,
		MaxSupply:      maxSupply,
		IsFreezable:    isFreezable,
		MinHeightValue: minHeight,
	}, nil
}

func encodeFreeze(v *Freeze) []byte {
	chromaBytes := v.Chroma.Bytes()
	out := make([]byte, 0, 32+4+32)
	out = append(out, v.Outpoint.Hash[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], v.Outpoint.Index)
	out = append(out, idx[:]...)
	out = append(out, chromaBytes[:]...)
	return out
}

func decodeFreeze(b []byte, minHeight uint32) (*Freeze, error) {
	if len(b) != chainhash.HashSize+4+32 {
		return nil, fmt.Errorf("%w: freeze has wrong length %d", ErrMalformed, len(b))
	}

	var hash chainhash.Hash
	copy(hash[:], b[:chainhash.HashSize])
	off := chainhash.HashSize

	index := binary.LittleEndian.Uint32(b[off : off+4])
	off += 4

	chroma, err := pixel.ChromaFromBytes(b[off : off+32])
	if err != nil {
		return nil, fmt.Errorf("%w: chroma: %v", ErrMalformed, err)
	}

	return &Freeze{
		Outpoint:       FreezeOutpoint{Hash: hash, Index: index},
		Chroma:         chroma,
		MinHeightValue: minHeight,
	}, nil
}

func encodeIssue(v *Issue) []byte {
	chromaBytes := v.Chroma.Bytes()
	out := make([]byte, 0, 32+amountBytes)
	out = append(out, chromaBytes[:]...)
	out = append(out, v.Amount[:]...)
	return out
}

func decodeIssue(b []byte, minHeight uint32) (*Issue, error) {
	if len(b) != 32+amountBytes {
		return nil, fmt.Errorf("%w: issue has wrong length %d", ErrMalformed, len(b))
	}
	chroma, err := pixel.ChromaFromBytes(b[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: chroma: %v", ErrMalformed, err)
	}
	var amount [amountBytes]byte
	copy(amount[:], b[32:])
	return &Issue{Chroma: chroma, Amount: amount, MinHeightValue: minHeight}, nil
}

func encodeTransferOwnership(v *TransferOwnership) []byte {
	chromaBytes := v.Chroma.Bytes()
	out := make([]byte, 0, 32+2+len(v.NewOwnerScript))
	out = append(out, chromaBytes[:]...)
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(v.NewOwnerScript)))
	out = append(out, l[:]...)
	out = append(out, v.NewOwnerScript...)
	return out
}

func decodeTransferOwnership(b []byte, minHeight uint32) (*TransferOwnership, error) {
	if len(b) < 32+2 {
		return nil, fmt.Errorf("%w: transfer-ownership too short", ErrMalformed)
	}
	chroma, err := pixel.ChromaFromBytes(b[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: chroma: %v", ErrMalformed, err)
	}
	scriptLen := int(binary.LittleEndian.Uint16(b[32:34]))
	if len(b) != 34+scriptLen {
		return nil, fmt.Errorf("%w: transfer-ownership script length mismatch", ErrMalformed)
	}
	script := make([]byte, scriptLen)
	copy(script, b[34:])
	return &TransferOwnership{
		Chroma:         chroma,
		NewOwnerScript: script,
		MinHeightValue: minHeight,
	}, nil
}
