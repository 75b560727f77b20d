package yuvtx

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/pixel"
)

// Encode serializes t as described in spec.md §6: the Bitcoin transaction,
// followed by a one-byte type tag, followed by the tagged proof data.
func Encode(t Transaction) (string, error) {
	var buf bytes.Buffer
	if err := t.BitcoinTx().Serialize(&buf); err != nil {
		return "", fmt.Errorf("yuvtx: serialize bitcoin tx: %w", err)
	}

	buf.WriteByte(byte(t.Type()))

	switch tx := t.(type) {
	case *IssueTx:
		chromaBytes := tx.Announcement.Chroma.Bytes()
		buf.Write(chromaBytes[:])
		buf.Write(tx.Announcement.Amount[:])

		hasOutputProofs := byte(0)
		if tx.OutputProofs != nil {
			hasOutputProofs = 1
		}
		buf.WriteByte(hasOutputProofs)
		if hasOutputProofs == 1 {
			encoded, err := EncodeProofMap(tx.OutputProofs)
			if err != nil {
				return "", err
			}
			buf.Write(encoded)
		}

	case *TransferTx:
		inEncoded, err := EncodeProofMap(tx.InputProofs)
		if err != nil {
			return "", err
		}
		buf.Write(inEncoded)

		outEncoded, err := EncodeProofMap(tx.OutputProofs)
		if err != nil {
			return "", err
		}
		buf.Write(outEncoded)

	case *AnnouncementTx:
		script, err := announcement.Encode(tx.Announcement)
		if err != nil {
			return "", err
		}
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(script)))
		buf.Write(l[:])
		buf.Write(script)

	default:
		return "", fmt.Errorf("%w: unrecognized transaction type %T", ErrUnknownTxType, t)
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

// Decode parses the hex encoding produced by Encode.
func Decode(hexStr string) (Transaction, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	r := bytes.NewReader(raw)
	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(r); err != nil {
		return nil, fmt.Errorf("%w: bitcoin tx: %v", ErrMalformed, err)
	}

	rest := raw[len(raw)-r.Len():]
	return DecodeTagged(&msgTx, rest)
}

// DecodeTagged parses a type tag plus tagged proof body (the portion of
// Encode's output that follows the serialized Bitcoin transaction)
// against an already-known tx, for the RPC surface's "short" proof
// submission (spec.md §6, provideyuvproofshort): the caller already has
// the mined Bitcoin transaction by txid and only needs to attach this
// protocol's proof data to it.
func DecodeTagged(tx *wire.MsgTx, rest []byte) (Transaction, error) {
	msgTx := *tx

	if len(rest) < 1 {
		return nil, fmt.Errorf("%w: missing type tag", ErrMalformed)
	}
	typ := Type(rest[0])
	rest = rest[1:]

	switch typ {
	case TypeIssue:
		if len(rest) < 32+amountBytes+1 {
			return nil, fmt.Errorf("%w: issue body truncated", ErrMalformed)
		}
		chroma, err := pixel.ChromaFromBytes(rest[:32])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var amount [amountBytes]byte
		copy(amount[:], rest[32:32+amountBytes])
		rest = rest[32+amountBytes:]

		hasOutputProofs := rest[0]
		rest = rest[1:]

		var outputProofs ProofMap
		if hasOutputProofs == 1 {
			outputProofs, _, err = DecodeProofMap(rest)
			if err != nil {
				return nil, err
			}
		}

		return &IssueTx{
			Tx:           &msgTx,
			Announcement: IssueAnnouncement{Chroma: chroma, Amount: amount},
			OutputProofs: outputProofs,
		}, nil

	case TypeTransfer:
		inputProofs, n, err := DecodeProofMap(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]

		outputProofs, _, err := DecodeProofMap(rest)
		if err != nil {
			return nil, err
		}

		return &TransferTx{Tx: &msgTx, InputProofs: inputProofs, OutputProofs: outputProofs}, nil

	case TypeAnnouncement:
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: announcement length truncated", ErrMalformed)
		}
		l := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < l {
			return nil, fmt.Errorf("%w: announcement body truncated", ErrMalformed)
		}

		a, err := announcement.Parse(rest[:l])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		return &AnnouncementTx{Tx: &msgTx, Announcement: a}, nil

	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownTxType, typ)
	}
}
