package yuvtx

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pixelnode/pixeld/pixel"
)

// pixelSize is the wire size of a Pixel: 32-byte luma + 32-byte chroma.
const pixelSize = pixel.LumaSize + pixel.ChromaSize

func encodePixel(p pixel.Pixel) []byte {
	luma := p.Luma.Bytes()
	chroma := p.Chroma.Bytes()
	out := make([]byte, 0, pixelSize)
	out = append(out, luma[:]...)
	out = append(out, chroma[:]...)
	return out
}

func decodePixel(b []byte) (pixel.Pixel, error) {
	if len(b) < pixelSize {
		return pixel.Pixel{}, fmt.Errorf("%w: pixel truncated", ErrMalformed)
	}
	luma, err := pixel.LumaFromBytes(b[:pixel.LumaSize])
	if err != nil {
		return pixel.Pixel{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	chroma, err := pixel.ChromaFromBytes(b[pixel.LumaSize:pixelSize])
	if err != nil {
		return pixel.Pixel{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return pixel.NewPixel(luma, chroma), nil
}

func appendVarBytes(out []byte, b []byte) []byte {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(b)))
	out = append(out, l[:]...)
	return append(out, b...)
}

func readVarBytes(b []byte) (data []byte, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("%w: var-bytes length truncated", ErrMalformed)
	}
	l := int(binary.LittleEndian.Uint16(b[:2]))
	if len(b) < 2+l {
		return nil, nil, fmt.Errorf("%w: var-bytes body truncated", ErrMalformed)
	}
	return b[2 : 2+l], b[2+l:], nil
}

func appendPubKey(out []byte, pub *btcec.PublicKey) []byte {
	return append(out, pub.SerializeCompressed()...)
}

func readPubKey(b []byte) (*btcec.PublicKey, []byte, error) {
	if len(b) < 33 {
		return nil, nil, fmt.Errorf("%w: public key truncated", ErrMalformed)
	}
	pub, err := btcec.ParsePubKey(b[:33])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return pub, b[33:], nil
}

// EncodeProof serializes p in its self-delimiting wire form: a one-byte
// variant discriminant, the witnessed pixel, then variant-specific fields
// (spec.md §6: "each proof variant has a stable discriminant and fixed/
// length-prefixed fields").
func EncodeProof(p pixel.Proof) ([]byte, error) {
	out := []byte{byte(p.Variant())}
	out = append(out, encodePixel(p.Pixel())...)

	switch proof := p.(type) {
	case *pixel.SigProof:
		out = appendPubKey(out, proof.Owner)
		out = appendVarBytes(out, proof.Sig)

	case *pixel.EmptyProof:
		out = appendPubKey(out, proof.Owner)
		out = appendVarBytes(out, proof.Sig)

	case *pixel.MultisigProof:
		if len(proof.Keys) > 255 {
			return nil, fmt.Errorf("%w: too many multisig keys", ErrMalformed)
		}
		out = append(out, proof.M, byte(len(proof.Keys)))
		for _, k := range proof.Keys {
			out = appendPubKey(out, k)
		}
		var sigCount [2]byte
		binary.LittleEndian.PutUint16(sigCount[:], uint16(len(proof.Sigs)))
		out = append(out, sigCount[:]...)

		indices := make([]int, 0, len(proof.Sigs))
		for idx := range proof.Sigs {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			out = append(out, byte(idx))
			out = appendVarBytes(out, proof.Sigs[idx])
		}

	case *pixel.LightningCommitmentProof:
		out = appendPubKey(out, proof.RevocationKey)
		var delay [2]byte
		binary.LittleEndian.PutUint16(delay[:], proof.ToSelfDelay)
		out = append(out, delay[:]...)
		out = appendPubKey(out, proof.DelayedKey)
		out = appendVarBytes(out, proof.Sig)

	case *pixel.LightningHTLCProof:
		out = append(out, byte(proof.Kind))
		out = appendPubKey(out, proof.RemoteHTLCKey)
		out = appendPubKey(out, proof.LocalHTLCKey)
		out = appendPubKey(out, proof.RevocationKey)
		out = append(out, proof.PaymentHash[:]...)
		var expiry [4]byte
		binary.LittleEndian.PutUint32(expiry[:], proof.CltvExpiry)
		out = append(out, expiry[:]...)

	case *pixel.BulletproofProof:
		out = appendPubKey(out, proof.Owner)
		out = appendPubKey(out, proof.SenderPubKey)
		out = appendVarBytes(out, proof.Commitment)
		out = appendVarBytes(out, proof.RangeProof)
		out = appendVarBytes(out, proof.TxSig)
		out = appendVarBytes(out, proof.ChromaSig)
		out = appendVarBytes(out, proof.Sig)

	default:
		return nil, fmt.Errorf("%w: unrecognized proof type %T", ErrMalformed, p)
	}

	return out, nil
}

// DecodeProof parses a proof from the front of b and returns the number of
// bytes consumed, so callers can parse a sequence of proofs out of one
// buffer (used by DecodeProofMap).
func DecodeProof(b []byte) (pixel.Proof, int, error) {
	if len(b) < 1+pixelSize {
		return nil, 0, fmt.Errorf("%w: proof header truncated", ErrMalformed)
	}

	variant := pixel.VariantTag(b[0])
	rest := b[1:]

	pixelVal, err := decodePixel(rest)
	if err != nil {
		return nil, 0, err
	}
	rest = rest[pixelSize:]
	consumed := 1 + pixelSize

	track := func(before int) {
		consumed += before - len(rest)
	}

	switch variant {
	case pixel.VariantSig:
		before := len(rest)
		owner, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		sig, r, err := readVarBytes(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		track(before)
		return &pixel.SigProof{PixelValue: pixelVal, Owner: owner, Sig: sig}, consumed, nil

	case pixel.VariantEmpty:
		before := len(rest)
		owner, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		sig, r, err := readVarBytes(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		track(before)
		return &pixel.EmptyProof{PixelValue: pixelVal, Owner: owner, Sig: sig}, consumed, nil

	case pixel.VariantMultisig:
		before := len(rest)
		if len(rest) < 2 {
			return nil, 0, fmt.Errorf("%w: multisig header truncated", ErrMalformed)
		}
		m, n := rest[0], int(rest[1])
		rest = rest[2:]

		keys := make([]*btcec.PublicKey, 0, n)
		for i := 0; i < n; i++ {
			var k *btcec.PublicKey
			k, rest, err = readPubKey(rest)
			if err != nil {
				return nil, 0, err
			}
			keys = append(keys, k)
		}

		if len(rest) < 2 {
			return nil, 0, fmt.Errorf("%w: multisig sig count truncated", ErrMalformed)
		}
		sigCount := int(binary.LittleEndian.Uint16(rest[:2]))
		rest = rest[2:]

		sigs := make(map[int][]byte, sigCount)
		for i := 0; i < sigCount; i++ {
			if len(rest) < 1 {
				return nil, 0, fmt.Errorf("%w: multisig sig index truncated", ErrMalformed)
			}
			idx := int(rest[0])
			rest = rest[1:]
			var sig []byte
			sig, rest, err = readVarBytes(rest)
			if err != nil {
				return nil, 0, err
			}
			sigs[idx] = sig
		}

		track(before)
		return &pixel.MultisigProof{PixelValue: pixelVal, M: m, Keys: keys, Sigs: sigs}, consumed, nil

	case pixel.VariantLightningCommitment:
		before := len(rest)
		revocation, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		if len(rest) < 2 {
			return nil, 0, fmt.Errorf("%w: to_self_delay truncated", ErrMalformed)
		}
		delay := binary.LittleEndian.Uint16(rest[:2])
		rest = rest[2:]
		delayed, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		sig, r, err := readVarBytes(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		track(before)
		return &pixel.LightningCommitmentProof{
			PixelValue:    pixelVal,
			RevocationKey: revocation,
			ToSelfDelay:   delay,
			DelayedKey:    delayed,
			Sig:           sig,
		}, consumed, nil

	case pixel.VariantLightningHTLC:
		before := len(rest)
		if len(rest) < 1 {
			return nil, 0, fmt.Errorf("%w: htlc kind truncated", ErrMalformed)
		}
		kind := pixel.HTLCKind(rest[0])
		rest = rest[1:]

		remote, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		local, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		revocation, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r

		if len(rest) < 32+4 {
			return nil, 0, fmt.Errorf("%w: htlc payment hash/cltv truncated", ErrMalformed)
		}
		var paymentHash [32]byte
		copy(paymentHash[:], rest[:32])
		cltv := binary.LittleEndian.Uint32(rest[32:36])
		rest = rest[36:]

		track(before)
		return &pixel.LightningHTLCProof{
			PixelValue:    pixelVal,
			Kind:          kind,
			RemoteHTLCKey: remote,
			LocalHTLCKey:  local,
			RevocationKey: revocation,
			PaymentHash:   paymentHash,
			CltvExpiry:    cltv,
		}, consumed, nil

	case pixel.VariantBulletproof:
		before := len(rest)
		owner, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r
		sender, r, err := readPubKey(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = r

		var commitment, rangeProof, txSig, chromaSig, sig []byte
		for _, dst := range []*[]byte{&commitment, &rangeProof, &txSig, &chromaSig, &sig} {
			*dst, rest, err = readVarBytes(rest)
			if err != nil {
				return nil, 0, err
			}
		}

		track(before)
		return &pixel.BulletproofProof{
			PixelValue:   pixelVal,
			Owner:        owner,
			SenderPubKey: sender,
			Commitment:   commitment,
			RangeProof:   rangeProof,
			TxSig:        txSig,
			ChromaSig:    chromaSig,
			Sig:          sig,
		}, consumed, nil

	default:
		return nil, 0, fmt.Errorf("%w: variant %d", pixel.ErrUnknownProofVariant, variant)
	}
}

// EncodeProofMap serializes m as a u32 count followed by (u32 index, proof)
// pairs, sorted by index for determinism (spec.md §6).
func EncodeProofMap(m ProofMap) ([]byte, error) {
	indices := make([]int, 0, len(m))
	for idx := range m {
		indices = append(indices, int(idx))
	}
	sort.Ints(indices)

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(m)))
	out := append([]byte{}, count[:]...)

	for _, idx := range indices {
		var idxBytes [4]byte
		binary.LittleEndian.PutUint32(idxBytes[:], uint32(idx))
		out = append(out, idxBytes[:]...)

		encoded, err := EncodeProof(m[uint32(idx)])
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return out, nil
}

// DecodeProofMap parses a proof map from the front of b, returning the
// bytes consumed.
func DecodeProofMap(b []byte) (ProofMap, int, error) {
	if len(b) < 4 {
		return nil, 0, fmt.Errorf("%w: proof map count truncated", ErrMalformed)
	}
	count := binary.LittleEndian.Uint32(b[:4])
	consumed := 4
	rest := b[4:]

	m := make(ProofMap, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("%w: proof map index truncated", ErrMalformed)
		}
		idx := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		consumed += 4

		proof, n, err := DecodeProof(rest)
		if err != nil {
			return nil, 0, err
		}
		rest = rest[n:]
		consumed += n

		m[idx] = proof
	}
	return m, consumed, nil
}
