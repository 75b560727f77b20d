// Package pixel implements the tweak-and-proof model that binds pixels
// (chroma + luma) to Bitcoin UTXOs, per spec.md §3 and §4.1.
package pixel

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
)

// ChromaSize is the length in bytes of a Chroma's X-only coordinate.
const ChromaSize = 32

// chromaHRP is the human-readable part used when encoding a Chroma as a
// taproot-like address, keyed by network.
var chromaHRP = map[*chaincfg.Params]string{
	&chaincfg.MainNetParams: "chroma",
	&chaincfg.TestNet3Params: "tchroma",
	&chaincfg.RegressionNetParams: "rchroma",
	&chaincfg.SimNetParams: "schroma",
}

// Chroma identifies a token type by the X-only coordinate of the issuer's
// public key. Equality is X-only: the parity bit is canonicalized away, so
// two keys that differ only in Y parity name the same chroma.
type Chroma struct {
	x [ChromaSize]byte
}

// ChromaFromPublicKey derives the Chroma for an issuer's public key.
func ChromaFromPublicKey(pub *btcec.PublicKey) Chroma {
	var c Chroma
	// Bytes 1:33 of the compressed serialization are exactly the X
	// coordinate; dropping the leading parity byte is what makes chroma
	// equality X-only, per spec.md §3.
	copy(c.x[:], pub.SerializeCompressed()[1:])
	return c
}

// ChromaFromBytes parses a 32-byte X-only coordinate into a Chroma.
func ChromaFromBytes(b []byte) (Chroma, error) {
	var c Chroma
	if len(b) != ChromaSize {
		return c, fmt.Errorf("%w: chroma must be %d bytes, got %d",
			ErrMalformed, ChromaSize, len(b))
	}
	copy(c.x[:], b)
	return c, nil
}

// Bytes returns the chroma's 32-byte X-only coordinate.
func (c Chroma) Bytes() [ChromaSize]byte {
	return c.x
}

// String returns the lower-case hex encoding of the chroma.
func (c Chroma) String() string {
	return hex.EncodeToString(c.x[:])
}

// PublicKey lifts the chroma back into a (even-Y) secp256k1 public key,
// suitable for use as the "issuer key" side of further tweaking (e.g. the
// canonical empty-pixel generator in §3 reinterprets a chroma as a public
// key).
func (c Chroma) PublicKey() (*btcec.PublicKey, error) {
	pk, err := btcec.ParsePubKey(append([]byte{0x02}, c.x[:]...))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return pk, nil
}

// Equal reports whether two chromas name the same token type.
func (c Chroma) Equal(o Chroma) bool {
	return c.x == o.x
}

// IsZero reports whether c is the zero value (never a valid issuer key, used
// as a sentinel by callers that haven't resolved a chroma yet).
func (c Chroma) IsZero() bool {
	var zero [ChromaSize]byte
	return c.x == zero
}

// ToAddress encodes the chroma as a bech32 (taproot-like) address for
// display, keyed by network the same way btcutil address types are.
func (c Chroma) ToAddress(params *chaincfg.Params) (string, error) {
	hrp, ok := chromaHRP[params]
	if !ok {
		return "", fmt.Errorf("chroma: unsupported network %s", params.Name)
	}

	converted, err := bech32.ConvertBits(c.x[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("chroma: %w", err)
	}
	return bech32.EncodeM(hrp, converted)
}

// ChromaFromAddress parses a bech32 chroma address back into a Chroma. It is
// the exact round trip of ToAddress: ChromaFromAddress(c.ToAddress(p)) == c.
func ChromaFromAddress(addr string) (Chroma, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return Chroma{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	found := false
	for _, known := range chromaHRP {
		if known == hrp {
			found = true
			break
		}
	}
	if !found {
		return Chroma{}, fmt.Errorf("%w: unrecognized chroma hrp %q", ErrMalformed, hrp)
	}

	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Chroma{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return ChromaFromBytes(converted)
}
