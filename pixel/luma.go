package pixel

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// LumaSize is the length in bytes of a Luma: 16 bytes of big-endian amount
// followed by 16 bytes of reserved blinding (spec.md §3).
const LumaSize = 32

// amountSize is the width of the amount half of a Luma.
const amountSize = 16

// Luma is the amount field of a pixel. Plain transfers carry a zero
// blinding half; range-proof (bulletproof) transfers encode the amount
// commitment's hash into the blinding half instead of a raw amount, see
// NewBulletproofLuma.
type Luma struct {
	amount   [amountSize]byte
	blinding [amountSize]byte
}

// NewLuma builds a plain-transfer Luma for amt, zero blinding.
func NewLuma(amt uint64) Luma {
	var l Luma
	binary.BigEndian.PutUint64(l.amount[amountSize-8:], amt)
	return l
}

// NewLumaFromBigInt builds a plain-transfer Luma for a big.Int amount, which
// must fit in 128 bits.
func NewLumaFromBigInt(amt *big.Int) (Luma, error) {
	var l Luma
	if amt.Sign() < 0 {
		return l, fmt.Errorf("%w: luma amount must be non-negative", ErrMalformed)
	}
	b := amt.Bytes()
	if len(b) > amountSize {
		return l, fmt.Errorf("%w: luma amount overflows 128 bits", ErrMalformed)
	}
	copy(l.amount[amountSize-len(b):], b)
	return l, nil
}

// NewBulletproofLuma builds a Luma whose blinding half carries the hash of
// the commitment and range proof, per spec.md §3's Bulletproof variant. The
// amount half is left zero; callers must not treat it as a real amount.
func NewBulletproofLuma(commitmentAndRangeProofHash [amountSize]byte) Luma {
	var l Luma
	l.blinding = commitmentAndRangeProofHash
	return l
}

// LumaFromBytes parses the 32-byte wire representation of a Luma.
func LumaFromBytes(b []byte) (Luma, error) {
	var l Luma
	if len(b) != LumaSize {
		return l, fmt.Errorf("%w: luma must be %d bytes, got %d",
			ErrMalformed, LumaSize, len(b))
	}
	copy(l.amount[:], b[:amountSize])
	copy(l.blinding[:], b[amountSize:])
	return l, nil
}

// Bytes returns the 32-byte wire representation: amount || blinding.
func (l Luma) Bytes() [LumaSize]byte {
	var out [LumaSize]byte
	copy(out[:amountSize], l.amount[:])
	copy(out[amountSize:], l.blinding[:])
	return out
}

// AmountBytes returns the raw 16-byte big-endian amount half.
func (l Luma) AmountBytes() [amountSize]byte {
	return l.amount
}

// BlindingBytes returns the raw 16-byte blinding/commitment-hash half.
func (l Luma) BlindingBytes() [amountSize]byte {
	return l.blinding
}

// IsBlinded reports whether the blinding half is non-zero, i.e. this Luma
// was produced by NewBulletproofLuma rather than NewLuma.
func (l Luma) IsBlinded() bool {
	var zero [amountSize]byte
	return l.blinding != zero
}

// Amount interprets the amount half as a uint64. Overflow (amounts using the
// high 8 bytes) is reported via ok=false; callers needing the full 128-bit
// range should use AmountBigInt.
func (l Luma) Amount() (amt uint64, ok bool) {
	for _, b := range l.amount[:amountSize-8] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(l.amount[amountSize-8:]), true
}

// AmountBigInt interprets the amount half as an arbitrary-precision
// unsigned integer, with no overflow risk.
func (l Luma) AmountBigInt() *big.Int {
	return new(big.Int).SetBytes(l.amount[:])
}

// Equal reports whether two Luma values have identical wire bytes.
func (l Luma) Equal(o Luma) bool {
	return l.amount == o.amount && l.blinding == o.blinding
}
