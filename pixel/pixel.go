package pixel

import "crypto/sha256"

// Pixel is the coin's content: an amount (Luma) of a token type (Chroma),
// per spec.md §3.
type Pixel struct {
	Luma   Luma
	Chroma Chroma
}

// NewPixel builds a Pixel from its two halves.
func NewPixel(luma Luma, chroma Chroma) Pixel {
	return Pixel{Luma: luma, Chroma: chroma}
}

// emptyChromaGenerator is the canonical even-parity generator constant used
// as the chroma of the "empty pixel" (spec.md §3, Empty pixel). It is the
// secp256k1 base point's X coordinate, a fixed, nothing-up-my-sleeve value
// shared by every empty-pixel output on the network so that two empty-pixel
// outputs always tweak identically for the same owner key.
var emptyChromaGenerator = Chroma{x: [32]byte{
	0x79, 0xbe, 0x66, 0x7e, 0xf9, 0xdc, 0xbb, 0xac,
	0x55, 0xa0, 0x62, 0x95, 0xce, 0x87, 0x0b, 0x07,
	0x02, 0x9b, 0xfc, 0xdb, 0x2d, 0xce, 0x28, 0xd9,
	0x59, 0xf2, 0x81, 0x5b, 0x16, 0xf8, 0x17, 0x98,
}}

// EmptyPixel returns the canonical empty pixel: zero amount, the canonical
// even-parity generator chroma (spec.md §3). Change outputs that carry
// satoshis but no token value use this pixel's tweak.
func EmptyPixel() Pixel {
	return Pixel{Luma: NewLuma(0), Chroma: emptyChromaGenerator}
}

// IsEmpty reports whether p is the canonical empty pixel.
func (p Pixel) IsEmpty() bool {
	amt, ok := p.Luma.Amount()
	return ok && amt == 0 && !p.Luma.IsBlinded() && p.Chroma.Equal(emptyChromaGenerator)
}

// Hash computes PixelHash = H(H(luma_bytes) || chroma_xonly_bytes) with
// SHA-256, per spec.md §3. PixelHash uniquely names a pixel for tweaking.
func (p Pixel) Hash() [32]byte {
	lumaBytes := p.Luma.Bytes()
	innerSum := sha256.Sum256(lumaBytes[:])

	chromaBytes := p.Chroma.Bytes()
	outer := sha256.New()
	outer.Write(innerSum[:])
	outer.Write(chromaBytes[:])

	var out [32]byte
	copy(out[:], outer.Sum(nil))
	return out
}

// Equal reports whether two pixels carry the same luma and chroma.
func (p Pixel) Equal(o Pixel) bool {
	return p.Luma.Equal(o.Luma) && p.Chroma.Equal(o.Chroma)
}
