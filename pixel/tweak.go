package pixel

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
)

// tweakScalar computes H(pixelHash || evenPub_xonly) reduced mod the curve
// order, the scalar added to (or whose corresponding point is added to) the
// owner key during tweaking (spec.md §3, PixelKey).
func tweakScalar(pixelHash [32]byte, evenPubXOnly []byte) *btcec.ModNScalar {
	h := sha256.New()
	h.Write(pixelHash[:])
	h.Write(evenPubXOnly)
	digest := h.Sum(nil)

	var scalar btcec.ModNScalar
	scalar.SetByteSlice(digest)
	return &scalar
}

// evenPublicKey returns p negated to even-Y parity, and the XOnly byte
// serialization used to compute the tweak hash. It also reports whether a
// negation was actually necessary, which PixelSecret needs to mirror on the
// secret-key side.
func evenPublicKey(p *btcec.PublicKey) (even *btcec.PublicKey, xonly []byte, wasOdd bool) {
	compressed := p.SerializeCompressed()
	wasOdd = compressed[0] == secp256k1OddParityByte

	if !wasOdd {
		return p, compressed[1:], false
	}

	var jacobian btcec.JacobianPoint
	p.AsJacobian(&jacobian)
	jacobian.Y.Negate(1)
	jacobian.Y.Normalize()
	negated := btcec.NewPublicKey(&jacobian.X, &jacobian.Y)
	return negated, negated.SerializeCompressed()[1:], true
}

const secp256k1OddParityByte = 0x03

// PixelKey derives the on-chain spending key P' for owner key P and pixel,
// per spec.md §3: P is first canonicalized to even parity, then
// P' = evenP + H(PixelHash(pixel) || evenP)·G.
func PixelKey(owner *btcec.PublicKey, p Pixel) *btcec.PublicKey {
	evenPub, xonly, _ := evenPublicKey(owner)

	scalar := tweakScalar(p.Hash(), xonly)

	var tweakPoint, ownerJacobian, resultJacobian btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(scalar, &tweakPoint)
	evenPub.AsJacobian(&ownerJacobian)
	btcec.AddNonConst(&ownerJacobian, &tweakPoint, &resultJacobian)
	resultJacobian.ToAffine()

	return btcec.NewPublicKey(&resultJacobian.X, &resultJacobian.Y)
}

// PixelSecret derives the tweaked secret key for owner secret sk and pixel,
// satisfying PixelSecret(sk, pixel)·G == PixelKey(sk·G, pixel) for every sk
// and pixel (spec.md §8, invariant 1). The secret key is negated iff the
// untweaked public key sk·G had odd Y, mirroring PixelKey's canonicalization
// on the public side so the two stay in lock-step.
func PixelSecret(sk *btcec.PrivateKey, p Pixel) *btcec.PrivateKey {
	pub := sk.PubKey()
	_, xonly, wasOdd := evenPublicKey(pub)

	skScalar := sk.Key
	if wasOdd {
		skScalar.Negate()
	}

	scalar := tweakScalar(p.Hash(), xonly)

	var tweaked btcec.ModNScalar
	tweaked.Set(&skScalar)
	tweaked.Add(scalar)

	tweakedBytes := tweaked.Bytes()
	return btcec.PrivKeyFromBytes(tweakedBytes[:])
}
