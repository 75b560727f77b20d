package pixel

import "github.com/btcsuite/btcd/btcec/v2"

// VariantTag is the stable on-wire discriminant for a Proof variant
// (spec.md §6, Proof maps).
type VariantTag uint8

const (
	VariantSig VariantTag = iota
	VariantMultisig
	VariantLightningCommitment
	VariantLightningHTLC
	VariantEmpty
	VariantBulletproof
)

// String implements fmt.Stringer for log/debug output.
func (t VariantTag) String() string {
	switch t {
	case VariantSig:
		return "sig"
	case VariantMultisig:
		return "multisig"
	case VariantLightningCommitment:
		return "lightning-commitment"
	case VariantLightningHTLC:
		return "lightning-htlc"
	case VariantEmpty:
		return "empty"
	case VariantBulletproof:
		return "bulletproof"
	default:
		return "unknown"
	}
}

// Proof is the tagged sum described in spec.md §3: a witness that a
// particular pixel is bound to a Bitcoin input or output via the tweak
// model. Every variant is a total match on Variant(); there is no runtime
// dispatch beyond that single switch (spec.md §9, Tagged variants).
type Proof interface {
	// Variant returns this proof's stable on-wire discriminant.
	Variant() VariantTag

	// Pixel returns the pixel this proof witnesses.
	Pixel() Pixel
}

// SigProof witnesses a single-sig P2WPKH owner (spec.md §3, Sig).
type SigProof struct {
	PixelValue Pixel
	Owner      *btcec.PublicKey
	Sig        []byte // DER-encoded ECDSA signature, present once signed
}

func (p *SigProof) Variant() VariantTag { return VariantSig }
func (p *SigProof) Pixel() Pixel        { return p.PixelValue }

// MultisigProof witnesses an m-of-N P2WSH multisig where the lexicographically
// smallest of the N compressed keys is tweaked (spec.md §3, Multisig).
type MultisigProof struct {
	PixelValue Pixel
	M          uint8
	Keys       []*btcec.PublicKey // all N keys, NOT pre-sorted
	Sigs       map[int][]byte     // key index (post-sort) -> DER signature
}

func (p *MultisigProof) Variant() VariantTag { return VariantMultisig }
func (p *MultisigProof) Pixel() Pixel        { return p.PixelValue }

// LightningCommitmentProof witnesses a BOLT-3 to_local output, where the
// revocation key is tweaked and the delay/delayed key are not (spec.md §3).
type LightningCommitmentProof struct {
	PixelValue   Pixel
	RevocationKey *btcec.PublicKey
	ToSelfDelay  uint16
	DelayedKey   *btcec.PublicKey
	Sig          []byte
}

func (p *LightningCommitmentProof) Variant() VariantTag { return VariantLightningCommitment }
func (p *LightningCommitmentProof) Pixel() Pixel        { return p.PixelValue }

// HTLCKind distinguishes offered from received BOLT-3 HTLC scripts.
type HTLCKind uint8

const (
	HTLCOffered HTLCKind = iota
	HTLCReceived
)

// LightningHTLCProof witnesses a BOLT-3 HTLC output, where the remote HTLC
// key is tweaked (spec.md §3, Lightning HTLC).
type LightningHTLCProof struct {
	PixelValue  Pixel
	Kind        HTLCKind
	RemoteHTLCKey *btcec.PublicKey
	LocalHTLCKey  *btcec.PublicKey
	RevocationKey *btcec.PublicKey
	PaymentHash   [32]byte
	CltvExpiry    uint32 // only meaningful for HTLCOffered
}

func (p *LightningHTLCProof) Variant() VariantTag { return VariantLightningHTLC }
func (p *LightningHTLCProof) Pixel() Pixel        { return p.PixelValue }

// EmptyProof witnesses a change output carrying satoshis but no token value
// (spec.md §3, Empty pixel). PixelValue is always EmptyPixel(); the field
// exists so Proof's interface stays uniform.
type EmptyProof struct {
	PixelValue Pixel
	Owner      *btcec.PublicKey
	Sig        []byte
}

func (p *EmptyProof) Variant() VariantTag { return VariantEmpty }
func (p *EmptyProof) Pixel() Pixel        { return p.PixelValue }

// BulletproofProof witnesses a hidden-amount transfer (spec.md §3,
// Bulletproof, optional feature).
type BulletproofProof struct {
	PixelValue    Pixel
	Owner         *btcec.PublicKey
	SenderPubKey  *btcec.PublicKey
	Commitment    []byte // serialized Pedersen commitment v*H + r*G
	RangeProof    []byte
	TxSig         []byte // per-transaction Schnorr signature
	ChromaSig     []byte // per-chroma Schnorr signature
	Sig           []byte // ordinary P2WPKH spend signature over Owner/PixelKey
}

func (p *BulletproofProof) Variant() VariantTag { return VariantBulletproof }
func (p *BulletproofProof) Pixel() Pixel        { return p.PixelValue }

// IsBulletproof reports whether a proof is the hidden-amount variant,
// used to enforce spec invariant 9 (bulletproof/non-bulletproof proofs
// never coexist in one transaction).
func IsBulletproof(p Proof) bool {
	return p.Variant() == VariantBulletproof
}
