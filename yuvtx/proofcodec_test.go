package yuvtx

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return sk
}

func testPixel(t *testing.T, issuer *btcec.PrivateKey, amount uint64) pixel.Pixel {
	t.Helper()
	return pixel.NewPixel(pixel.NewLuma(amount), pixel.ChromaFromPublicKey(issuer.PubKey()))
}

// TestProofRoundTripAllVariants checks decode(encode(proof)) == proof for
// every proof variant (spec.md §8 round-trip property).
func TestProofRoundTripAllVariants(t *testing.T) {
	issuer := newKey(t)
	p := testPixel(t, issuer, 500)

	cases := []pixel.Proof{
		&pixel.SigProof{PixelValue: p, Owner: newKey(t).PubKey(), Sig: []byte("sig-bytes")},
		&pixel.EmptyProof{PixelValue: pixel.EmptyPixel(), Owner: newKey(t).PubKey(), Sig: []byte("sig")},
		&pixel.MultisigProof{
			PixelValue: p,
			M:          2,
			Keys:       []*btcec.PublicKey{newKey(t).PubKey(), newKey(t).PubKey(), newKey(t).PubKey()},
			Sigs:       map[int][]byte{0: []byte("sig0"), 2: []byte("sig2")},
		},
		&pixel.LightningCommitmentProof{
			PixelValue:    p,
			RevocationKey: newKey(t).PubKey(),
			ToSelfDelay:   144,
			DelayedKey:    newKey(t).PubKey(),
			Sig:           []byte("sig"),
		},
		&pixel.LightningHTLCProof{
			PixelValue:    p,
			Kind:          pixel.HTLCOffered,
			RemoteHTLCKey: newKey(t).PubKey(),
			LocalHTLCKey:  newKey(t).PubKey(),
			RevocationKey: newKey(t).PubKey(),
			PaymentHash:   [32]byte{9, 9, 9},
			CltvExpiry:    600_000,
		},
		&pixel.BulletproofProof{
			PixelValue:   p,
			Owner:        newKey(t).PubKey(),
			SenderPubKey: newKey(t).PubKey(),
			Commitment:   []byte("commitment-bytes"),
			RangeProof:   []byte("range-proof-bytes"),
			TxSig:        []byte("tx-sig"),
			ChromaSig:    []byte("chroma-sig"),
			Sig:          []byte("sig"),
		},
	}

	for _, c := range cases {
		encoded, err := EncodeProof(c)
		require.NoError(t, err)

		decoded, n, err := DecodeProof(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, c, decoded)
	}
}

// TestProofMapRoundTrip checks a multi-entry proof map survives encode then
// decode with indices intact.
func TestProofMapRoundTrip(t *testing.T) {
	issuer := newKey(t)
	p := testPixel(t, issuer, 10)

	m := ProofMap{
		0: &pixel.SigProof{PixelValue: p, Owner: newKey(t).PubKey(), Sig: []byte("a")},
		3: &pixel.SigProof{PixelValue: p, Owner: newKey(t).PubKey(), Sig: []byte("bb")},
	}

	encoded, err := EncodeProofMap(m)
	require.NoError(t, err)

	decoded, n, err := DecodeProofMap(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, m, decoded)
}
