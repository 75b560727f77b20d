package pixel

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// makeTestPixel builds a deterministic, non-empty pixel for a given issuer
// key, used across this file's tweak round-trip cases.
func makeTestPixel(t *testing.T, issuer *btcec.PrivateKey, amount uint64) Pixel {
	t.Helper()
	return NewPixel(NewLuma(amount), ChromaFromPublicKey(issuer.PubKey()))
}

// TestPixelKeySecretRoundTrip checks spec.md §8 invariant 1:
// PixelSecret(sk, p)·G == PixelKey(sk·G, p) for every sk and pixel,
// including both parities of the untweaked owner key.
func TestPixelKeySecretRoundTrip(t *testing.T) {
	issuerSK, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		ownerSK, err := btcec.NewPrivateKey()
		require.NoError(t, err)

		p := makeTestPixel(t, issuerSK, uint64(i)*1000)

		tweakedSK := PixelSecret(ownerSK, p)
		tweakedPK := PixelKey(ownerSK.PubKey(), p)

		require.True(t, tweakedSK.PubKey().IsEqual(tweakedPK),
			"round trip failed for iteration %d", i)
	}
}

// TestPixelKeyDeterministic checks that PixelKey is a pure function of its
// inputs: calling it twice with the same arguments yields the same point.
func TestPixelKeyDeterministic(t *testing.T) {
	issuerSK, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	ownerSK, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	p := makeTestPixel(t, issuerSK, 42)

	k1 := PixelKey(ownerSK.PubKey(), p)
	k2 := PixelKey(ownerSK.PubKey(), p)
	require.True(t, k1.IsEqual(k2))
}

// TestPixelKeyDistinctForDistinctPixels ensures the tweak actually depends
// on the pixel, not just the owner key.
func TestPixelKeyDistinctForDistinctPixels(t *testing.T) {
	issuerSK, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	ownerSK, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	p1 := makeTestPixel(t, issuerSK, 1)
	p2 := makeTestPixel(t, issuerSK, 2)

	k1 := PixelKey(ownerSK.PubKey(), p1)
	k2 := PixelKey(ownerSK.PubKey(), p2)
	require.False(t, k1.IsEqual(k2))
}

// TestEvenPublicKeyCanonicalizesParity confirms evenPublicKey always
// returns an even-Y key, regardless of the input's parity.
func TestEvenPublicKeyCanonicalizesParity(t *testing.T) {
	for i := 0; i < 16; i++ {
		sk, err := btcec.NewPrivateKey()
		require.NoError(t, err)

		even, _, _ := evenPublicKey(sk.PubKey())
		require.Equal(t, byte(0x02), even.SerializeCompressed()[0])
	}
}
