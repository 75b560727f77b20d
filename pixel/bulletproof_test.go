package pixel

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func newBlinding(t *testing.T) *btcec.ModNScalar {
	t.Helper()
	sk := newKey(t)
	return &sk.Key
}

// TestPedersenCommitmentRoundTrip checks commitments serialize and parse
// back to an equal point.
func TestPedersenCommitmentRoundTrip(t *testing.T) {
	r := newBlinding(t)
	c := NewPedersenCommitment(12345, r)

	back, err := PedersenCommitmentFromBytes(c.Bytes())
	require.NoError(t, err)
	require.Equal(t, c.Bytes(), back.Bytes())
}

// TestPedersenCommitmentBindsAmount checks distinct amounts (same blinding)
// commit to distinct points, i.e. the commitment is not degenerate.
func TestPedersenCommitmentBindsAmount(t *testing.T) {
	r := newBlinding(t)
	c1 := NewPedersenCommitment(1, r)
	c2 := NewPedersenCommitment(2, r)
	require.NotEqual(t, c1.Bytes(), c2.Bytes())
}

// TestRangeProofRoundTrip checks GenerateRangeProof/VerifyRangeProof agree
// for a handful of amounts, and that a tampered proof is rejected.
func TestRangeProofRoundTrip(t *testing.T) {
	for _, amount := range []uint64{0, 1, 42, 1 << 40} {
		r := newBlinding(t)
		commitment := NewPedersenCommitment(amount, r)

		proof, err := GenerateRangeProof(amount, r)
		require.NoError(t, err)

		require.NoError(t, VerifyRangeProof(commitment.Bytes(), proof))

		tampered := append([]byte{}, proof...)
		tampered[0] ^= 0xff
		err = VerifyRangeProof(commitment.Bytes(), tampered)
		require.Error(t, err)
	}
}

// TestBulletproofLumaHashDeterministic checks the luma-binding hash is a
// pure function of its inputs.
func TestBulletproofLumaHashDeterministic(t *testing.T) {
	r := newBlinding(t)
	commitment := NewPedersenCommitment(7, r)
	proof, err := GenerateRangeProof(7, r)
	require.NoError(t, err)

	h1 := bulletproofLumaHash(commitment.Bytes(), proof)
	h2 := bulletproofLumaHash(commitment.Bytes(), proof)
	require.Equal(t, h1, h2)
}

// TestSignVerifyBulletproofTxAndChroma checks both binding-signature round
// trips and that swapping context (tx vs chroma) is rejected.
func TestSignVerifyBulletproofTxAndChroma(t *testing.T) {
	sk := newKey(t)
	r := newBlinding(t)
	commitment := NewPedersenCommitment(9, r)

	var txid [32]byte
	txid[0] = 0xAB

	txSig, err := SignBulletproofTx(sk, txid, commitment.Bytes())
	require.NoError(t, err)
	require.NoError(t, VerifyBulletproofTx(sk.PubKey(), txid, commitment.Bytes(), txSig))

	chroma := ChromaFromPublicKey(newKey(t).PubKey())
	chromaSig, err := SignBulletproofChroma(sk, chroma, commitment.Bytes())
	require.NoError(t, err)
	require.NoError(t, VerifyBulletproofChroma(sk.PubKey(), chroma, commitment.Bytes(), chromaSig))

	err = VerifyBulletproofChroma(sk.PubKey(), chroma, commitment.Bytes(), txSig)
	require.Error(t, err)
}
