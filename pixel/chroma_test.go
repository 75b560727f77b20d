package pixel

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// TestChromaXOnlyEquality checks that two keys differing only in Y parity
// name the same chroma (spec.md §3, Chroma equality is X-only).
func TestChromaXOnlyEquality(t *testing.T) {
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	even, _, _ := evenPublicKey(sk.PubKey())

	var jacobian btcec.JacobianPoint
	even.AsJacobian(&jacobian)
	jacobian.Y.Negate(1)
	jacobian.Y.Normalize()
	odd := btcec.NewPublicKey(&jacobian.X, &jacobian.Y)

	require.True(t, ChromaFromPublicKey(even).Equal(ChromaFromPublicKey(odd)))
}

// TestChromaAddressRoundTrip checks ChromaFromAddress(c.ToAddress(p)) == c
// for every supported network.
func TestChromaAddressRoundTrip(t *testing.T) {
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	c := ChromaFromPublicKey(sk.PubKey())

	for _, params := range []*chaincfg.Params{
		&chaincfg.MainNetParams,
		&chaincfg.TestNet3Params,
		&chaincfg.RegressionNetParams,
		&chaincfg.SimNetParams,
	} {
		addr, err := c.ToAddress(params)
		require.NoError(t, err)

		back, err := ChromaFromAddress(addr)
		require.NoError(t, err)
		require.True(t, c.Equal(back), "round trip failed for %s", params.Name)
	}
}

// TestChromaBytesRoundTrip checks ChromaFromBytes(c.Bytes()) == c.
func TestChromaBytesRoundTrip(t *testing.T) {
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	c := ChromaFromPublicKey(sk.PubKey())

	b := c.Bytes()
	back, err := ChromaFromBytes(b[:])
	require.NoError(t, err)
	require.True(t, c.Equal(back))
}
