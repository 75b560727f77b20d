package pixel

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return sk
}

// TestCheckByOutputSigProof checks that Script()'s derived P2WPKH matches
// what CheckByOutput accepts, and rejects an unrelated script.
func TestCheckByOutputSigProof(t *testing.T) {
	issuer := newKey(t)
	owner := newKey(t)
	p := NewPixel(NewLuma(5), ChromaFromPublicKey(issuer.PubKey()))

	proof := &SigProof{PixelValue: p, Owner: owner.PubKey()}

	pkScript, redeem, err := Script(proof)
	require.NoError(t, err)
	require.Nil(t, redeem)

	require.NoError(t, CheckByOutput(proof, &wire.TxOut{PkScript: pkScript}))

	wrongOwner := newKey(t)
	wrongProof := &SigProof{PixelValue: p, Owner: wrongOwner.PubKey()}
	wrongScript, _, err := Script(wrongProof)
	require.NoError(t, err)

	err = CheckByOutput(proof, &wire.TxOut{PkScript: wrongScript})
	require.ErrorIs(t, err, ErrScriptMismatch)
}

// TestCheckByOutputEmptyProof checks the empty-pixel variant tweaks with
// the canonical empty pixel regardless of the proof's nominal PixelValue.
func TestCheckByOutputEmptyProof(t *testing.T) {
	owner := newKey(t)
	proof := &EmptyProof{PixelValue: EmptyPixel(), Owner: owner.PubKey()}

	pkScript, _, err := Script(proof)
	require.NoError(t, err)
	require.NoError(t, CheckByOutput(proof, &wire.TxOut{PkScript: pkScript}))
}

// TestMultisigScriptRoundTrip checks that Script() for a multisig proof
// derives a P2WSH output whose redeem script CheckByInput's witness
// validation accepts, and rejects a tampered redeem script.
func TestMultisigScriptRoundTrip(t *testing.T) {
	issuer := newKey(t)
	k1, k2, k3 := newKey(t), newKey(t), newKey(t)
	p := NewPixel(NewLuma(100), ChromaFromPublicKey(issuer.PubKey()))

	proof := &MultisigProof{
		PixelValue: p,
		M:          2,
		Keys:       []*btcec.PublicKey{k1.PubKey(), k2.PubKey(), k3.PubKey()},
	}

	pkScript, redeem, err := Script(proof)
	require.NoError(t, err)
	require.NotEmpty(t, redeem)
	require.NoError(t, CheckByOutput(proof, &wire.TxOut{PkScript: pkScript}))

	witness := wire.TxWitness{
		nil, // OP_0 CHECKMULTISIG off-by-one placeholder
		[]byte("sig1"),
		[]byte("sig2"),
		redeem,
	}
	require.NoError(t, checkMultisigWitness(witness, proof))

	tampered := append([]byte{}, redeem...)
	tampered[0] ^= 0xff
	witness[len(witness)-1] = tampered
	err = checkMultisigWitness(witness, proof)
	require.ErrorIs(t, err, ErrRedeemScriptMismatch)
}

// TestLightningCommitmentScript checks the to_local template derives a
// P2WSH CheckByOutput accepts.
func TestLightningCommitmentScript(t *testing.T) {
	issuer := newKey(t)
	revocation, delayed := newKey(t), newKey(t)
	p := NewPixel(NewLuma(1), ChromaFromPublicKey(issuer.PubKey()))

	proof := &LightningCommitmentProof{
		PixelValue:    p,
		RevocationKey: revocation.PubKey(),
		ToSelfDelay:   144,
		DelayedKey:    delayed.PubKey(),
	}

	pkScript, redeem, err := Script(proof)
	require.NoError(t, err)
	require.NotEmpty(t, redeem)
	require.NoError(t, CheckByOutput(proof, &wire.TxOut{PkScript: pkScript}))
}

// TestHTLCScriptBothKinds checks both offered and received HTLC templates
// derive distinct, internally valid P2WSH outputs.
func TestHTLCScriptBothKinds(t *testing.T) {
	issuer := newKey(t)
	remote, local, revocation := newKey(t), newKey(t), newKey(t)
	p := NewPixel(NewLuma(1), ChromaFromPublicKey(issuer.PubKey()))

	base := LightningHTLCProof{
		PixelValue:    p,
		RemoteHTLCKey: remote.PubKey(),
		LocalHTLCKey:  local.PubKey(),
		RevocationKey: revocation.PubKey(),
		PaymentHash:   [32]byte{1, 2, 3},
		CltvExpiry:    500_000,
	}

	offered := base
	offered.Kind = HTLCOffered
	offeredScript, _, err := Script(&offered)
	require.NoError(t, err)
	require.NoError(t, CheckByOutput(&offered, &wire.TxOut{PkScript: offeredScript}))

	received := base
	received.Kind = HTLCReceived
	receivedScript, _, err := Script(&received)
	require.NoError(t, err)
	require.NoError(t, CheckByOutput(&received, &wire.TxOut{PkScript: receivedScript}))

	require.NotEqual(t, offeredScript, receivedScript)
}

// TestCheckByInputRejectsWrongPublicKey checks the public-key-mismatch path
// independent of signature validity.
func TestCheckByInputRejectsWrongPublicKey(t *testing.T) {
	issuer := newKey(t)
	owner := newKey(t)
	wrong := newKey(t)
	p := NewPixel(NewLuma(1), ChromaFromPublicKey(issuer.PubKey()))
	proof := &SigProof{PixelValue: p, Owner: owner.PubKey()}

	witness := wire.TxWitness{
		make([]byte, 71),
		wrong.PubKey().SerializeCompressed(),
	}

	tx := &wire.MsgTx{TxIn: []*wire.TxIn{{Witness: witness}}}
	err := CheckByInput(proof, tx, 0, nil, 0)
	require.ErrorIs(t, err, ErrPublicKeyMismatch)
}

// TestCheckByInputHTLCIsNotGenericallySpendable checks spec.md §4.1's rule
// that Lightning proof variants cannot be validated by a stateless witness
// check alone.
func TestCheckByInputHTLCIsNotGenericallySpendable(t *testing.T) {
	proof := &LightningHTLCProof{}
	tx := &wire.MsgTx{TxIn: []*wire.TxIn{{}}}
	err := CheckByInput(proof, tx, 0, nil, 0)
	require.ErrorIs(t, err, ErrNotSpendableByGenericWallet)
}

// TestCheckByInputAcceptsGenuineSigProof exercises the full positive path a
// real wallet takes: sign the tweaked key's BIP-143 digest over a witness
// spending the proof's own Script() output, and confirm CheckByInput accepts
// it — catching both a wrong-key comparison and a fake sighash digest,
// either of which would make every real Transfer unspendable.
func TestCheckByInputAcceptsGenuineSigProof(t *testing.T) {
	issuer := newKey(t)
	owner := newKey(t)
	p := NewPixel(NewLuma(7), ChromaFromPublicKey(issuer.PubKey()))
	proof := &SigProof{PixelValue: p, Owner: owner.PubKey()}

	pkScript, _, err := Script(proof)
	require.NoError(t, err)

	const amount = int64(50_000)
	tx := &wire.MsgTx{
		Version: 2,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0},
		}},
		TxOut: []*wire.TxOut{{
			Value:    amount - 1_000,
			PkScript: []byte{txscript.OP_RETURN},
		}},
	}

	tweakedSecret := PixelSecret(owner, p)
	scriptCode, err := p2pkhScriptCode(tweakedSecret.PubKey().SerializeCompressed())
	require.NoError(t, err)

	fetcher := txscript.NewCannedPrevOutputFetcher(pkScript, amount)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	sig, err := txscript.RawTxInWitnessSignature(
		tx, sigHashes, 0, amount, scriptCode, txscript.SigHashAll, tweakedSecret,
	)
	require.NoError(t, err)

	tx.TxIn[0].Witness = wire.TxWitness{sig, tweakedSecret.PubKey().SerializeCompressed()}

	require.NoError(t, CheckByInput(proof, tx, 0, pkScript, amount))

	// Flipping one byte of the signature must not verify.
	tampered := append([]byte{}, sig...)
	tampered[5] ^= 0xff
	tx.TxIn[0].Witness = wire.TxWitness{tampered, tweakedSecret.PubKey().SerializeCompressed()}
	err = CheckByInput(proof, tx, 0, pkScript, amount)
	require.Error(t, err)
}
