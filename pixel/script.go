package pixel

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by BOLT-3 HASH160 templates
)

// tweakedCompressed returns the compressed serialization of PixelKey(owner,
// pixel), the public key every non-Lightning script variant ultimately pays
// to.
func tweakedCompressed(owner *btcec.PublicKey, p Pixel) []byte {
	return PixelKey(owner, p).SerializeCompressed()
}

// p2wpkhScript builds a version-0 witness program paying to the hash160 of
// pub, i.e. P2WPKH(pub).
func p2wpkhScript(pub []byte) ([]byte, error) {
	hash := btcutil.Hash160(pub)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(hash).
		Script()
}

// p2wshScript builds a version-0 witness program paying to SHA-256(redeem),
// i.e. P2WSH(redeem).
func p2wshScript(redeem []byte) ([]byte, error) {
	hash := sha256.Sum256(redeem)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(hash[:]).
		Script()
}

// sortMultisigKeys returns keys sorted lexicographically by their compressed
// serialization and the position the tweaked (smallest) key ended up at,
// mirroring backend-engineer1-land's genMultiSigScript sort-then-build
// idiom (spec.md §3, Multisig: "the first (smallest) key is tweaked").
func sortMultisigKeys(keys []*btcec.PublicKey) ([]*btcec.PublicKey, int) {
	sorted := make([]*btcec.PublicKey, len(keys))
	copy(sorted, keys)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			a := sorted[j-1].SerializeCompressed()
			b := sorted[j].SerializeCompressed()
			if bytes.Compare(a, b) <= 0 {
				break
			}
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted, 0
}

// multisigRedeemScript builds the standard m-of-N redeem script for sorted
// keys, with sorted[0] replaced by its tweaked form.
func multisigRedeemScript(m uint8, sorted []*btcec.PublicKey, pixel Pixel) ([]byte, error) {
	if int(m) == 0 || int(m) > len(sorted) || len(sorted) > 15 {
		return nil, fmt.Errorf("%w: invalid m-of-n (%d-of-%d)", ErrMalformed, m, len(sorted))
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_1 - 1 + int(m))

	tweaked := tweakedCompressed(sorted[0], pixel)
	builder.AddData(tweaked)
	for _, k := range sorted[1:] {
		builder.AddData(k.SerializeCompressed())
	}

	builder.AddOp(txscript.OP_1 - 1 + int(len(sorted)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

// lightningCommitmentRedeemScript builds the BOLT-3 to_local script with the
// revocation key tweaked (spec.md §4.1):
//
//	IF <revocation'> ELSE <delay> OP_CSV OP_DROP <delayed> ENDIF OP_CHECKSIG
func lightningCommitmentRedeemScript(p *LightningCommitmentProof) ([]byte, error) {
	tweakedRevocation := tweakedCompressed(p.RevocationKey, p.PixelValue)

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddData(tweakedRevocation)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(p.ToSelfDelay))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(p.DelayedKey.SerializeCompressed())
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_CHECKSIG)
	return builder.Script()
}

// ripemd160Hash160 matches BOLT-3's HASH160 = RIPEMD160(SHA256(x)).
func ripemd160Hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(sha[:])
	return r.Sum(nil)
}

// htlcRedeemScript builds the BOLT-3 offered/received HTLC script with the
// remote HTLC key tweaked (spec.md §3, Lightning HTLC).
func htlcRedeemScript(p *LightningHTLCProof) ([]byte, error) {
	tweakedRemote := tweakedCompressed(p.RemoteHTLCKey, p.PixelValue)
	revocationHash := ripemd160Hash160(p.RevocationKey.SerializeCompressed())
	paymentHash160 := ripemd160.New()
	paymentHash160.Write(p.PaymentHash[:])

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(revocationHash)
	b.AddOp(txscript.OP_EQUAL)
	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ELSE)
	b.AddData(tweakedRemote)
	b.AddOp(txscript.OP_SWAP)
	b.AddOp(txscript.OP_SIZE)
	b.AddInt64(32)
	b.AddOp(txscript.OP_EQUAL)

	switch p.Kind {
	case HTLCOffered:
		b.AddOp(txscript.OP_NOTIF)
		b.AddOp(txscript.OP_DROP)
		b.AddInt64(2)
		b.AddOp(txscript.OP_SWAP)
		b.AddData(p.LocalHTLCKey.SerializeCompressed())
		b.AddInt64(2)
		b.AddOp(txscript.OP_CHECKMULTISIG)
		b.AddOp(txscript.OP_ELSE)
		b.AddOp(txscript.OP_HASH160)
		b.AddData(paymentHash160.Sum(nil))
		b.AddOp(txscript.OP_EQUALVERIFY)
		b.AddOp(txscript.OP_CHECKSIG)
		b.AddOp(txscript.OP_ENDIF)

	case HTLCReceived:
		b.AddOp(txscript.OP_IF)
		b.AddOp(txscript.OP_HASH160)
		b.AddData(paymentHash160.Sum(nil))
		b.AddOp(txscript.OP_EQUALVERIFY)
		b.AddInt64(2)
		b.AddOp(txscript.OP_SWAP)
		b.AddData(p.LocalHTLCKey.SerializeCompressed())
		b.AddInt64(2)
		b.AddOp(txscript.OP_CHECKMULTISIG)
		b.AddOp(txscript.OP_ELSE)
		b.AddOp(txscript.OP_DROP)
		b.AddInt64(int64(p.CltvExpiry))
		b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
		b.AddOp(txscript.OP_DROP)
		b.AddOp(txscript.OP_CHECKSIG)
		b.AddOp(txscript.OP_ENDIF)

	default:
		return nil, fmt.Errorf("%w: unknown htlc kind %d", ErrMalformed, p.Kind)
	}

	b.AddOp(txscript.OP_ENDIF)
	return b.Script()
}

// OwnerScript derives the default authority script for a chroma that has
// never seen a TransferOwnership announcement: the P2WPKH script paying
// directly to the chroma's own X-only key reinterpreted as a compressed
// pubkey (spec.md §4.6 rule 7, "initially derived from the chroma
// itself"). Once a TransferOwnership announcement is seen, the checker
// uses its NewOwnerScript instead.
func OwnerScript(c Chroma) ([]byte, error) {
	pub, err := c.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("pixel: chroma owner key: %w", err)
	}
	return p2wpkhScript(pub.SerializeCompressed())
}

// Script derives the output script (and, for script-hash variants, returns
// the redeem script alongside it) for proof. This is the total function
// over proof variants described in spec.md §4.1.
func Script(p Proof) (pkScript []byte, redeemScript []byte, err error) {
	switch proof := p.(type) {
	case *SigProof:
		pk, err := p2wpkhScript(tweakedCompressed(proof.Owner, proof.PixelValue))
		return pk, nil, err

	case *EmptyProof:
		pk, err := p2wpkhScript(tweakedCompressed(proof.Owner, EmptyPixel()))
		return pk, nil, err

	case *MultisigProof:
		sorted, _ := sortMultisigKeys(proof.Keys)
		redeem, err := multisigRedeemScript(proof.M, sorted, proof.PixelValue)
		if err != nil {
			return nil, nil, err
		}
		pk, err := p2wshScript(redeem)
		return pk, redeem, err

	case *LightningCommitmentProof:
		redeem, err := lightningCommitmentRedeemScript(proof)
		if err != nil {
			return nil, nil, err
		}
		pk, err := p2wshScript(redeem)
		return pk, redeem, err

	case *LightningHTLCProof:
		redeem, err := htlcRedeemScript(proof)
		if err != nil {
			return nil, nil, err
		}
		pk, err := p2wshScript(redeem)
		return pk, redeem, err

	case *BulletproofProof:
		pk, err := p2wpkhScript(tweakedCompressed(proof.Owner, proof.PixelValue))
		return pk, nil, err

	default:
		return nil, nil, ErrUnknownProofVariant
	}
}

// CheckByOutput implements check_by_output(proof, txout) from spec.md §4.1:
// it fails with ErrScriptMismatch unless the derived script equals
// txout.PkScript, and additionally enforces the bulletproof luma/commitment
// equality and range-proof validity for bulletproof proofs.
func CheckByOutput(p Proof, txout *wire.TxOut) error {
	pkScript, _, err := Script(p)
	if err != nil {
		return err
	}
	if !bytes.Equal(pkScript, txout.PkScript) {
		return ErrScriptMismatch
	}

	bp, ok := p.(*BulletproofProof)
	if !ok {
		return nil
	}

	expectedHash := bulletproofLumaHash(bp.Commitment, bp.RangeProof)
	blinding := bp.PixelValue.Luma.BlindingBytes()
	if !bytes.Equal(expectedHash[:], blinding[:]) {
		return ErrLumaMismatch
	}

	if err := VerifyRangeProof(bp.Commitment, bp.RangeProof); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRangeProof, err)
	}
	return nil
}

// CheckByInput implements check_by_input(proof, txin) from spec.md §4.1: it
// parses the witness stack per variant and verifies signatures where that is
// possible without off-chain context. tx and idx identify the spending
// input within the full transaction, needed to compute a BIP-143 sighash;
// pkScript and amount describe the output tx.TxIn[idx] spends.
func CheckByInput(p Proof, tx *wire.MsgTx, idx int, pkScript []byte, amount int64) error {
	txin := tx.TxIn[idx]

	switch proof := p.(type) {
	case *SigProof:
		return checkWitnessSig(tx, idx, txin.Witness, proof.Owner, proof.PixelValue, pkScript, amount)

	case *EmptyProof:
		return checkWitnessSig(tx, idx, txin.Witness, proof.Owner, EmptyPixel(), pkScript, amount)

	case *BulletproofProof:
		return checkWitnessSig(tx, idx, txin.Witness, proof.Owner, proof.PixelValue, pkScript, amount)

	case *MultisigProof:
		return checkMultisigWitness(txin.Witness, proof)

	case *LightningCommitmentProof, *LightningHTLCProof:
		// Spending either requires off-chain context (the revocation
		// secret, an HTLC preimage, or waiting out a timeout) that a
		// generic, stateless checker cannot evaluate.
		return ErrNotSpendableByGenericWallet

	default:
		return ErrUnknownProofVariant
	}
}

// checkWitnessSig validates a standard P2WPKH witness stack: [sig, pubkey].
// The witness must reveal the tweaked key PixelKey(owner, pix) — that is the
// key whose hash160 the output's own pkScript (see p2wpkhScript) pays to —
// and sig must be a genuine BIP-143 signature from that key over tx's idx'th
// input.
func checkWitnessSig(tx *wire.MsgTx, idx int, witness wire.TxWitness, owner *btcec.PublicKey, pix Pixel, pkScript []byte, amount int64) error {
	if len(witness) != 2 {
		return fmt.Errorf("%w: expected 2 witness items, got %d", ErrMalformed, len(witness))
	}

	sigBytes, witnessPub := witness[0], witness[1]
	if len(sigBytes) == 0 {
		return fmt.Errorf("%w: empty signature", ErrMalformed)
	}

	pub, err := btcec.ParsePubKey(witnessPub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	tweaked := PixelKey(owner, pix)
	if !bytes.Equal(pub.SerializeCompressed(), tweaked.SerializeCompressed()) {
		return ErrPublicKeyMismatch
	}

	sig, err := ecdsa.ParseDERSignature(trimSighashType(sigBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	scriptCode, err := p2pkhScriptCode(tweaked.SerializeCompressed())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	hashType := txscript.SigHashType(sigBytes[len(sigBytes)-1])
	fetcher := txscript.NewCannedPrevOutputFetcher(pkScript, amount)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	sigHash, err := txscript.CalcWitnessSigHash(scriptCode, sigHashes, hashType, tx, idx, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !sig.Verify(sigHash, tweaked) {
		return ErrSignatureMismatch
	}
	return nil
}

// p2pkhScriptCode builds the legacy P2PKH-shaped script BIP-143 requires as
// the "script code" input to a P2WPKH witness's sighash (the witness
// program itself, OP_0 <hash>, is not the script code).
func p2pkhScriptCode(pub []byte) ([]byte, error) {
	hash := btcutil.Hash160(pub)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// trimSighashType drops the trailing sighash-type byte DER-encoded ECDSA
// signatures carry on the wire.
func trimSighashType(sig []byte) []byte {
	if len(sig) == 0 {
		return sig
	}
	return sig[:len(sig)-1]
}

// checkMultisigWitness validates a P2WSH multisig witness stack:
// [OP_0, sig..., redeemScript].
func checkMultisigWitness(witness wire.TxWitness, proof *MultisigProof) error {
	if len(witness) < 3 {
		return fmt.Errorf("%w: multisig witness too short", ErrMalformed)
	}

	redeemScript := witness[len(witness)-1]
	sorted, _ := sortMultisigKeys(proof.Keys)
	expectedRedeem, err := multisigRedeemScript(proof.M, sorted, proof.PixelValue)
	if err != nil {
		return err
	}
	if !bytes.Equal(redeemScript, expectedRedeem) {
		return ErrRedeemScriptMismatch
	}

	sigs := witness[1 : len(witness)-1]
	if len(sigs) < int(proof.M) {
		return fmt.Errorf("%w: expected at least %d signatures, got %d",
			ErrMalformed, proof.M, len(sigs))
	}
	return nil
}
