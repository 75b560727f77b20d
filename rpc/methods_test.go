package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/chainrpc"
	"github.com/pixelnode/pixeld/checker"
	"github.com/pixelnode/pixeld/controller"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/internal/metrics"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return sk
}

func leAmountBytes(amount uint64) [16]byte {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(amount >> (8 * i))
	}
	return b
}

func issueTxWith(chroma pixel.Chroma, amount uint64) *yuvtx.IssueTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x01}))
	return &yuvtx.IssueTx{
		Tx:           tx,
		Announcement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: leAmountBytes(amount)},
	}
}

func newTestServer(t *testing.T) (*Server, *store.Store, *eventbus.Bus, *chainrpc.Fake) {
	t.Helper()
	st := store.New(store.NewMemKV())
	bus := eventbus.New()
	fake := chainrpc.NewFake()
	chk := checker.New(checker.Config{Source: fake, Store: st, Bus: bus, Workers: 1})
	ctrl := controller.New(controller.Config{
		Store:              st,
		Bus:                bus,
		Metrics:            metrics.New(),
		InvSharingInterval: 0,
		MaxInvSize:         controller.DefaultMaxInvSize,
	})
	s := New(Config{
		Store:  st,
		Bus:    bus,
		Status: ctrl,
		Check:  chk,
		Source: fake,
	})
	return s, st, bus, fake
}

func putParentTx(fake *chainrpc.Fake, outs ...*wire.TxOut) chainhash.Hash {
	parent := wire.NewMsgTx(2)
	parent.TxOut = outs
	txid := parent.TxHash()
	fake.Txs[txid] = btcutil.NewTx(parent)
	return txid
}

func rpcCall(t *testing.T, s *Server, method string, params interface{}) response {
	t.Helper()
	paramsRaw, err := json.Marshal(params)
	require.NoError(t, err)

	req := request{JSONRPC: "2.0", Method: method, Params: paramsRaw, ID: json.RawMessage(`1`)}
	return s.dispatch(req)
}

func TestSendYuvTransactionPublishesInitialize(t *testing.T) {
	s, _, bus, _ := newTestServer(t)
	in := bus.Subscribe(eventbus.TopicInitializeTxs)

	chroma := pixel.ChromaFromPublicKey(newKey(t).PubKey())
	tx := issueTxWith(chroma, 10)
	tx.OutputProofs = yuvtx.ProofMap{}
	hexTx, err := yuvtx.Encode(tx)
	require.NoError(t, err)

	resp := rpcCall(t, s, "sendyuvtransaction", sendTxParams{TxHex: hexTx})
	require.Nil(t, resp.Error)
	require.Equal(t, true, resp.Result)

	msg := <-in
	init, ok := msg.(eventbus.InitializeTxs)
	require.True(t, ok)
	require.Len(t, init.Txs, 1)
}

func TestSendYuvTransactionRejectsMalformedHex(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	resp := rpcCall(t, s, "sendyuvtransaction", sendTxParams{TxHex: "not-hex"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestMethodNotFoundReturnsJSONRPCError(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	resp := rpcCall(t, s, "nosuchmethod", map[string]string{})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestGetYuvTransactionReportsNoneForUnknown(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	zero := make([]byte, 32)
	resp := rpcCall(t, s, "getyuvtransaction", txidParams{Txid: hex.EncodeToString(zero)})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var res transactionResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, "none", res.Status)
}

func TestGetYuvTransactionReportsAttachedWithData(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	chroma := pixel.ChromaFromPublicKey(newKey(t).PubKey())
	tx := issueTxWith(chroma, 10)
	tx.OutputProofs = yuvtx.ProofMap{}

	require.NoError(t, st.PutTx(tx.Txid(), tx))

	resp := rpcCall(t, s, "getyuvtransaction", txidParams{Txid: tx.Txid().String()})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var res transactionResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, "attached", res.Status)
	require.NotEmpty(t, res.Data)
}

func TestIsYuvTxOutFrozenFalseWhenAbsent(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	zero := make([]byte, 32)
	resp := rpcCall(t, s, "isyuvtxoutfrozen", outpointParams{Txid: hex.EncodeToString(zero), Vout: 0})
	require.Nil(t, resp.Error)
	require.Equal(t, false, resp.Result)
}

func TestIsYuvTxOutFrozenTrueWhenPresent(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	var txid chainhash.Hash
	txid[0] = 0xAB
	chroma := pixel.ChromaFromPublicKey(newKey(t).PubKey())
	outpoint := store.OutpointBytes(txid, 2)
	require.NoError(t, st.PutFreeze(outpoint, &store.FreezeRecord{Txid: txid, Chroma: chroma}))

	resp := rpcCall(t, s, "isyuvtxoutfrozen", outpointParams{Txid: txid.String(), Vout: 2})
	require.Nil(t, resp.Error)
	require.Equal(t, true, resp.Result)
}

func TestEmulateYuvTransactionValid(t *testing.T) {
	s, _, _, fake := newTestServer(t)

	issuer := newKey(t)
	chroma := pixel.ChromaFromPublicKey(issuer.PubKey())

	ownerScript, err := pixel.OwnerScript(chroma)
	require.NoError(t, err)
	parentTxid := putParentTx(fake, &wire.TxOut{PkScript: ownerScript, Value: 1000})

	wtx := wire.NewMsgTx(2)
	wtx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: parentTxid, Index: 0}})

	owner := newKey(t)
	proof := &pixel.SigProof{PixelValue: pixel.NewPixel(pixel.NewLuma(5), chroma), Owner: owner.PubKey()}
	pkScript, _, err := pixel.Script(proof)
	require.NoError(t, err)
	wtx.AddTxOut(&wire.TxOut{PkScript: pkScript})

	itx := &yuvtx.IssueTx{
		Tx:           wtx,
		Announcement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: leAmountBytes(5)},
		OutputProofs: yuvtx.ProofMap{0: proof},
	}
	hexTx, err := yuvtx.Encode(itx)
	require.NoError(t, err)

	resp := rpcCall(t, s, "emulateyuvtransaction", sendTxParams{TxHex: hexTx})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var res emulateResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, "valid", res.Status)
}

func TestEmulateYuvTransactionInvalidReportsReason(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	tx := &yuvtx.IssueTx{Tx: wire.NewMsgTx(2), OutputProofs: yuvtx.ProofMap{}}
	hexTx, err := yuvtx.Encode(tx)
	require.NoError(t, err)

	resp := rpcCall(t, s, "emulateyuvtransaction", sendTxParams{TxHex: hexTx})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var res emulateResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, "invalid", res.Status)
	require.NotEmpty(t, res.Reason)
}

func TestGetChromaInfoReturnsNullWhenUnknown(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	chroma := pixel.ChromaFromPublicKey(newKey(t).PubKey())
	b := chroma.Bytes()
	resp := rpcCall(t, s, "getchromainfo", chromaParams{Chroma: hex.EncodeToString(b[:])})
	require.Nil(t, resp.Error)
	require.Nil(t, resp.Result)
}

func TestGetChromaInfoReturnsStoredAnnouncement(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	chroma := pixel.ChromaFromPublicKey(newKey(t).PubKey())
	ann := &announcement.Issue{Chroma: chroma, Amount: leAmountBytes(100)}

	require.NoError(t, st.PutChromaInfo(chroma, &store.ChromaInfo{
		Announcement: ann,
		TotalSupply:  big.NewInt(100),
	}))

	b := chroma.Bytes()
	resp := rpcCall(t, s, "getchromainfo", chromaParams{Chroma: hex.EncodeToString(b[:])})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var res chromaInfoResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Equal(t, "100", res.TotalSupply)
	require.NotNil(t, res.Announcement)
	require.Equal(t, "issue", res.Announcement.Kind)
}

func TestProvideYuvProofShortFetchesMinedTransaction(t *testing.T) {
	s, _, bus, fake := newTestServer(t)
	in := bus.Subscribe(eventbus.TopicInitializeTxs)

	chroma := pixel.ChromaFromPublicKey(newKey(t).PubKey())
	tx := issueTxWith(chroma, 7)
	tx.OutputProofs = yuvtx.ProofMap{}

	fake.Txs[tx.Txid()] = btcutil.NewTx(tx.Tx)

	encoded, err := yuvtx.Encode(tx)
	require.NoError(t, err)
	raw, err := hex.DecodeString(encoded)
	require.NoError(t, err)

	// strip the bitcoin-tx prefix the real Encode produced, leaving only
	// the tag+body provideyuvproofshort expects.
	var msgTx wire.MsgTx
	buf := bytes.NewReader(raw)
	require.NoError(t, msgTx.Deserialize(buf))
	rest := raw[len(raw)-buf.Len():]

	resp := rpcCall(t, s, "provideyuvproofshort", provideShortParams{
		Txid:      tx.Txid().String(),
		TxTypeHex: hex.EncodeToString(rest),
	})
	require.Nil(t, resp.Error)
	require.Equal(t, true, resp.Result)

	msg := <-in
	init, ok := msg.(eventbus.InitializeTxs)
	require.True(t, ok)
	require.Len(t, init.Txs, 1)
}

func TestHTTPHandlerRejectsNonPOST(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.handle(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHTTPHandlerRejectsOversizedBody(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	s.cfg.MaxRequestSize = 8

	body := bytes.NewReader([]byte(`{"jsonrpc":"2.0","method":"x","id":1}`))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handle(w, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHTTPHandlerRoundTripsJSONRPC(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	zero := make([]byte, 32)
	params, err := json.Marshal(txidParams{Txid: hex.EncodeToString(zero)})
	require.NoError(t, err)
	payload, err := json.Marshal(request{JSONRPC: "2.0", Method: "getyuvtransaction", Params: params, ID: json.RawMessage(`7`)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handle(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}
