package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pixelnode/pixeld/announcement"
	"github.com/pixelnode/pixeld/eventbus"
	"github.com/pixelnode/pixeld/pixel"
	"github.com/pixelnode/pixeld/store"
	"github.com/pixelnode/pixeld/yuvtx"
)

// --- sendyuvtransaction / provideyuvproof / providelistyuvproofs ---

type sendTxParams struct {
	TxHex         string  `json:"tx_hex"`
	MaxBurnAmount *string `json:"max_burn_amount,omitempty"`
}

// methodSendYuvTransaction and methodProvideYuvProof share the same
// mechanism: decode the proof, inject it into the checker pipeline as a
// locally-submitted initialization. max_burn_amount is accepted but not
// enforced here — eventbus.InitializeTxs carries no burn-cap field, and
// conservation/burn validation already happens downstream in the checker
// once chain data for the transaction's inputs is available.
func methodSendYuvTransaction(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p sendTxParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}
	return submitTxHex(s, p.TxHex)
}

func methodProvideYuvProof(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p sendTxParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}
	return submitTxHex(s, p.TxHex)
}

func submitTxHex(s *Server, hexTx string) (interface{}, error, int) {
	tx, err := yuvtx.Decode(hexTx)
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err), codeInvalidParams
	}
	s.cfg.Bus.Publish(eventbus.TopicInitializeTxs, eventbus.InitializeTxs{
		Txs: []yuvtx.Transaction{tx},
	})
	return true, nil, 0
}

type provideListParams struct {
	TxHexList []string `json:"tx_hex_list"`
}

func methodProvideListYuvProofs(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p provideListParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}
	if len(p.TxHexList) > s.cfg.MaxArrayLength {
		return nil, fmt.Errorf("tx_hex_list exceeds max array length %d", s.cfg.MaxArrayLength), codeInvalidParams
	}

	txs := make([]yuvtx.Transaction, 0, len(p.TxHexList))
	for i, hexTx := range p.TxHexList {
		tx, err := yuvtx.Decode(hexTx)
		if err != nil {
			return nil, fmt.Errorf("decode proof %d: %w", i, err), codeInvalidParams
		}
		txs = append(txs, tx)
	}

	s.cfg.Bus.Publish(eventbus.TopicInitializeTxs, eventbus.InitializeTxs{Txs: txs})
	return true, nil, 0
}

// --- provideyuvproofshort ---

type provideShortParams struct {
	Txid      string  `json:"txid"`
	TxTypeHex string  `json:"tx_type_hex"`
	BlockHash *string `json:"blockhash,omitempty"`
}

// methodProvideYuvProofShort implements spec.md §6's short proof
// submission: the caller already knows the mined Bitcoin transaction by
// txid and supplies only the type tag plus tagged proof body. blockhash is
// accepted but not enforced — chainrpc.Source has no block-scoped
// transaction lookup, so the fetch is always by txid alone.
func methodProvideYuvProofShort(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p provideShortParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}

	txid, err := chainhash.NewHashFromStr(p.Txid)
	if err != nil {
		return nil, fmt.Errorf("parse txid: %w", err), codeInvalidParams
	}
	body, err := hex.DecodeString(p.TxTypeHex)
	if err != nil {
		return nil, fmt.Errorf("decode tx_type_hex: %w", err), codeInvalidParams
	}

	rawTx, err := s.cfg.Source.RawTransaction(txid)
	if err != nil {
		return nil, fmt.Errorf("fetch mined transaction: %w", err), codeApplicationErr
	}

	tx, err := yuvtx.DecodeTagged(rawTx.MsgTx(), body)
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err), codeInvalidParams
	}

	s.cfg.Bus.Publish(eventbus.TopicInitializeTxs, eventbus.InitializeTxs{
		Txs: []yuvtx.Transaction{tx},
	})
	return true, nil, 0
}

// --- getyuvtransaction / getlistyuvtransactions ---

type txidParams struct {
	Txid string `json:"txid"`
}

type transactionResult struct {
	Status string `json:"status"`
	Data   string `json:"data,omitempty"`
}

func methodGetYuvTransaction(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p txidParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}
	txid, err := chainhash.NewHashFromStr(p.Txid)
	if err != nil {
		return nil, fmt.Errorf("parse txid: %w", err), codeInvalidParams
	}
	return txResult(s, *txid)
}

type txidListParams struct {
	Txids []string `json:"txids"`
}

func methodGetListYuvTransactions(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p txidListParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}
	if len(p.Txids) > s.cfg.MaxArrayLength {
		return nil, fmt.Errorf("txids exceeds max array length %d", s.cfg.MaxArrayLength), codeInvalidParams
	}

	out := make(map[string]transactionResult, len(p.Txids))
	for _, idStr := range p.Txids {
		txid, err := chainhash.NewHashFromStr(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse txid %q: %w", idStr, err), codeInvalidParams
		}
		res, err, code := txResult(s, *txid)
		if err != nil {
			return nil, err, code
		}
		out[idStr] = res.(transactionResult)
	}
	return out, nil, 0
}

func txResult(s *Server, txid chainhash.Hash) (interface{}, error, int) {
	status := s.cfg.Status.Status(txid)
	res := transactionResult{Status: status}

	if status == "attached" {
		tx, err := s.cfg.Store.GetTx(txid)
		if err != nil {
			return nil, fmt.Errorf("load attached transaction: %w", err), codeInternalError
		}
		encoded, err := yuvtx.Encode(tx)
		if err != nil {
			return nil, fmt.Errorf("encode transaction: %w", err), codeInternalError
		}
		res.Data = encoded
	}
	return res, nil, 0
}

// --- listyuvtransactions ---

type listParams struct {
	Page uint64 `json:"page"`
}

type listResult struct {
	Txs        []transactionEntry `json:"txs"`
	PagesTotal uint64              `json:"pages_total"`
}

type transactionEntry struct {
	Txid string `json:"txid"`
	Data string `json:"data"`
}

func methodListYuvTransactions(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p listParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}

	txids, err := s.cfg.Store.Page(p.Page)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err), codeInternalError
	}
	total, err := s.cfg.Store.PagesNumber()
	if err != nil {
		return nil, fmt.Errorf("load page count: %w", err), codeInternalError
	}

	entries := make([]transactionEntry, 0, len(txids))
	for _, txid := range txids {
		tx, err := s.cfg.Store.GetTx(txid)
		if err != nil {
			return nil, fmt.Errorf("load transaction %s: %w", txid, err), codeInternalError
		}
		encoded, err := yuvtx.Encode(tx)
		if err != nil {
			return nil, fmt.Errorf("encode transaction %s: %w", txid, err), codeInternalError
		}
		entries = append(entries, transactionEntry{Txid: txid.String(), Data: encoded})
	}

	return listResult{Txs: entries, PagesTotal: total}, nil, 0
}

// --- isyuvtxoutfrozen ---

type outpointParams struct {
	Txid string `json:"txid"`
	Vout uint32 `json:"vout"`
}

func methodIsYuvTxOutFrozen(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p outpointParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}
	txid, err := chainhash.NewHashFromStr(p.Txid)
	if err != nil {
		return nil, fmt.Errorf("parse txid: %w", err), codeInvalidParams
	}

	_, err = s.cfg.Store.GetFreeze(store.OutpointBytes(*txid, p.Vout))
	if err == store.ErrNotFound {
		return false, nil, 0
	}
	if err != nil {
		return nil, fmt.Errorf("load freeze record: %w", err), codeInternalError
	}
	return true, nil, 0
}

// --- emulateyuvtransaction ---

type emulateResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func methodEmulateYuvTransaction(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p sendTxParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}

	tx, err := yuvtx.Decode(p.TxHex)
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err), codeInvalidParams
	}

	if err := s.cfg.Check.Emulate(tx); err != nil {
		return emulateResult{Status: "invalid", Reason: err.Error()}, nil, 0
	}
	return emulateResult{Status: "valid"}, nil, 0
}

// --- getchromainfo ---

type chromaParams struct {
	Chroma string `json:"chroma"`
}

type chromaInfoResult struct {
	Announcement *announcementResult `json:"announcement,omitempty"`
	TotalSupply  string               `json:"total_supply"`
	Owner        string               `json:"owner,omitempty"`
}

// announcementResult marshals the announcement interface value the same
// way it travels over the wire elsewhere in this protocol: kind-tagged,
// with the pkScript-encoded body hex so a caller can decode it with the
// same announcement.Parse the node itself uses, rather than reverse
// engineering a bespoke per-kind JSON shape.
type announcementResult struct {
	Kind string `json:"kind"`
	Hex  string `json:"hex"`
}

func methodGetChromaInfo(s *Server, raw json.RawMessage) (interface{}, error, int) {
	var p chromaParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err, codeInvalidParams
	}

	chromaBytes, err := hex.DecodeString(p.Chroma)
	if err != nil {
		return nil, fmt.Errorf("decode chroma: %w", err), codeInvalidParams
	}
	chroma, err := pixel.ChromaFromBytes(chromaBytes)
	if err != nil {
		return nil, fmt.Errorf("parse chroma: %w", err), codeInvalidParams
	}

	info, err := s.cfg.Store.GetChromaInfo(chroma)
	if err == store.ErrNotFound {
		return nil, nil, 0
	}
	if err != nil {
		return nil, fmt.Errorf("load chroma info: %w", err), codeInternalError
	}

	res := chromaInfoResult{TotalSupply: info.TotalSupply.String()}
	if info.Announcement != nil {
		encoded, err := announcement.Encode(info.Announcement)
		if err != nil {
			return nil, fmt.Errorf("encode announcement: %w", err), codeInternalError
		}
		res.Announcement = &announcementResult{
			Kind: info.Announcement.Kind().String(),
			Hex:  hex.EncodeToString(encoded),
		}
	}
	if info.OwnerScript != nil {
		res.Owner = hex.EncodeToString(info.OwnerScript)
	}
	return res, nil, 0
}
