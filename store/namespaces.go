package store

import "encoding/binary"

// Fixed ASCII namespace prefixes (spec.md §6, "Storage layout").
var (
	prefixTxs          = []byte("txs-")
	prefixFreeze        = []byte("frz-")
	prefixChroma        = []byte("chrm-")
	keyInventory        = []byte("inv")
	prefixPage          = []byte("page-")
	keyPagesNumber       = []byte("pages-number")
	keyIndexedBlock      = []byte("indexed_block")
)

func txKey(txid []byte) []byte {
	return append(append([]byte{}, prefixTxs...), txid...)
}

func freezeKey(outpoint []byte) []byte {
	return append(append([]byte{}, prefixFreeze...), outpoint...)
}

func chromaKey(chroma []byte) []byte {
	return append(append([]byte{}, prefixChroma...), chroma...)
}

func pageKey(page uint64) []byte {
	key := append([]byte{}, prefixPage...)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], page)
	return append(key, n[:]...)
}
