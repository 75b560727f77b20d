package store

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// PageSize is the number of txids per page for listyuvtransactions
// (spec.md §6).
const PageSize = 100

// AppendAttached appends txid to the paginated attached-transaction list,
// creating a new page once the last one fills (spec.md §6, "page-" + u64 /
// "pages-number").
func (s *Store) AppendAttached(txid chainhash.Hash) error {
	numPages, err := s.pagesNumber()
	if err != nil {
		return err
	}

	var lastPage []chainhash.Hash
	if numPages > 0 {
		lastPage, err = s.Page(numPages - 1)
		if err != nil {
			return err
		}
	}

	if numPages == 0 || len(lastPage) >= PageSize {
		lastPage = nil
		numPages++
		if err := s.setPagesNumber(numPages); err != nil {
			return err
		}
	}

	lastPage = append(lastPage, txid)
	return s.kv.Put(pageKey(numPages-1), encodeInventoryList(lastPage))
}

// Page returns the txids stored on page n (0-indexed).
func (s *Store) Page(n uint64) ([]chainhash.Hash, error) {
	raw, err := s.kv.Get(pageKey(n))
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeInventoryList(raw)
}

// PagesNumber returns the total number of pages written so far.
func (s *Store) PagesNumber() (uint64, error) {
	return s.pagesNumber()
}

func (s *Store) pagesNumber() (uint64, error) {
	raw, err := s.kv.Get(keyPagesNumber)
	if err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("store: pages-number has wrong length %d", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func (s *Store) setPagesNumber(n uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return s.kv.Put(keyPagesNumber, b[:])
}
