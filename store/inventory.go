package store

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// PushInventory appends txid to the bounded FIFO inventory list used for
// periodic p2p Inv broadcast (spec.md §4.8), evicting the oldest entry once
// the list exceeds maxSize.
func (s *Store) PushInventory(txid chainhash.Hash, maxSize int) error {
	list, err := s.inventoryList()
	if err != nil {
		return err
	}

	list = append(list, txid)
	if len(list) > maxSize {
		list = list[len(list)-maxSize:]
	}

	return s.kv.Put(keyInventory, encodeInventoryList(list))
}

// Inventory returns the current FIFO inventory list, oldest first.
func (s *Store) Inventory() ([]chainhash.Hash, error) {
	return s.inventoryList()
}

func (s *Store) inventoryList() ([]chainhash.Hash, error) {
	raw, err := s.kv.Get(keyInventory)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeInventoryList(raw)
}

func encodeInventoryList(list []chainhash.Hash) []byte {
	out := make([]byte, 4, 4+len(list)*chainhash.HashSize)
	binary.LittleEndian.PutUint32(out, uint32(len(list)))
	for _, h := range list {
		out = append(out, h[:]...)
	}
	return out
}

func decodeInventoryList(b []byte) ([]chainhash.Hash, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("store: inventory list truncated")
	}
	count := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) != count*chainhash.HashSize {
		return nil, fmt.Errorf("store: inventory list length mismatch")
	}

	list := make([]chainhash.Hash, count)
	for i := uint32(0); i < count; i++ {
		copy(list[i][:], b[i*chainhash.HashSize:(i+1)*chainhash.HashSize])
	}
	return list, nil
}
