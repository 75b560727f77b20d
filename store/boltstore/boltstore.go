// Package boltstore implements store.KV on top of go.etcd.io/bbolt, the
// concrete on-disk backend offered for completeness (spec.md §1 scopes the
// on-disk engine's internals out, but a working default backend is in
// scope per SPEC_FULL.md's domain-stack wiring).
package boltstore

import (
	"bytes"

	"github.com/pixelnode/pixeld/store"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("pixeld")

// BoltKV implements store.KV backed by a single bbolt database file and
// bucket.
type BoltKV struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path.
func Open(path string) (*BoltKV, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltKV{db: db}, nil
}

var _ store.KV = (*BoltKV)(nil)

func (b *BoltKV) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return store.ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BoltKV) Put(key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (b *BoltKV) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

func (b *BoltKV) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			keyCopy := append([]byte{}, k...)
			valCopy := append([]byte{}, v...)
			if err := fn(keyCopy, valCopy); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltKV) Close() error {
	return b.db.Close()
}
