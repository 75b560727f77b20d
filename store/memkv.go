package store

import (
	"bytes"
	"sort"
	"sync"
)

// memKV is an in-memory KV, used by tests and by any caller that does not
// need persistence across restarts (spec.md §1 excludes the on-disk
// engine's internals from scope; this and boltstore are both valid
// implementations of the interface it does specify).
type memKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemKV returns an empty in-memory KV.
func NewMemKV() KV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memKV) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *memKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *memKV) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	type kv struct{ k, v []byte }
	snapshot := make([]kv, 0, len(keys))
	for _, k := range keys {
		snapshot = append(snapshot, kv{k: []byte(k), v: m.data[k]})
	}
	m.mu.RUnlock()

	for _, e := range snapshot {
		if err := fn(e.k, e.v); err != nil {
			return err
		}
	}
	return nil
}

func (m *memKV) Close() error { return nil }
