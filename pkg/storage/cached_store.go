package storage

import (
	"sync"
)

// keyState tracks a single key's pending mutation in a MemCachedStore's
// local write set: put with a value, or deleted.
type keyState struct {
	value   []byte
	deleted bool
}

// MemCachedStore wraps a persistent Store and gives it the snapshot
// contract of §4.1: reads observe the wrapped store's current contents
// overlaid with this snapshot's own uncommitted writes; writes accumulate in
// a local map and become visible to the backing store only on Commit,
// atomically via a single Batch.
//
// A MemCachedStore may itself be wrapped by another MemCachedStore,
// which is how nested/throwaway snapshots (e.g. one per transaction
// inside a block) are built without touching the durable store until the
// whole block succeeds.
type MemCachedStore struct {
	mut      sync.RWMutex
	ps       Store
	local    map[string]keyState
	// closed is set by Close; Commit refuses to run on a closed
	// snapshot.
	closed bool
}

// NewMemCachedStore wraps ps with a fresh, empty write buffer.
func NewMemCachedStore(ps Store) *MemCachedStore {
	return &MemCachedStore{
		ps:    ps,
		local: make(map[string]keyState),
	}
}

// Get returns the value of key, preferring the local write set over the
// backing store.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	st, ok := s.local[string(key)]
	s.mut.RUnlock()
	if ok {
		if st.deleted {
			return nil, ErrKeyNotFound
		}
		out := make([]byte, len(st.value))
		copy(out, st.value)
		return out, nil
	}
	return s.ps.Get(key)
}

// Put stages a write in the local write set; it is not visible to the
// backing store until Commit.
func (s *MemCachedStore) Put(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.mut.Lock()
	s.local[string(key)] = keyState{value: v}
	s.mut.Unlock()
	return nil
}

// Delete stages a deletion in the local write set.
func (s *MemCachedStore) Delete(key []byte) error {
	s.mut.Lock()
	s.local[string(key)] = keyState{deleted: true}
	s.mut.Unlock()
	return nil
}

// Seek merges the backing store's keys with the local write set's
// pending mutations, in strictly ascending (or descending) lexicographic
// order, skipping keys staged for deletion.
func (s *MemCachedStore) Seek(prefix []byte, dir SeekDirection, f func(k, v []byte) bool) {
	s.mut.RLock()
	overlay := make(map[string]keyState, len(s.local))
	for k, v := range s.local {
		overlay[k] = v
	}
	s.mut.RUnlock()

	seen := make(map[string]struct{}, len(overlay))
	merged := make([]KeyValue, 0, len(overlay))

	s.ps.Seek(prefix, dir, func(k, v []byte) bool {
		ks := string(k)
		if st, ok := overlay[ks]; ok {
			seen[ks] = struct{}{}
			if st.deleted {
				return true
			}
			merged = append(merged, KeyValue{Key: k, Value: st.value})
			return true
		}
		merged = append(merged, KeyValue{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
		return true
	})

	for k, st := range overlay {
		if _, ok := seen[k]; ok || st.deleted {
			continue
		}
		if !hasPrefix([]byte(k), prefix) {
			continue
		}
		merged = append(merged, KeyValue{Key: []byte(k), Value: st.value})
	}

	sortKV(merged, dir)
	for _, kv := range merged {
		if !f(kv.Key, kv.Value) {
			return
		}
	}
}

// Batch returns a write batch over the backing store's batch type; used
// internally by Commit.
func (s *MemCachedStore) Batch() Batch {
	return s.ps.Batch()
}

// Commit atomically applies every staged write to the backing store via
// a single Batch, then clears the local write set. If the backing store
// is itself a MemCachedStore (nested snapshot), the writes merely flow
// into its write set instead of hitting physical storage — only the
// outermost Commit over a Writer touches the disk.
func (s *MemCachedStore) Commit() error {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.closed {
		return errSnapshotClosed
	}

	if w, ok := s.ps.(Writer); ok {
		b := s.ps.Batch()
		for k, st := range s.local {
			if st.deleted {
				b.Delete([]byte(k))
			} else {
				b.Put([]byte(k), st.value)
			}
		}
		if err := w.Write(b); err != nil {
			return err
		}
	} else {
		for k, st := range s.local {
			if st.deleted {
				if err := s.ps.Delete([]byte(k)); err != nil {
					return err
				}
			} else if err := s.ps.Put([]byte(k), st.value); err != nil {
				return err
			}
		}
	}
	s.local = make(map[string]keyState)
	return nil
}

// Discard drops every staged write without touching the backing store.
func (s *MemCachedStore) Discard() {
	s.mut.Lock()
	s.local = make(map[string]keyState)
	s.mut.Unlock()
}

// Close discards pending writes and marks the snapshot unusable; it does
// not close the backing store, which may be shared by other snapshots.
func (s *MemCachedStore) Close() error {
	s.mut.Lock()
	s.closed = true
	s.local = nil
	s.mut.Unlock()
	return nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func sortKV(kv []KeyValue, dir SeekDirection) {
	less := func(i, j int) bool { return string(kv[i].Key) < string(kv[j].Key) }
	if dir == SeekBackward {
		less = func(i, j int) bool { return string(kv[i].Key) > string(kv[j].Key) }
	}
	// insertion sort is fine: merged sets are small relative to a prefix scan
	for i := 1; i < len(kv); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			kv[j], kv[j-1] = kv[j-1], kv[j]
		}
	}
}

var errSnapshotClosed = &snapshotClosedError{}

type snapshotClosedError struct{}

func (*snapshotClosedError) Error() string { return "storage: snapshot already closed" }
