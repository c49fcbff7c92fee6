package storage

import (
	"go.etcd.io/bbolt"
)

var defaultBucket = []byte("n3node")

// BoltStore is a Store backed by go.etcd.io/bbolt, the embedded engine
// selected by ApplicationConfiguration.DBType "bolt".
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (creating if necessary) a bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (s *BoltStore) Get(key []byte) (value []byte, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(defaultBucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

// Put implements Store.
func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(defaultBucket).Put(key, value)
	})
}

// Delete implements Store.
func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(defaultBucket).Delete(key)
	})
}

// Seek implements Store.
func (s *BoltStore) Seek(prefix []byte, dir SeekDirection, f func(k, v []byte) bool) {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(defaultBucket).Cursor()
		if dir == SeekForward {
			for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
				if !f(k, v) {
					break
				}
			}
			return nil
		}
		// Backward: position at the first key > the upper bound of the
		// prefix range, then walk Prev while the key still matches.
		upper := prefixUpperBound(prefix)
		var k, v []byte
		if upper == nil {
			k, v = c.Last()
		} else {
			k, v = c.Seek(upper)
			if k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		}
		for ; k != nil; k, v = c.Prev() {
			if !hasPrefix(k, prefix) {
				if string(k) < string(prefix) {
					break
				}
				continue
			}
			if !f(k, v) {
				break
			}
		}
		return nil
	})
}

// Batch implements Store.
func (s *BoltStore) Batch() Batch {
	return &memBatch{}
}

// Write implements Writer, applying a Batch inside one bbolt transaction.
func (s *BoltStore) Write(b Batch) error {
	mb, ok := b.(*memBatch)
	if !ok {
		return errBadBatch
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(defaultBucket)
		for _, op := range mb.ops {
			if op.del {
				if err := bucket.Delete([]byte(op.key)); err != nil {
					return err
				}
			} else if err := bucket.Put([]byte(op.key), op.val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the lexicographically smallest key strictly
// greater than every key sharing prefix, or nil if prefix is all 0xFF.
func prefixUpperBound(prefix []byte) []byte {
	up := append([]byte(nil), prefix...)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] != 0xff {
			up[i]++
			return up[:i+1]
		}
	}
	return nil
}
