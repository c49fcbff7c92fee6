package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore is a Store backed by github.com/syndtr/goleveldb, an
// alternate embedded engine selected by ApplicationConfiguration.DBType
// "leveldb".
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (creating if necessary) a LevelDB database at path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

// Get implements Store.
func (s *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	return v, err
}

// Put implements Store.
func (s *LevelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Delete implements Store.
func (s *LevelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// Seek implements Store.
func (s *LevelDBStore) Seek(prefix []byte, dir SeekDirection, f func(k, v []byte) bool) {
	rng := util.BytesPrefix(prefix)
	iter := s.db.NewIterator(rng, nil)
	defer iter.Release()

	if dir == SeekForward {
		for iter.Next() {
			if !f(iter.Key(), iter.Value()) {
				break
			}
		}
		return
	}
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if !f(iter.Key(), iter.Value()) {
			break
		}
	}
}

// Batch implements Store.
func (s *LevelDBStore) Batch() Batch {
	return &ldbBatch{b: new(leveldb.Batch)}
}

// Write implements Writer.
func (s *LevelDBStore) Write(b Batch) error {
	lb, ok := b.(*ldbBatch)
	if !ok {
		return errBadBatch
	}
	return s.db.Write(lb.b, nil)
}

// Close implements Store.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

type ldbBatch struct {
	b *leveldb.Batch
}

func (b *ldbBatch) Put(key, value []byte) { b.b.Put(key, value) }
func (b *ldbBatch) Delete(key []byte)      { b.b.Delete(key) }
