package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBProvider backs the ledger. The file form keeps a local treasury
// across CLI runs; the memory form serves tests and `fortis simulate`, where
// the whole ledger is thrown away on exit.
type LevelDBProvider struct {
	closeOnce sync.Once
	db        *leveldb.DB
}

func NewLevelDBProvider(directory string) (*LevelDBProvider, error) {
	ldb, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger database %s: %w", directory, err)
	}
	return &LevelDBProvider{db: ldb}, nil
}

func NewMemLevelDBProvider() (*LevelDBProvider, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory ledger database: %w", err)
	}
	return &LevelDBProvider{db: ldb}, nil
}

func (p *LevelDBProvider) Get(key []byte) ([]byte, error) {
	value, err := p.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (p *LevelDBProvider) Put(key, value []byte) error {
	return p.db.Put(key, value, nil)
}

func (p *LevelDBProvider) Delete(key []byte) error {
	return p.db.Delete(key, nil)
}

func (p *LevelDBProvider) Has(key []byte) (bool, error) {
	return p.db.Has(key, nil)
}

func (p *LevelDBProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.db.Close()
	})
	return err
}

func (p *LevelDBProvider) Batch() DatabaseBatch {
	return &levelDBBatch{db: p.db}
}

func (p *LevelDBProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	iter := p.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// levelDBBatch queues one ledger batch in a leveldb.Batch
type levelDBBatch struct {
	pending leveldb.Batch
	db      *leveldb.DB
}

func (b *levelDBBatch) Put(key, value []byte) { b.pending.Put(key, value) }

func (b *levelDBBatch) Delete(key []byte) { b.pending.Delete(key) }

func (b *levelDBBatch) Write() error {
	return b.db.Write(&b.pending, nil)
}

func (b *levelDBBatch) Reset() { b.pending.Reset() }

func (b *levelDBBatch) Len() int { return b.pending.Len() }
