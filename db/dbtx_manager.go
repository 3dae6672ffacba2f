package db

import (
	"fmt"

	"github.com/fortis-labs/fortis/logx"
)

// DBTxManager turns a committed ledger batch into a single LevelDB write. The
// account store and the state meta store both queue into the batch it hands
// out, so a crash never leaves accounts ahead of (or behind) the state hash.
type DBTxManager struct {
	provider DatabaseProvider
}

func NewDBTxManager(provider DatabaseProvider) *DBTxManager {
	return &DBTxManager{provider: provider}
}

// WithBatch lets fn queue writes and then flushes them at once. An error from
// fn discards the queue untouched; an empty queue writes nothing.
func (tm *DBTxManager) WithBatch(fn func(batch DatabaseBatch) error) error {
	batch := tm.provider.Batch()
	if err := fn(batch); err != nil {
		batch.Reset()
		return fmt.Errorf("ledger batch discarded: %w", err)
	}

	queued := batch.Len()
	if queued == 0 {
		return nil
	}
	if err := batch.Write(); err != nil {
		logx.Error("DB_BATCH", fmt.Sprintf("write of %d queued records failed:", queued), err)
		return fmt.Errorf("ledger batch write failed: %w", err)
	}
	return nil
}
