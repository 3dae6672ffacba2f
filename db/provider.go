package db

// DatabaseProvider is the key-value surface under the account and state meta
// stores. Point writes serve store tooling; every ledger batch goes through
// Batch so accounts and the state hash land together.
type DatabaseProvider interface {
	// Get returns nil, nil for a missing key
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)

	// Close is idempotent; the account and state meta stores share a provider
	Close() error

	Batch() DatabaseBatch
}

// IterableProvider can walk a key prefix, which the stores use to list every
// record under one key prefix.
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix visits keys under prefix in byte order until fn returns false
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error
}

// DatabaseBatch buffers the writes of one ledger batch. Nothing is visible to
// readers until Write succeeds.
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
	// Reset drops everything queued so far
	Reset()
	Len() int
}
