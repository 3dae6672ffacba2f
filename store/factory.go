package store

import (
	"fmt"

	"github.com/fortis-labs/fortis/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses a LevelDB database on disk
	LevelDBStoreType StoreType = "leveldb"

	// MemoryStoreType uses LevelDB over in-memory storage
	MemoryStoreType StoreType = "memory"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case LevelDBStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty")
		}
		return nil
	case MemoryStoreType:
		return nil
	case "":
		return fmt.Errorf("store type cannot be empty")
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// CreateProvider creates a database provider based on the configuration
func CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)
	default:
		return db.NewMemLevelDBProvider()
	}
}

// Stores bundles the stores sharing one provider with the batch manager that
// commits to it.
type Stores struct {
	Accounts  AccountStore
	StateMeta StateMetaStore
	TxManager *db.DBTxManager
}

// CreateStores wires a provider into the account and state meta stores
func CreateStores(config *StoreConfig) (*Stores, error) {
	provider, err := CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	accStore, err := NewGenericAccountStore(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create account store: %w", err)
	}

	return &Stores{
		Accounts:  accStore,
		StateMeta: NewGenericStateMetaStore(provider),
		TxManager: db.NewDBTxManager(provider),
	}, nil
}
