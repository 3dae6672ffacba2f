package store

import (
	"fmt"
	"sync"

	"github.com/fortis-labs/fortis/db"
	"github.com/fortis-labs/fortis/jsonx"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
)

type AccountStore interface {
	Store(account *types.Account) error
	GetByAddr(addr solana.PublicKey) (*types.Account, error)
	ExistsByAddr(addr solana.PublicKey) (bool, error)
	ListByOwner(owner solana.PublicKey) ([]*types.Account, error)

	// PutInBatch and DeleteInBatch queue writes into a caller managed batch
	PutInBatch(batch db.DatabaseBatch, account *types.Account) error
	DeleteInBatch(batch db.DatabaseBatch, addr solana.PublicKey)

	MustClose()
}

type GenericAccountStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericAccountStore(dbProvider db.DatabaseProvider) (*GenericAccountStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericAccountStore{
		dbProvider: dbProvider,
	}, nil
}

func (as *GenericAccountStore) Store(account *types.Account) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	accountData, err := jsonx.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	err = as.dbProvider.Put(as.getDbKey(account.Address), accountData)
	if err != nil {
		return fmt.Errorf("failed to write account to db: %w", err)
	}

	return nil
}

func (as *GenericAccountStore) PutInBatch(batch db.DatabaseBatch, account *types.Account) error {
	accountData, err := jsonx.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", account.Address, err)
	}
	batch.Put(as.getDbKey(account.Address), accountData)
	return nil
}

func (as *GenericAccountStore) DeleteInBatch(batch db.DatabaseBatch, addr solana.PublicKey) {
	batch.Delete(as.getDbKey(addr))
}

// GetByAddr returns account instance from db, return both nil if not exist
func (as *GenericAccountStore) GetByAddr(addr solana.PublicKey) (*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	data, err := as.dbProvider.Get(as.getDbKey(addr))
	if err != nil {
		return nil, fmt.Errorf("could not get account %s from db: %w", addr, err)
	}

	// Account doesn't exist
	if data == nil {
		return nil, nil
	}

	var acc types.Account
	if err := jsonx.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
	}
	return &acc, nil
}

func (as *GenericAccountStore) ExistsByAddr(addr solana.PublicKey) (bool, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	return as.dbProvider.Has(as.getDbKey(addr))
}

// ListByOwner scans every account and keeps the ones owned by owner
func (as *GenericAccountStore) ListByOwner(owner solana.PublicKey) ([]*types.Account, error) {
	iterableProvider, ok := as.dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("database provider does not support iteration")
	}

	as.mu.RLock()
	defer as.mu.RUnlock()

	var accounts []*types.Account
	err := iterableProvider.IteratePrefix([]byte(PrefixAccount), func(key, value []byte) bool {
		var acc types.Account
		if err := jsonx.Unmarshal(value, &acc); err != nil {
			logx.Error("ACCOUNT_STORE", "failed to unmarshal account", string(key), err)
			return true
		}
		if acc.Owner.Equals(owner) {
			accounts = append(accounts, &acc)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

func (as *GenericAccountStore) MustClose() {
	err := as.dbProvider.Close()
	if err != nil {
		logx.Error("ACCOUNT_STORE", "Failed to close db provider:", err.Error())
	}
}

func (as *GenericAccountStore) getDbKey(addr solana.PublicKey) []byte {
	return []byte(PrefixAccount + addr.String())
}
