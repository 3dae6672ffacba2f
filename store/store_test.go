package store

import (
	"path/filepath"
	"testing"

	"github.com/fortis-labs/fortis/db"
	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := CreateStores(&StoreConfig{Type: MemoryStoreType})
	require.NoError(t, err)
	t.Cleanup(stores.Accounts.MustClose)
	return stores
}

func TestStoreConfigValidate(t *testing.T) {
	assert.NoError(t, (&StoreConfig{Type: MemoryStoreType}).Validate())
	assert.NoError(t, (&StoreConfig{Type: LevelDBStoreType, Directory: "x"}).Validate())
	assert.Error(t, (&StoreConfig{Type: LevelDBStoreType}).Validate())
	assert.Error(t, (&StoreConfig{}).Validate())
	assert.Error(t, (&StoreConfig{Type: "rocksdb"}).Validate())

	_, err := CreateStores(nil)
	assert.Error(t, err)
}

func TestAccountStoreRoundTrip(t *testing.T) {
	stores := newMemStores(t)
	program := solana.NewWallet().PublicKey()
	owned := &types.Account{
		Address:  solana.NewWallet().PublicKey(),
		Lamports: uint256.NewInt(1_000_000_000_000),
		Owner:    program,
		Data:     []byte{1, 2, 3},
	}
	wallet := &types.Account{
		Address:  solana.NewWallet().PublicKey(),
		Lamports: uint256.NewInt(5),
		Owner:    solana.SystemProgramID,
	}
	require.NoError(t, stores.Accounts.Store(wallet))
	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		return stores.Accounts.PutInBatch(batch, owned)
	}))

	got, err := stores.Accounts.GetByAddr(owned.Address)
	require.NoError(t, err)
	assert.Equal(t, owned.Lamports.Uint64(), got.Lamports.Uint64())
	assert.Equal(t, owned.Owner, got.Owner)
	assert.Equal(t, owned.Data, got.Data)

	list, err := stores.Accounts.ListByOwner(program)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, owned.Address, list[0].Address)

	require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
		stores.Accounts.DeleteInBatch(batch, owned.Address)
		return nil
	}))
	exists, err := stores.Accounts.ExistsByAddr(owned.Address)
	require.NoError(t, err)
	assert.False(t, exists)

	missing, err := stores.Accounts.GetByAddr(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStateMetaStore(t *testing.T) {
	stores := newMemStores(t)

	seq, hash, err := stores.StateMeta.Latest()
	require.NoError(t, err)
	assert.Zero(t, seq)
	assert.Equal(t, [32]byte{}, hash)

	first, second := [32]byte{1}, [32]byte{2}
	for i, h := range [][32]byte{first, second} {
		require.NoError(t, stores.TxManager.WithBatch(func(batch db.DatabaseBatch) error {
			stores.StateMeta.SetStateHashInBatch(batch, uint64(i+1), h)
			return nil
		}))
	}

	seq, hash, err = stores.StateMeta.Latest()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, second, hash)

	got, ok, err := stores.StateMeta.GetStateHash(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, got)

	_, ok, err = stores.StateMeta.GetStateHash(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLevelDBStoresPersist(t *testing.T) {
	cfg := &StoreConfig{Type: LevelDBStoreType, Directory: filepath.Join(t.TempDir(), "db")}
	acc := &types.Account{Address: solana.NewWallet().PublicKey(), Lamports: uint256.NewInt(9), Owner: solana.SystemProgramID}

	stores, err := CreateStores(cfg)
	require.NoError(t, err)
	require.NoError(t, stores.Accounts.Store(acc))
	stores.Accounts.MustClose()

	stores, err = CreateStores(cfg)
	require.NoError(t, err)
	defer stores.Accounts.MustClose()
	got, err := stores.Accounts.GetByAddr(acc.Address)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(9), got.Lamports.Uint64())
}
