package ledger

import (
	"github.com/fortis-labs/fortis/db"
	"github.com/fortis-labs/fortis/store"
	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
)

// overlay is a copy-on-write view over the account store. Nothing reaches
// the store until flush is called with a batch.
type overlay struct {
	base     store.AccountStore
	accounts map[solana.PublicKey]*types.Account
	dirty    map[solana.PublicKey]bool
	order    []solana.PublicKey
}

func newOverlay(base store.AccountStore) *overlay {
	return &overlay{
		base:     base,
		accounts: make(map[solana.PublicKey]*types.Account),
		dirty:    make(map[solana.PublicKey]bool),
	}
}

// load returns the working copy of addr, nil when the account does not exist
func (o *overlay) load(addr solana.PublicKey) (*types.Account, error) {
	if acc, ok := o.accounts[addr]; ok {
		return acc, nil
	}
	base, err := o.base.GetByAddr(addr)
	if err != nil {
		return nil, err
	}
	acc := base.Clone()
	o.accounts[addr] = acc
	return acc, nil
}

func (o *overlay) put(acc *types.Account) {
	o.accounts[acc.Address] = acc
	o.markDirty(acc.Address)
}

func (o *overlay) remove(addr solana.PublicKey) {
	o.accounts[addr] = nil
	o.markDirty(addr)
}

func (o *overlay) markDirty(addr solana.PublicKey) {
	if !o.dirty[addr] {
		o.dirty[addr] = true
		o.order = append(o.order, addr)
	}
}

// changes returns the final value of every dirty account, nil for removals
func (o *overlay) changes() map[solana.PublicKey]*types.Account {
	out := make(map[solana.PublicKey]*types.Account, len(o.order))
	for _, addr := range o.order {
		out[addr] = o.accounts[addr]
	}
	return out
}

func (o *overlay) flush(batch db.DatabaseBatch) error {
	for _, addr := range o.order {
		acc := o.accounts[addr]
		if acc == nil {
			o.base.DeleteInBatch(batch, addr)
			continue
		}
		if err := o.base.PutInBatch(batch, acc); err != nil {
			return err
		}
	}
	return nil
}
