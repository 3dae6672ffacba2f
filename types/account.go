package types

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Account is one keyed record of the ledger. Program records keep their
// serialized state in Data; wallets and vaults only hold lamports.
type Account struct {
	Address  solana.PublicKey `json:"address"`
	Lamports *uint256.Int     `json:"lamports"`
	Owner    solana.PublicKey `json:"owner"`
	Data     []byte           `json:"data"`
}

// Clone returns a deep copy so callers can mutate it without touching the source
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := &Account{
		Address: a.Address,
		Owner:   a.Owner,
	}
	if a.Lamports != nil {
		cp.Lamports = new(uint256.Int).Set(a.Lamports)
	} else {
		cp.Lamports = uint256.NewInt(0)
	}
	if a.Data != nil {
		cp.Data = append([]byte(nil), a.Data...)
	}
	return cp
}
