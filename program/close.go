package program

import (
	"fmt"

	"github.com/fortis-labs/fortis/errors"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/monitoring"
	"github.com/gagliardetto/solana-go"
)

// proposalAccountsClose returns the storage cost of a resolved proposal and
// its transaction to the rent collector. Accounts:
//
//  0. multisig
//  1. proposal        writable
//  2. transaction     writable
//  3. rent_collector  signer, writable
//  4. system program
func (p *Program) proposalAccountsClose(ctx *ledger.InvokeContext, accounts []*solana.AccountMeta, data []byte) error {
	if err := requireNoArgs(data); err != nil {
		return err
	}
	multisigAddr, err := accountAt(accounts, 0)
	if err != nil {
		return err
	}
	proposalAddr, err := accountAt(accounts, 1)
	if err != nil {
		return err
	}
	txAddr, err := accountAt(accounts, 2)
	if err != nil {
		return err
	}
	collector, err := accountAt(accounts, 3)
	if err != nil {
		return err
	}

	ms, err := p.loadMultisig(ctx, multisigAddr)
	if err != nil {
		return err
	}
	if ms.RentCollector == nil {
		return errors.ErrRentCollectorNotSet
	}
	if !ms.RentCollector.Equals(collector) {
		return errors.ErrNotRentCollector.WithReason(collector.String())
	}
	if err := p.requireSigner(ctx, collector); err != nil {
		return err
	}

	prop, err := p.loadProposal(ctx, multisigAddr, proposalAddr)
	if err != nil {
		return err
	}
	if _, err := p.loadTransaction(ctx, multisigAddr, prop.TransactionIndex, txAddr); err != nil {
		return err
	}
	if !prop.IsTerminal(ctx.Now()) {
		return errors.ErrNotTerminal.WithReason(prop.Status.String())
	}

	if err := ctx.CloseAccount(proposalAddr, collector); err != nil {
		return err
	}
	if err := ctx.CloseAccount(txAddr, collector); err != nil {
		return err
	}

	monitoring.IncreaseProposalClosed()
	ctx.Log("proposal %d closed, storage returned to %s", prop.TransactionIndex, collector)
	logx.Info("FORTIS", fmt.Sprintf("Closed proposal %d of %s", prop.TransactionIndex, multisigAddr))
	return nil
}
