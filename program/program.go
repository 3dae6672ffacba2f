// Package program implements the Fortis threshold multisig: multisig
// creation, the proposal lifecycle, vault transaction execution and account
// cleanup, all running inside a ledger batch.
package program

import (
	"fmt"

	"github.com/fortis-labs/fortis/config"
	"github.com/fortis-labs/fortis/errors"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/monitoring"
	"github.com/fortis-labs/fortis/pda"
	"github.com/gagliardetto/solana-go"
)

type Program struct {
	id     solana.PublicKey
	limits *config.LimitsConfig
}

// New returns the program bound to programID, pda.ProgramID when omitted
func New(limits *config.LimitsConfig, programID ...solana.PublicKey) *Program {
	if limits == nil {
		limits = config.DefaultLimits()
	}
	id := pda.ProgramID
	if len(programID) > 0 && !programID[0].IsZero() {
		id = programID[0]
	}
	return &Program{id: id, limits: limits}
}

func (p *Program) ID() solana.PublicKey {
	return p.id
}

func (p *Program) Process(ctx *ledger.InvokeContext, ix solana.Instruction) error {
	data, err := ix.Data()
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInstruction, err)
	}
	if len(data) < 8 {
		return errors.ErrInvalidInstruction.WithReason("missing discriminator")
	}

	var disc [8]byte
	copy(disc[:], data[:8])
	accounts := ix.Accounts()

	var name string
	switch disc {
	case MultisigCreateDiscriminator:
		name = "multisig_create"
		var args MultisigCreateArgs
		if err = decodeWithDiscriminator(data, disc, &args); err != nil {
			err = errors.Wrap(errors.ErrInvalidInstruction, err)
			break
		}
		err = p.multisigCreate(ctx, accounts, args)
	case ProposalCreateDiscriminator:
		name = "proposal_create"
		var args ProposalCreateArgs
		if err = decodeWithDiscriminator(data, disc, &args); err != nil {
			err = errors.Wrap(errors.ErrInvalidInstruction, err)
			break
		}
		err = p.proposalCreate(ctx, accounts, args)
	case ProposalApproveDiscriminator:
		name = "proposal_approve"
		err = p.proposalVote(ctx, accounts, data, voteApprove)
	case ProposalRejectDiscriminator:
		name = "proposal_reject"
		err = p.proposalVote(ctx, accounts, data, voteReject)
	case ProposalCancelDiscriminator:
		name = "proposal_cancel"
		err = p.proposalVote(ctx, accounts, data, voteCancel)
	case ProposalExecuteDiscriminator:
		name = "proposal_execute"
		err = p.proposalExecute(ctx, accounts, data)
	case ProposalAccountsCloseDiscriminator:
		name = "proposal_accounts_close"
		err = p.proposalAccountsClose(ctx, accounts, data)
	default:
		return errors.ErrInvalidInstruction.WithReason(fmt.Sprintf("unknown discriminator %x", disc))
	}

	if err != nil {
		if code, ok := errors.CodeOf(err); ok {
			monitoring.RecordRejectedOp(string(code))
		}
		logx.Warn("FORTIS", fmt.Sprintf("%s failed: %v", name, err))
		return err
	}
	return nil
}

func accountAt(accounts []*solana.AccountMeta, i int) (solana.PublicKey, error) {
	if i >= len(accounts) || accounts[i] == nil {
		return solana.PublicKey{}, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("missing account %d", i))
	}
	return accounts[i].PublicKey, nil
}

func requireNoArgs(data []byte) error {
	if len(data) != 8 {
		return errors.ErrInvalidInstruction.WithReason("unexpected instruction arguments")
	}
	return nil
}

func (p *Program) requireSigner(ctx *ledger.InvokeContext, key solana.PublicKey) error {
	if !ctx.IsSigner(key) {
		return errors.ErrMissingSignature.WithReason(key.String())
	}
	return nil
}

// loadOwned returns the data of an account this program owns, nil when the
// account does not exist.
func (p *Program) loadOwned(ctx *ledger.InvokeContext, addr solana.PublicKey) ([]byte, error) {
	acc, err := ctx.Account(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, nil
	}
	if !acc.Owner.Equals(p.id) {
		return nil, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("%s is not owned by the program", addr))
	}
	return acc.Data, nil
}

// isAllocated reports whether addr already holds a record. Lamports sent to
// an unallocated address do not count.
func (p *Program) isAllocated(ctx *ledger.InvokeContext, addr solana.PublicKey) (bool, error) {
	acc, err := ctx.Account(addr)
	if err != nil {
		return false, err
	}
	return acc != nil && (!acc.Owner.Equals(solana.SystemProgramID) || len(acc.Data) > 0), nil
}

func (p *Program) loadMultisig(ctx *ledger.InvokeContext, addr solana.PublicKey) (*Multisig, error) {
	data, err := p.loadOwned(ctx, addr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("multisig %s does not exist", addr))
	}
	ms, err := DecodeMultisig(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidAccount, err)
	}
	derived, err := solana.CreateProgramAddress(append(pda.MultisigSeeds(ms.CreateKey), []byte{ms.Bump}), p.id)
	if err != nil || !derived.Equals(addr) {
		return nil, errors.ErrInvalidAddress.WithReason(addr.String())
	}
	return ms, nil
}

// loadProposal returns the proposal at addr, checking it belongs to multisig
// and sits at its derived address. A missing proposal is ErrNotFound.
func (p *Program) loadProposal(ctx *ledger.InvokeContext, multisig, addr solana.PublicKey) (*Proposal, error) {
	data, err := p.loadOwned(ctx, addr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("proposal %s", addr))
	}
	prop, err := DecodeProposal(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidAccount, err)
	}
	if !prop.Multisig.Equals(multisig) {
		return nil, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("proposal %s belongs to %s", addr, prop.Multisig))
	}
	derived, err := solana.CreateProgramAddress(append(pda.ProposalSeeds(multisig, prop.TransactionIndex), []byte{prop.Bump}), p.id)
	if err != nil || !derived.Equals(addr) {
		return nil, errors.ErrInvalidAddress.WithReason(addr.String())
	}
	return prop, nil
}

func (p *Program) loadTransaction(ctx *ledger.InvokeContext, multisig solana.PublicKey, index uint64, addr solana.PublicKey) (*VaultTransaction, error) {
	expected, _ := pda.TransactionAddress(multisig, index, p.id)
	if !expected.Equals(addr) {
		return nil, errors.ErrInvalidAddress.WithReason(fmt.Sprintf("transaction %s is not at index %d", addr, index))
	}
	data, err := p.loadOwned(ctx, addr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("transaction %s", addr))
	}
	tx, err := DecodeVaultTransaction(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidAccount, err)
	}
	if !tx.Multisig.Equals(multisig) || tx.Index != index {
		return nil, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("transaction %s does not match proposal", addr))
	}
	return tx, nil
}

type encoder interface {
	Encode() ([]byte, error)
}

func (p *Program) store(ctx *ledger.InvokeContext, addr solana.PublicKey, record encoder) error {
	data, err := record.Encode()
	if err != nil {
		return err
	}
	return ctx.SetAccountData(addr, data)
}
