package program

import (
	"fmt"

	"github.com/fortis-labs/fortis/errors"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/message"
	"github.com/fortis-labs/fortis/monitoring"
	"github.com/fortis-labs/fortis/pda"
	"github.com/gagliardetto/solana-go"
)

// proposalExecute accounts:
//
//  0. multisig
//  1. proposal     writable
//  2. transaction
//  3. member       signer
//  4. message account keys, in message order, one per key
func (p *Program) proposalExecute(ctx *ledger.InvokeContext, accounts []*solana.AccountMeta, data []byte) error {
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
	member, err := accountAt(accounts, 3)
	if err != nil {
		return err
	}

	ms, err := p.loadMultisig(ctx, multisigAddr)
	if err != nil {
		return err
	}
	if err := p.requireSigner(ctx, member); err != nil {
		return err
	}
	if !ms.IsMember(member) {
		return errors.ErrNotAMember.WithReason(member.String())
	}
	prop, err := p.loadProposal(ctx, multisigAddr, proposalAddr)
	if err != nil {
		return err
	}

	now := ctx.Now()
	switch {
	case prop.Status == ProposalExecuted:
		return errors.ErrAlreadyExecuted
	case prop.Status != ProposalActive:
		return errors.ErrNotActive.WithReason(prop.Status.String())
	case prop.IsExpired(now):
		return errors.ErrExpired.WithReason(fmt.Sprintf("deadline %d, now %d", prop.VotingDeadline, now.Unix()))
	case !prop.IsApproved(ms.Threshold):
		return errors.ErrThresholdNotMet.WithReason(fmt.Sprintf("%d of %d approvals", len(prop.Approvals), ms.Threshold))
	}

	tx, err := p.loadTransaction(ctx, multisigAddr, prop.TransactionIndex, txAddr)
	if err != nil {
		return err
	}

	// recorded first so a nested call back into the program sees it executed;
	// a dispatch failure discards the whole batch including this write
	prop.Status = ProposalExecuted
	prop.ExecutedAt = now.Unix()
	if err := p.store(ctx, proposalAddr, prop); err != nil {
		return err
	}

	if err := p.executeMessage(ctx, multisigAddr, tx); err != nil {
		return err
	}

	monitoring.IncreaseProposalExecuted()
	ctx.Log("proposal %d executed by %s", prop.TransactionIndex, member)
	logx.Info("FORTIS", fmt.Sprintf("Executed proposal %d of %s", prop.TransactionIndex, multisigAddr))
	return nil
}

// executeMessage replays a stored vault transaction with the vault signing
// through its seeds. Ephemeral signers get fresh keys that live only for this
// call. The executor's own signature is never passed on.
func (p *Program) executeMessage(ctx *ledger.InvokeContext, multisig solana.PublicKey, tx *VaultTransaction) error {
	msg, err := message.Decode(tx.Message)
	if err != nil {
		return errors.Wrap(errors.ErrDecode, err)
	}
	if err := requireVaultOnlySigner(msg); err != nil {
		return errors.Wrap(errors.ErrDecode, err)
	}
	if msg.NumEphemeralSigners != tx.EphemeralSignerCount {
		return errors.ErrDecode.WithReason(fmt.Sprintf("message declares %d ephemeral signers, record %d", msg.NumEphemeralSigners, tx.EphemeralSignerCount))
	}

	vaultSeeds := pda.VaultSignerSeeds(multisig, tx.VaultIndex, tx.VaultBump)
	vault, err := solana.CreateProgramAddress(vaultSeeds, p.id)
	if err != nil {
		return errors.Wrap(errors.ErrDecode, err)
	}
	if msgVault, _ := msg.Vault(); !msgVault.Equals(vault) {
		return errors.ErrVaultMismatch.WithReason(fmt.Sprintf("message vault %s, multisig vault %s", msgVault, vault))
	}

	ephemeral := make([]solana.PrivateKey, msg.NumEphemeralSigners)
	for i := range ephemeral {
		if ephemeral[i], err = solana.NewRandomPrivateKey(); err != nil {
			return errors.Wrap(errors.ErrDispatchFailed, err)
		}
	}
	keyAt := func(idx uint8) solana.PublicKey {
		if int(idx) < len(msg.AccountKeys) {
			return msg.AccountKeys[idx]
		}
		return ephemeral[int(idx)-len(msg.AccountKeys)].PublicKey()
	}

	for i, compiled := range msg.Instructions {
		metas := make(solana.AccountMetaSlice, len(compiled.AccountIndexes))
		for j, idx := range compiled.AccountIndexes {
			metas[j] = solana.NewAccountMeta(keyAt(idx), msg.IsWritableIndex(int(idx)), msg.IsSignerIndex(int(idx)))
		}
		ix := solana.NewInstruction(msg.AccountKeys[compiled.ProgramIDIndex], metas, compiled.Data)
		if err := ctx.InvokeIsolated(ix, [][][]byte{vaultSeeds}, ephemeral); err != nil {
			return errors.Wrap(errors.ErrDispatchFailed, fmt.Errorf("instruction %d: %w", i, err))
		}
	}
	return nil
}
