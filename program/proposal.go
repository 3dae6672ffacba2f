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

const vaultIndex uint8 = 0

func (p *Program) proposalCreate(ctx *ledger.InvokeContext, accounts []*solana.AccountMeta, args ProposalCreateArgs) error {
	multisigAddr, err := accountAt(accounts, 0)
	if err != nil {
		return err
	}
	txAddr, err := accountAt(accounts, 1)
	if err != nil {
		return err
	}
	proposalAddr, err := accountAt(accounts, 2)
	if err != nil {
		return err
	}
	creator, err := accountAt(accounts, 3)
	if err != nil {
		return err
	}

	ms, err := p.loadMultisig(ctx, multisigAddr)
	if err != nil {
		return err
	}
	if err := p.requireSigner(ctx, creator); err != nil {
		return err
	}
	if !ms.IsMember(creator) {
		return errors.ErrNotAMember.WithReason(creator.String())
	}

	if args.TransactionIndex <= ms.TransactionIndex {
		return errors.ErrIndexReused.WithReason(fmt.Sprintf("index %d, current %d", args.TransactionIndex, ms.TransactionIndex))
	}
	if args.TransactionIndex != ms.TransactionIndex+1 {
		return errors.ErrInvalidIndex.WithReason(fmt.Sprintf("index %d, expected %d", args.TransactionIndex, ms.TransactionIndex+1))
	}

	expectedTx, txBump := pda.TransactionAddress(multisigAddr, args.TransactionIndex, p.id)
	expectedProposal, proposalBump := pda.ProposalAddress(multisigAddr, args.TransactionIndex, p.id)
	if !expectedTx.Equals(txAddr) {
		return errors.ErrInvalidAddress.WithReason(fmt.Sprintf("expected transaction %s, got %s", expectedTx, txAddr))
	}
	if !expectedProposal.Equals(proposalAddr) {
		return errors.ErrInvalidAddress.WithReason(fmt.Sprintf("expected proposal %s, got %s", expectedProposal, proposalAddr))
	}
	for _, addr := range []solana.PublicKey{txAddr, proposalAddr} {
		allocated, err := p.isAllocated(ctx, addr)
		if err != nil {
			return err
		}
		if allocated {
			return errors.ErrIndexReused.WithReason(fmt.Sprintf("%s already exists", addr))
		}
	}

	now := ctx.Now()
	if args.VotingDeadline <= now.Unix() {
		return errors.ErrInvalidDeadline.WithReason(fmt.Sprintf("deadline %d, now %d", args.VotingDeadline, now.Unix()))
	}

	if err := p.checkMessage(multisigAddr, args); err != nil {
		return err
	}

	index := ms.NextIndex()
	if err := p.store(ctx, multisigAddr, ms); err != nil {
		return err
	}

	_, vaultBump := pda.VaultAddress(multisigAddr, vaultIndex, p.id)
	tx := &VaultTransaction{
		Multisig:             multisigAddr,
		Creator:              creator,
		Index:                index,
		VaultIndex:           vaultIndex,
		VaultBump:            vaultBump,
		EphemeralSignerCount: args.EphemeralSigners,
		Message:              args.Message,
		Bump:                 txBump,
	}
	txData, err := tx.Encode()
	if err != nil {
		return err
	}
	txSeeds := append(pda.TransactionSeeds(multisigAddr, index), []byte{txBump})
	if err := p.allocate(ctx, creator, txAddr, txData, txSeeds); err != nil {
		return err
	}

	prop := &Proposal{
		Multisig:         multisigAddr,
		TransactionIndex: index,
		Creator:          creator,
		Approvals:        []solana.PublicKey{},
		Rejections:       []solana.PublicKey{},
		Cancellations:    []solana.PublicKey{},
		VotingDeadline:   args.VotingDeadline,
		Status:           ProposalActive,
		CreatedAt:        now.Unix(),
		Bump:             proposalBump,
	}
	propData, err := prop.Encode()
	if err != nil {
		return err
	}
	propSeeds := append(pda.ProposalSeeds(multisigAddr, index), []byte{proposalBump})
	if err := p.allocate(ctx, creator, proposalAddr, propData, propSeeds); err != nil {
		return err
	}

	monitoring.IncreaseProposalCreated()
	ctx.Log("proposal %d created for multisig %s", index, multisigAddr)
	logx.Info("FORTIS", fmt.Sprintf("Created proposal %d for multisig %s, deadline %d", index, multisigAddr, args.VotingDeadline))
	return nil
}

func (p *Program) allocate(ctx *ledger.InvokeContext, payer, addr solana.PublicKey, data []byte, seeds [][]byte) error {
	err := ctx.CreateAccount(payer, addr, p.id, data, seeds)
	if errors.Is(err, ledger.ErrAccountExists) {
		return errors.ErrIndexReused.WithReason(fmt.Sprintf("%s already exists", addr))
	}
	return err
}

// checkMessage verifies a compiled message decodes, spends from vault 0 of
// multisig with the vault as its only signer key and declares the same
// ephemeral signer count as the arguments.
func (p *Program) checkMessage(multisig solana.PublicKey, args ProposalCreateArgs) error {
	if p.limits.MaxMessageSize > 0 && len(args.Message) > p.limits.MaxMessageSize {
		return errors.ErrMessageTooLarge.WithReason(fmt.Sprintf("%d bytes exceeds %d", len(args.Message), p.limits.MaxMessageSize))
	}
	msg, err := message.Decode(args.Message)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidInstruction, err)
	}
	vault, _ := pda.VaultAddress(multisig, vaultIndex, p.id)
	if msgVault, _ := msg.Vault(); !msgVault.Equals(vault) {
		return errors.ErrVaultMismatch.WithReason(fmt.Sprintf("message vault %s, multisig vault %s", msgVault, vault))
	}
	if err := requireVaultOnlySigner(msg); err != nil {
		return err
	}
	if msg.NumEphemeralSigners != args.EphemeralSigners {
		return errors.ErrEphemeralMismatch.WithReason(fmt.Sprintf("message declares %d, instruction %d", msg.NumEphemeralSigners, args.EphemeralSigners))
	}
	return nil
}

// requireVaultOnlySigner rejects messages that ask any account key besides
// the vault to sign. Ephemeral signers are not account keys.
func requireVaultOnlySigner(msg *message.VaultTransactionMessage) error {
	if msg.NumSigners != 1 {
		return errors.ErrUnexpectedSigner.WithReason(fmt.Sprintf("message declares %d signers, only the vault may sign", msg.NumSigners))
	}
	return nil
}

type voteKind int

const (
	voteApprove voteKind = iota
	voteReject
	voteCancel
)

func (v voteKind) metric() monitoring.VoteKind {
	switch v {
	case voteReject:
		return monitoring.VoteReject
	case voteCancel:
		return monitoring.VoteCancel
	default:
		return monitoring.VoteApprove
	}
}

// proposalVote handles approve, reject and cancel. Accounts:
//
//  0. multisig
//  1. proposal  writable
//  2. member    signer
func (p *Program) proposalVote(ctx *ledger.InvokeContext, accounts []*solana.AccountMeta, data []byte, kind voteKind) error {
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
	member, err := accountAt(accounts, 2)
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
	switch kind {
	case voteApprove, voteReject:
		if prop.Status != ProposalActive {
			return errors.ErrNotActive.WithReason(prop.Status.String())
		}
		if prop.IsExpired(now) {
			return errors.ErrExpired.WithReason(fmt.Sprintf("deadline %d, now %d", prop.VotingDeadline, now.Unix()))
		}
		if prop.HasApproved(member) {
			return errors.ErrAlreadyApproved.WithReason(member.String())
		}
		if prop.HasRejected(member) {
			return errors.ErrAlreadyRejected.WithReason(member.String())
		}
		if kind == voteApprove {
			prop.Approvals = insertKey(prop.Approvals, member)
			break
		}
		prop.Rejections = insertKey(prop.Rejections, member)
		// threshold is out of reach once more than n - threshold members reject
		if len(prop.Rejections) > len(ms.Members)-int(ms.Threshold) {
			prop.Status = ProposalRejected
		}

	case voteCancel:
		if prop.Status == ProposalExecuted {
			return errors.ErrAlreadyExecuted
		}
		if prop.Status != ProposalActive {
			return errors.ErrNotActive.WithReason(prop.Status.String())
		}
		if prop.IsExpired(now) {
			return errors.ErrExpired.WithReason(fmt.Sprintf("deadline %d, now %d", prop.VotingDeadline, now.Unix()))
		}
		if prop.HasCancelled(member) {
			return errors.ErrAlreadyCancelled.WithReason(member.String())
		}
		prop.Cancellations = insertKey(prop.Cancellations, member)
		if len(prop.Cancellations) >= int(ms.Threshold) {
			prop.Status = ProposalCancelled
		}
	}

	if err := p.store(ctx, proposalAddr, prop); err != nil {
		return err
	}

	monitoring.RecordVote(kind.metric())
	ctx.Log("proposal %d: %s by %s, status %s", prop.TransactionIndex, kind.metric(), member, prop.Status)
	logx.Info("FORTIS", fmt.Sprintf("Proposal %d of %s: %s by %s (approvals %d/%d, status %s)",
		prop.TransactionIndex, multisigAddr, kind.metric(), member, len(prop.Approvals), ms.Threshold, prop.Status))
	return nil
}
