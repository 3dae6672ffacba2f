// Package client builds Fortis instructions and drives them against a ledger.
package client

import (
	"fmt"

	"github.com/fortis-labs/fortis/message"
	"github.com/fortis-labs/fortis/pda"
	"github.com/fortis-labs/fortis/program"
	"github.com/gagliardetto/solana-go"
)

type MultisigCreateAccounts struct {
	Multisig  solana.PublicKey
	CreateKey solana.PublicKey
	Creator   solana.PublicKey
}

type ProposalCreateAccounts struct {
	Multisig    solana.PublicKey
	Transaction solana.PublicKey
	Proposal    solana.PublicKey
	Creator     solana.PublicKey
}

// ProposalVoteAccounts is shared by approve, reject and cancel
type ProposalVoteAccounts struct {
	Multisig solana.PublicKey
	Proposal solana.PublicKey
	Member   solana.PublicKey
}

type ProposalExecuteAccounts struct {
	Multisig    solana.PublicKey
	Proposal    solana.PublicKey
	Transaction solana.PublicKey
	Member      solana.PublicKey
}

type ProposalAccountsCloseAccounts struct {
	Multisig      solana.PublicKey
	Proposal      solana.PublicKey
	Transaction   solana.PublicKey
	RentCollector solana.PublicKey
}

func programIDOrDefault(programID []solana.PublicKey) solana.PublicKey {
	if len(programID) > 0 && !programID[0].IsZero() {
		return programID[0]
	}
	return pda.ProgramID
}

func MultisigCreate(accounts MultisigCreateAccounts, args program.MultisigCreateArgs, programID ...solana.PublicKey) (solana.Instruction, error) {
	data, err := program.EncodeMultisigCreate(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode multisig_create: %w", err)
	}
	return solana.NewInstruction(programIDOrDefault(programID), solana.AccountMetaSlice{
		solana.Meta(accounts.Multisig).WRITE(),
		solana.Meta(accounts.CreateKey).SIGNER(),
		solana.Meta(accounts.Creator).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

func ProposalCreate(accounts ProposalCreateAccounts, numEphemeralSigners uint8, msg *message.VaultTransactionMessage, votingDeadline int64, transactionIndex uint64, programID ...solana.PublicKey) (solana.Instruction, error) {
	encoded, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault message: %w", err)
	}
	data, err := program.EncodeProposalCreate(program.ProposalCreateArgs{
		TransactionIndex: transactionIndex,
		VotingDeadline:   votingDeadline,
		EphemeralSigners: numEphemeralSigners,
		Message:          encoded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode proposal_create: %w", err)
	}
	return solana.NewInstruction(programIDOrDefault(programID), solana.AccountMetaSlice{
		solana.Meta(accounts.Multisig).WRITE(),
		solana.Meta(accounts.Transaction).WRITE(),
		solana.Meta(accounts.Proposal).WRITE(),
		solana.Meta(accounts.Creator).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

func proposalVote(disc [8]byte, accounts ProposalVoteAccounts, programID []solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(programIDOrDefault(programID), solana.AccountMetaSlice{
		solana.Meta(accounts.Multisig),
		solana.Meta(accounts.Proposal).WRITE(),
		solana.Meta(accounts.Member).SIGNER(),
	}, program.EncodeNoArgs(disc))
}

func ProposalApprove(accounts ProposalVoteAccounts, programID ...solana.PublicKey) solana.Instruction {
	return proposalVote(program.ProposalApproveDiscriminator, accounts, programID)
}

func ProposalReject(accounts ProposalVoteAccounts, programID ...solana.PublicKey) solana.Instruction {
	return proposalVote(program.ProposalRejectDiscriminator, accounts, programID)
}

func ProposalCancel(accounts ProposalVoteAccounts, programID ...solana.PublicKey) solana.Instruction {
	return proposalVote(program.ProposalCancelDiscriminator, accounts, programID)
}

// ProposalExecute reads the stored transaction record to append every
// account the vault message touches.
func ProposalExecute(transactionData []byte, accounts ProposalExecuteAccounts, programID ...solana.PublicKey) (solana.Instruction, error) {
	tx, err := program.DecodeVaultTransaction(transactionData)
	if err != nil {
		return nil, err
	}
	msg, err := message.Decode(tx.Message)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(accounts.Multisig),
		solana.Meta(accounts.Proposal).WRITE(),
		solana.Meta(accounts.Transaction),
		solana.Meta(accounts.Member).SIGNER(),
	}
	for i, key := range msg.AccountKeys {
		meta := solana.NewAccountMeta(key, msg.IsWritableIndex(i), false)
		metas = append(metas, meta)
	}
	return solana.NewInstruction(programIDOrDefault(programID), metas, program.EncodeNoArgs(program.ProposalExecuteDiscriminator)), nil
}

func ProposalAccountsClose(accounts ProposalAccountsCloseAccounts, programID ...solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(programIDOrDefault(programID), solana.AccountMetaSlice{
		solana.Meta(accounts.Multisig),
		solana.Meta(accounts.Proposal).WRITE(),
		solana.Meta(accounts.Transaction).WRITE(),
		solana.Meta(accounts.RentCollector).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, program.EncodeNoArgs(program.ProposalAccountsCloseDiscriminator))
}
