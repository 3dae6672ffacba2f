package client

import (
	"fmt"
	"time"

	"github.com/fortis-labs/fortis/errors"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/message"
	"github.com/fortis-labs/fortis/pda"
	"github.com/fortis-labs/fortis/program"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/hashicorp/go-multierror"
)

// Client submits Fortis instructions to a ledger and reads records back
type Client struct {
	ledger    *ledger.Ledger
	programID solana.PublicKey
}

func New(l *ledger.Ledger, programID ...solana.PublicKey) *Client {
	return &Client{ledger: l, programID: programIDOrDefault(programID)}
}

func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

func (c *Client) Ledger() *ledger.Ledger {
	return c.ledger
}

func (c *Client) MultisigAddress(createKey solana.PublicKey) solana.PublicKey {
	addr, _ := pda.MultisigAddress(createKey, c.programID)
	return addr
}

func (c *Client) VaultAddress(multisig solana.PublicKey) solana.PublicKey {
	addr, _ := pda.VaultAddress(multisig, 0, c.programID)
	return addr
}

// CreateMultisig registers a multisig for createKey, paid by creator
func (c *Client) CreateMultisig(creator, createKey solana.PrivateKey, members []solana.PublicKey, threshold uint16, rentCollector *solana.PublicKey) (solana.PublicKey, *ledger.TxResult, error) {
	multisig := c.MultisigAddress(createKey.PublicKey())
	ix, err := MultisigCreate(MultisigCreateAccounts{
		Multisig:  multisig,
		CreateKey: createKey.PublicKey(),
		Creator:   creator.PublicKey(),
	}, program.MultisigCreateArgs{
		Members:       members,
		Threshold:     threshold,
		RentCollector: rentCollector,
	}, c.programID)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	res, err := c.ledger.SendTransaction([]solana.PrivateKey{creator, createKey}, ix)
	return multisig, res, err
}

// Deposit moves lamports from a wallet into the multisig vault
func (c *Client) Deposit(from solana.PrivateKey, multisig solana.PublicKey, lamports uint64) (*ledger.TxResult, error) {
	ix := system.NewTransferInstruction(lamports, from.PublicKey(), c.VaultAddress(multisig)).Build()
	return c.ledger.SendTransaction([]solana.PrivateKey{from}, ix)
}

// Propose compiles instructions for the vault and creates a proposal at the
// next transaction index. It returns the index used.
func (c *Client) Propose(creator solana.PrivateKey, multisig solana.PublicKey, instructions []solana.Instruction, ephemeralSigners []solana.PublicKey, votingDeadline time.Time, opts ...message.CompileOption) (uint64, *ledger.TxResult, error) {
	ms, err := c.Multisig(multisig)
	if err != nil {
		return 0, nil, err
	}
	index := ms.TransactionIndex + 1
	res, err := c.ProposeAt(creator, multisig, index, instructions, ephemeralSigners, votingDeadline, opts...)
	return index, res, err
}

// ProposeAt is Propose with an explicit transaction index
func (c *Client) ProposeAt(creator solana.PrivateKey, multisig solana.PublicKey, index uint64, instructions []solana.Instruction, ephemeralSigners []solana.PublicKey, votingDeadline time.Time, opts ...message.CompileOption) (*ledger.TxResult, error) {
	msg, err := message.Compile(c.VaultAddress(multisig), instructions, ephemeralSigners, opts...)
	if err != nil {
		return nil, err
	}
	txAddr, _ := pda.TransactionAddress(multisig, index, c.programID)
	proposalAddr, _ := pda.ProposalAddress(multisig, index, c.programID)
	ix, err := ProposalCreate(ProposalCreateAccounts{
		Multisig:    multisig,
		Transaction: txAddr,
		Proposal:    proposalAddr,
		Creator:     creator.PublicKey(),
	}, uint8(len(ephemeralSigners)), msg, votingDeadline.Unix(), index, c.programID)
	if err != nil {
		return nil, err
	}
	return c.ledger.SendTransaction([]solana.PrivateKey{creator}, ix)
}

// ProposeTransfer is a proposal moving lamports out of the vault
func (c *Client) ProposeTransfer(creator solana.PrivateKey, multisig, recipient solana.PublicKey, lamports uint64, votingDeadline time.Time) (uint64, *ledger.TxResult, error) {
	ix := system.NewTransferInstruction(lamports, c.VaultAddress(multisig), recipient).Build()
	return c.Propose(creator, multisig, []solana.Instruction{ix}, nil, votingDeadline)
}

func (c *Client) voteAccounts(member solana.PrivateKey, multisig solana.PublicKey, index uint64) ProposalVoteAccounts {
	proposalAddr, _ := pda.ProposalAddress(multisig, index, c.programID)
	return ProposalVoteAccounts{Multisig: multisig, Proposal: proposalAddr, Member: member.PublicKey()}
}

func (c *Client) Approve(member solana.PrivateKey, multisig solana.PublicKey, index uint64) (*ledger.TxResult, error) {
	return c.ledger.SendTransaction([]solana.PrivateKey{member}, ProposalApprove(c.voteAccounts(member, multisig, index), c.programID))
}

func (c *Client) Reject(member solana.PrivateKey, multisig solana.PublicKey, index uint64) (*ledger.TxResult, error) {
	return c.ledger.SendTransaction([]solana.PrivateKey{member}, ProposalReject(c.voteAccounts(member, multisig, index), c.programID))
}

func (c *Client) Cancel(member solana.PrivateKey, multisig solana.PublicKey, index uint64) (*ledger.TxResult, error) {
	return c.ledger.SendTransaction([]solana.PrivateKey{member}, ProposalCancel(c.voteAccounts(member, multisig, index), c.programID))
}

func (c *Client) Execute(member solana.PrivateKey, multisig solana.PublicKey, index uint64) (*ledger.TxResult, error) {
	txAddr, _ := pda.TransactionAddress(multisig, index, c.programID)
	proposalAddr, _ := pda.ProposalAddress(multisig, index, c.programID)
	acc, err := c.ledger.Account(txAddr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("transaction %d of %s", index, multisig))
	}
	ix, err := ProposalExecute(acc.Data, ProposalExecuteAccounts{
		Multisig:    multisig,
		Proposal:    proposalAddr,
		Transaction: txAddr,
		Member:      member.PublicKey(),
	}, c.programID)
	if err != nil {
		return nil, err
	}
	return c.ledger.SendTransaction([]solana.PrivateKey{member}, ix)
}

func (c *Client) Close(rentCollector solana.PrivateKey, multisig solana.PublicKey, index uint64) (*ledger.TxResult, error) {
	txAddr, _ := pda.TransactionAddress(multisig, index, c.programID)
	proposalAddr, _ := pda.ProposalAddress(multisig, index, c.programID)
	ix := ProposalAccountsClose(ProposalAccountsCloseAccounts{
		Multisig:      multisig,
		Proposal:      proposalAddr,
		Transaction:   txAddr,
		RentCollector: rentCollector.PublicKey(),
	}, c.programID)
	return c.ledger.SendTransaction([]solana.PrivateKey{rentCollector}, ix)
}

// CloseResolved closes every terminal proposal of multisig still holding
// storage. Proposals that fail to close are collected into one error and do
// not stop the sweep.
func (c *Client) CloseResolved(rentCollector solana.PrivateKey, multisig solana.PublicKey) ([]uint64, error) {
	ms, err := c.Multisig(multisig)
	if err != nil {
		return nil, err
	}

	now := c.ledger.Clock().Now()
	var closed []uint64
	var result *multierror.Error
	for index := uint64(1); index <= ms.TransactionIndex; index++ {
		prop, err := c.Proposal(multisig, index)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				result = multierror.Append(result, fmt.Errorf("proposal %d: %w", index, err))
			}
			continue
		}
		if !prop.IsTerminal(now) {
			continue
		}
		if _, err := c.Close(rentCollector, multisig, index); err != nil {
			result = multierror.Append(result, fmt.Errorf("proposal %d: %w", index, err))
			continue
		}
		closed = append(closed, index)
	}

	logx.Info("CLIENT", fmt.Sprintf("Closed %d resolved proposals of %s", len(closed), multisig))
	return closed, result.ErrorOrNil()
}

func (c *Client) Multisig(addr solana.PublicKey) (*program.Multisig, error) {
	data, err := c.ownedData(addr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("multisig %s does not exist", addr))
	}
	return program.DecodeMultisig(data)
}

func (c *Client) Proposal(multisig solana.PublicKey, index uint64) (*program.Proposal, error) {
	addr, _ := pda.ProposalAddress(multisig, index, c.programID)
	data, err := c.ownedData(addr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("proposal %d of %s", index, multisig))
	}
	return program.DecodeProposal(data)
}

func (c *Client) Transaction(multisig solana.PublicKey, index uint64) (*program.VaultTransaction, error) {
	addr, _ := pda.TransactionAddress(multisig, index, c.programID)
	data, err := c.ownedData(addr)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("transaction %d of %s", index, multisig))
	}
	return program.DecodeVaultTransaction(data)
}

func (c *Client) ownedData(addr solana.PublicKey) ([]byte, error) {
	acc, err := c.ledger.Account(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, nil
	}
	if !acc.Owner.Equals(c.programID) {
		return nil, errors.ErrInvalidAccount.WithReason(fmt.Sprintf("%s is not owned by the program", addr))
	}
	return acc.Data, nil
}
