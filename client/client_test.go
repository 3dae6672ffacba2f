package client

import (
	"testing"
	"time"

	"github.com/fortis-labs/fortis/errors"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/message"
	"github.com/fortis-labs/fortis/pda"
	"github.com/fortis-labs/fortis/program"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k
}

func TestInstructionAccounts(t *testing.T) {
	createKey := newKey(t).PublicKey()
	creator := newKey(t).PublicKey()
	ms, _ := pda.MultisigAddress(createKey)

	ix, err := MultisigCreate(MultisigCreateAccounts{Multisig: ms, CreateKey: createKey, Creator: creator},
		program.MultisigCreateArgs{Members: []solana.PublicKey{creator}, Threshold: 1})
	require.NoError(t, err)
	assert.Equal(t, pda.ProgramID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	assert.True(t, accounts[0].IsWritable)
	assert.True(t, accounts[1].IsSigner)
	assert.True(t, accounts[2].IsSigner && accounts[2].IsWritable)
	assert.Equal(t, solana.SystemProgramID, accounts[3].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, program.MultisigCreateDiscriminator[:], data[:8])

	other := newKey(t).PublicKey()
	approve := ProposalApprove(ProposalVoteAccounts{Multisig: ms, Proposal: other, Member: creator}, other)
	assert.Equal(t, other, approve.ProgramID())
}

func TestProposalExecuteAppendsMessageAccounts(t *testing.T) {
	ms, _ := pda.MultisigAddress(newKey(t).PublicKey())
	vault, vaultBump := pda.VaultAddress(ms, 0)
	to := newKey(t).PublicKey()

	msg, err := message.Compile(vault, []solana.Instruction{system.NewTransferInstruction(5, vault, to).Build()}, nil)
	require.NoError(t, err)
	encoded, err := msg.Encode()
	require.NoError(t, err)

	record := &program.VaultTransaction{Multisig: ms, Index: 1, VaultBump: vaultBump, Message: encoded}
	data, err := record.Encode()
	require.NoError(t, err)

	ix, err := ProposalExecute(data, ProposalExecuteAccounts{Multisig: ms})
	require.NoError(t, err)
	accounts := ix.Accounts()
	require.Len(t, accounts, 4+len(msg.AccountKeys))
	assert.Equal(t, vault, accounts[4].PublicKey)
	assert.False(t, accounts[4].IsSigner)
	assert.True(t, accounts[4].IsWritable)
	assert.Equal(t, to, accounts[5].PublicKey)

	_, err = ProposalExecute([]byte{1, 2, 3}, ProposalExecuteAccounts{Multisig: ms})
	assert.Error(t, err)
}

func TestCloseResolvedSweep(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(1_700_000_000, 0))
	l, err := ledger.NewInMemory(clock, nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	l.RegisterProgram(program.New(nil))
	c := New(l)

	a, b := newKey(t), newKey(t)
	for _, m := range []solana.PrivateKey{a, b} {
		require.NoError(t, l.Airdrop(m.PublicKey(), 10_000_000_000))
	}
	collector := a.PublicKey()
	ms, _, err := c.CreateMultisig(a, newKey(t), []solana.PublicKey{a.PublicKey(), b.PublicKey()}, 2, &collector)
	require.NoError(t, err)
	_, err = c.Deposit(a, ms, 1_000_000_000)
	require.NoError(t, err)

	to := newKey(t).PublicKey()
	deadline := clock.Now().Add(time.Hour)

	// 1 executed, 2 rejected, 3 still active
	executed, _, err := c.ProposeTransfer(a, ms, to, 100, deadline)
	require.NoError(t, err)
	rejected, _, err := c.ProposeTransfer(a, ms, to, 100, deadline)
	require.NoError(t, err)
	active, _, err := c.ProposeTransfer(a, ms, to, 100, deadline)
	require.NoError(t, err)

	for _, m := range []solana.PrivateKey{a, b} {
		_, err = c.Approve(m, ms, executed)
		require.NoError(t, err)
	}
	_, err = c.Execute(b, ms, executed)
	require.NoError(t, err)
	_, err = c.Reject(b, ms, rejected)
	require.NoError(t, err)

	closed, err := c.CloseResolved(a, ms)
	require.NoError(t, err)
	assert.Equal(t, []uint64{executed, rejected}, closed)

	_, err = c.Proposal(ms, executed)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	prop, err := c.Proposal(ms, active)
	require.NoError(t, err)
	assert.Equal(t, program.ProposalActive, prop.Status)

	// a sweep by someone other than the collector reports every failure
	clock.Advance(2 * time.Hour)
	closed, err = c.CloseResolved(b, ms)
	assert.Empty(t, closed)
	assert.ErrorIs(t, err, errors.ErrNotRentCollector)
}
