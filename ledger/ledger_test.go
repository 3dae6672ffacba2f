package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fortis-labs/fortis/store"
	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *ManualClock) {
	t.Helper()
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	l, err := NewInMemory(clock, nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l, clock
}

func newWallet(t *testing.T) solana.PrivateKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k
}

func balanceOf(t *testing.T, l *Ledger, addr solana.PublicKey) uint64 {
	t.Helper()
	b, err := l.Balance(addr)
	require.NoError(t, err)
	return b.Uint64()
}

// vaultProgram signs for the program address of ["vault"] and moves its
// lamports, exercising InvokeSigned the way a treasury does.
type vaultProgram struct {
	id   solana.PublicKey
	bump uint8
}

func (p *vaultProgram) ID() solana.PublicKey { return p.id }

func (p *vaultProgram) vault() solana.PublicKey {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte("vault")}, p.id)
	if err != nil {
		panic(err)
	}
	p.bump = bump
	return addr
}

func (p *vaultProgram) Process(ctx *InvokeContext, ix solana.Instruction) error {
	data, err := ix.Data()
	if err != nil {
		return err
	}
	vault := p.vault()
	recipient := ix.Accounts()[0].PublicKey
	transfer := system.NewTransferInstruction(uint64(data[0]), vault, recipient).Build()
	seeds := [][][]byte{{[]byte("vault"), {p.bump}}}
	if len(data) > 1 && data[1] == 1 {
		seeds = nil
	}
	return ctx.InvokeSigned(transfer, seeds, nil)
}

func TestAirdropAndBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	addr := newWallet(t).PublicKey()

	assert.Equal(t, uint64(0), balanceOf(t, l, addr))
	require.NoError(t, l.Airdrop(addr, 500))
	require.NoError(t, l.Airdrop(addr, 250))
	assert.Equal(t, uint64(750), balanceOf(t, l, addr))

	acc, err := l.Account(addr)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, solana.SystemProgramID, acc.Owner)
}

func TestSystemTransfer(t *testing.T) {
	l, _ := newTestLedger(t)
	alice := newWallet(t)
	bob := newWallet(t).PublicKey()
	require.NoError(t, l.Airdrop(alice.PublicKey(), 1000))

	res, err := l.SendTransaction([]solana.PrivateKey{alice},
		system.NewTransferInstruction(300, alice.PublicKey(), bob).Build())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Logs)

	assert.Equal(t, uint64(700), balanceOf(t, l, alice.PublicKey()))
	assert.Equal(t, uint64(300), balanceOf(t, l, bob))
}

func TestMissingSignatureIsRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	alice := newWallet(t)
	mallory := newWallet(t)
	require.NoError(t, l.Airdrop(alice.PublicKey(), 1000))

	_, err := l.SendTransaction([]solana.PrivateKey{mallory},
		system.NewTransferInstruction(300, alice.PublicKey(), mallory.PublicKey()).Build())
	assert.ErrorIs(t, err, ErrMissingSignature)
	assert.Equal(t, uint64(1000), balanceOf(t, l, alice.PublicKey()))
}

func TestForgedSignerIsRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	alice := newWallet(t)
	other := newWallet(t)
	require.NoError(t, l.Airdrop(alice.PublicKey(), 1000))

	// seed of other, public half of alice
	forged := append(append(solana.PrivateKey{}, other[:32]...), alice.PublicKey().Bytes()...)
	_, err := l.SendTransaction([]solana.PrivateKey{forged},
		system.NewTransferInstruction(300, alice.PublicKey(), other.PublicKey()).Build())
	assert.ErrorIs(t, err, ErrInvalidSigner)
	assert.Equal(t, uint64(1000), balanceOf(t, l, alice.PublicKey()))
}

func TestFailedInstructionRollsBackBatch(t *testing.T) {
	l, _ := newTestLedger(t)
	alice := newWallet(t)
	bob := newWallet(t).PublicKey()
	require.NoError(t, l.Airdrop(alice.PublicKey(), 1000))

	_, err := l.SendTransaction([]solana.PrivateKey{alice},
		system.NewTransferInstruction(600, alice.PublicKey(), bob).Build(),
		system.NewTransferInstruction(600, alice.PublicKey(), bob).Build(),
	)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(1000), balanceOf(t, l, alice.PublicKey()))
	assert.Equal(t, uint64(0), balanceOf(t, l, bob))
}

func TestUnknownProgram(t *testing.T) {
	l, _ := newTestLedger(t)
	payer := newWallet(t)
	ix := solana.NewInstruction(newWallet(t).PublicKey(), solana.AccountMetaSlice{}, []byte{1})

	_, err := l.SendTransaction([]solana.PrivateKey{payer}, ix)
	assert.ErrorIs(t, err, ErrUnknownProgram)
}

func TestSystemCreateAccountRequiresRent(t *testing.T) {
	l, _ := newTestLedger(t)
	payer := newWallet(t)
	fresh := newWallet(t)
	owner := newWallet(t).PublicKey()
	require.NoError(t, l.Airdrop(payer.PublicKey(), 10_000_000))

	rent := l.rent(16)
	_, err := l.SendTransaction([]solana.PrivateKey{payer, fresh},
		system.NewCreateAccountInstruction(rent-1, 16, owner, payer.PublicKey(), fresh.PublicKey()).Build())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = l.SendTransaction([]solana.PrivateKey{payer, fresh},
		system.NewCreateAccountInstruction(rent, 16, owner, payer.PublicKey(), fresh.PublicKey()).Build())
	require.NoError(t, err)

	acc, err := l.Account(fresh.PublicKey())
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, owner, acc.Owner)
	assert.Len(t, acc.Data, 16)
	assert.Equal(t, rent, acc.Lamports.Uint64())
	assert.Equal(t, 10_000_000-rent, balanceOf(t, l, payer.PublicKey()))

	_, err = l.SendTransaction([]solana.PrivateKey{payer, fresh},
		system.NewCreateAccountInstruction(rent, 16, owner, payer.PublicKey(), fresh.PublicKey()).Build())
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestInvokeSignedWithProgramAddress(t *testing.T) {
	l, _ := newTestLedger(t)
	prog := &vaultProgram{id: newWallet(t).PublicKey()}
	l.RegisterProgram(prog)

	payer := newWallet(t)
	recipient := newWallet(t).PublicKey()
	require.NoError(t, l.Airdrop(prog.vault(), 100))

	ix := solana.NewInstruction(prog.id, solana.AccountMetaSlice{solana.Meta(recipient).WRITE()}, []byte{40})
	_, err := l.SendTransaction([]solana.PrivateKey{payer}, ix)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), balanceOf(t, l, prog.vault()))
	assert.Equal(t, uint64(40), balanceOf(t, l, recipient))

	// without seeds the vault never signs
	ix = solana.NewInstruction(prog.id, solana.AccountMetaSlice{solana.Meta(recipient).WRITE()}, []byte{40, 1})
	_, err = l.SendTransaction([]solana.PrivateKey{payer}, ix)
	assert.ErrorIs(t, err, ErrMissingSignature)
	assert.Equal(t, uint64(60), balanceOf(t, l, prog.vault()))
}

// relayProgram moves lamports from its first account to its second. A
// leading 1 in the data invokes the transfer without the caller's signers.
type relayProgram struct {
	id solana.PublicKey
}

func (p *relayProgram) ID() solana.PublicKey { return p.id }

func (p *relayProgram) Process(ctx *InvokeContext, ix solana.Instruction) error {
	data, err := ix.Data()
	if err != nil {
		return err
	}
	accounts := ix.Accounts()
	transfer := system.NewTransferInstruction(uint64(data[1]), accounts[0].PublicKey, accounts[1].PublicKey).Build()
	if data[0] == 1 {
		return ctx.InvokeIsolated(transfer, nil, nil)
	}
	return ctx.InvokeSigned(transfer, nil, nil)
}

func TestInvokeIsolatedDropsCallerSigners(t *testing.T) {
	l, _ := newTestLedger(t)
	prog := &relayProgram{id: newWallet(t).PublicKey()}
	l.RegisterProgram(prog)

	alice := newWallet(t)
	bob := newWallet(t).PublicKey()
	require.NoError(t, l.Airdrop(alice.PublicKey(), 100))
	metas := solana.AccountMetaSlice{
		solana.Meta(alice.PublicKey()).WRITE().SIGNER(),
		solana.Meta(bob).WRITE(),
	}

	_, err := l.SendTransaction([]solana.PrivateKey{alice}, solana.NewInstruction(prog.id, metas, []byte{0, 30}))
	require.NoError(t, err)
	assert.Equal(t, uint64(70), balanceOf(t, l, alice.PublicKey()))

	_, err = l.SendTransaction([]solana.PrivateKey{alice}, solana.NewInstruction(prog.id, metas, []byte{1, 30}))
	assert.ErrorIs(t, err, ErrMissingSignature)
	assert.Equal(t, uint64(70), balanceOf(t, l, alice.PublicKey()))
	assert.Equal(t, uint64(30), balanceOf(t, l, bob))
}

func TestManualClock(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewManualClock(start)
	assert.Equal(t, start, c.Now())
	c.Advance(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestStateHashChainsCommittedBatches(t *testing.T) {
	l, _ := newTestLedger(t)
	seq, hash := l.StateHash()
	assert.Equal(t, uint64(0), seq)
	assert.Equal(t, solana.Hash{}, hash)

	from := newWallet(t)
	require.NoError(t, l.Airdrop(from.PublicKey(), 1_000))
	seq, afterAirdrop := l.StateHash()
	assert.Equal(t, uint64(1), seq)
	assert.NotEqual(t, solana.Hash{}, afterAirdrop)

	ix := system.NewTransferInstruction(100, from.PublicKey(), newWallet(t).PublicKey()).Build()
	res, err := l.SendTransaction([]solana.PrivateKey{from}, ix)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Sequence)
	assert.NotEqual(t, afterAirdrop, res.StateHash)

	bad := system.NewTransferInstruction(10_000, from.PublicKey(), newWallet(t).PublicKey()).Build()
	res, err = l.SendTransaction([]solana.PrivateKey{from}, bad)
	require.Error(t, err)
	assert.Zero(t, res.Sequence)
	seq, hash = l.StateHash()
	assert.Equal(t, uint64(2), seq)

	stored, ok, err := l.stateMeta.GetStateHash(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [32]byte(hash), stored)
}

func TestAccountsDeltaHashIsOrderIndependent(t *testing.T) {
	a, b := newWallet(t).PublicKey(), newWallet(t).PublicKey()
	accA := &types.Account{Address: a, Lamports: uint256.NewInt(1), Owner: solana.SystemProgramID}
	accB := &types.Account{Address: b, Lamports: uint256.NewInt(2), Owner: solana.SystemProgramID, Data: []byte{7}}

	first := ComputeAccountsDeltaHash(map[solana.PublicKey]*types.Account{a: accA, b: accB})
	second := ComputeAccountsDeltaHash(map[solana.PublicKey]*types.Account{b: accB, a: accA})
	assert.Equal(t, first, second)

	removed := ComputeAccountsDeltaHash(map[solana.PublicKey]*types.Account{a: nil, b: accB})
	assert.NotEqual(t, first, removed)
	assert.Equal(t, [32]byte{}, ComputeAccountsDeltaHash(nil))

	delta := [32]byte{1}
	assert.Equal(t, delta, CombineStateHash([32]byte{}, delta))
	assert.NotEqual(t, delta, CombineStateHash(delta, delta))
}

func TestLedgerPublishesBatchEvents(t *testing.T) {
	l, _ := newTestLedger(t)
	events := l.Events().Subscribe(types.AllEvents)

	from := newWallet(t)
	require.NoError(t, l.Airdrop(from.PublicKey(), 1_000))
	ok := system.NewTransferInstruction(1, from.PublicKey(), newWallet(t).PublicKey()).Build()
	res, err := l.SendTransaction([]solana.PrivateKey{from}, ok)
	require.NoError(t, err)
	bad := system.NewTransferInstruction(5_000, from.PublicKey(), newWallet(t).PublicKey()).Build()
	_, err = l.SendTransaction([]solana.PrivateKey{from}, bad)
	require.Error(t, err)

	applied := (<-events).(*types.BatchApplied)
	assert.Equal(t, res.Signature.String(), applied.TxHash())
	assert.Equal(t, res.Sequence, applied.Sequence())
	assert.Equal(t, res.StateHash.String(), applied.StateHash())

	rolledBack := (<-events).(*types.BatchRolledBack)
	assert.Contains(t, rolledBack.ErrorMessage(), ErrInsufficientFunds.Error())
}

func TestLedgerResumesStateHashFromStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "accounts")
	open := func() *Ledger {
		stores, err := store.CreateStores(&store.StoreConfig{Type: store.LevelDBStoreType, Directory: dir})
		require.NoError(t, err)
		l, err := NewLedger(stores, nil, nil)
		require.NoError(t, err)
		return l
	}

	l := open()
	require.NoError(t, l.Airdrop(newWallet(t).PublicKey(), 5))
	seq, hash := l.StateHash()
	l.Close()

	l = open()
	defer l.Close()
	resumedSeq, resumedHash := l.StateHash()
	assert.Equal(t, seq, resumedSeq)
	assert.Equal(t, hash, resumedHash)
}
