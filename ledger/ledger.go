package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fortis-labs/fortis/config"
	"github.com/fortis-labs/fortis/db"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/monitoring"
	"github.com/fortis-labs/fortis/store"
	"github.com/fortis-labs/fortis/types"
	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

var (
	ErrMissingSignature  = errors.New("missing required signature")
	ErrInvalidSigner     = errors.New("signer failed verification")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient lamports")
	ErrBalanceOverflow   = errors.New("lamport balance overflow")
	ErrNotOwner          = errors.New("account not owned by program")
	ErrUnknownProgram    = errors.New("unknown program")
	ErrInvalidSeeds      = errors.New("seeds do not derive a program address")
	ErrCallDepth         = errors.New("cross program invocation too deep")
	ErrEmptyTransaction  = errors.New("transaction has no instructions")
)

// Program handles instructions addressed to its ID
type Program interface {
	ID() solana.PublicKey
	Process(ctx *InvokeContext, ix solana.Instruction) error
}

// TxResult reports a committed batch. Sequence and StateHash are zero when
// the batch was rolled back.
type TxResult struct {
	Signature solana.Signature `json:"signature"`
	Sequence  uint64           `json:"sequence"`
	StateHash solana.Hash      `json:"stateHash"`
	Logs      []string         `json:"logs"`
}

// Ledger applies instruction batches atomically over an account store. One
// batch runs at a time; a failing instruction discards the whole batch.
type Ledger struct {
	mu           sync.Mutex
	accountStore store.AccountStore
	stateMeta    store.StateMetaStore
	txManager    *db.DBTxManager
	events       *types.EventBus
	programs     map[solana.PublicKey]Program
	clock        Clock
	limits       *config.LimitsConfig

	// chained hash of every committed batch, resumed from stateMeta
	seq       uint64
	stateHash [32]byte
}

func NewLedger(stores *store.Stores, clock Clock, limits *config.LimitsConfig) (*Ledger, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if limits == nil {
		limits = config.DefaultLimits()
	}
	seq, stateHash, err := stores.StateMeta.Latest()
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		accountStore: stores.Accounts,
		stateMeta:    stores.StateMeta,
		txManager:    stores.TxManager,
		events:       types.NewEventBus(),
		programs:     make(map[solana.PublicKey]Program),
		clock:        clock,
		limits:       limits,
		seq:          seq,
		stateHash:    stateHash,
	}
	l.RegisterProgram(SystemProgram{})
	return l, nil
}

// NewInMemory builds a ledger over an in-memory LevelDB
func NewInMemory(clock Clock, limits *config.LimitsConfig) (*Ledger, error) {
	stores, err := store.CreateStores(&store.StoreConfig{Type: store.MemoryStoreType})
	if err != nil {
		return nil, err
	}
	return NewLedger(stores, clock, limits)
}

func (l *Ledger) RegisterProgram(p Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[p.ID()] = p
}

func (l *Ledger) Clock() Clock {
	return l.clock
}

func (l *Ledger) Limits() *config.LimitsConfig {
	return l.limits
}

// Events publishes a BatchApplied or BatchRolledBack event per submitted batch
func (l *Ledger) Events() *types.EventBus {
	return l.events
}

// StateHash returns the sequence and chained hash of the last committed batch
func (l *Ledger) StateHash() (uint64, solana.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq, solana.Hash(l.stateHash)
}

// commit writes the overlay and the next state hash in one batch. The
// in-memory chain only advances once the write succeeded.
func (l *Ledger) commit(state *overlay) (uint64, [32]byte, error) {
	seq := l.seq + 1
	stateHash := CombineStateHash(l.stateHash, ComputeAccountsDeltaHash(state.changes()))
	err := l.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := state.flush(batch); err != nil {
			return err
		}
		l.stateMeta.SetStateHashInBatch(batch, seq, stateHash)
		return nil
	})
	if err != nil {
		return 0, [32]byte{}, err
	}
	l.seq, l.stateHash = seq, stateHash
	return seq, stateHash, nil
}

func (l *Ledger) rollback(txSig solana.Signature, logs []string, err error) (*TxResult, error) {
	monitoring.IncreaseRolledBackBatch()
	l.events.Publish(types.NewBatchRolledBack(txSig.String(), err.Error()))
	return &TxResult{Signature: txSig, Logs: logs}, err
}

// SendTransaction verifies signers, runs every instruction against one
// overlay and commits the overlay in a single write batch.
func (l *Ledger) SendTransaction(signers []solana.PrivateKey, ixs ...solana.Instruction) (*TxResult, error) {
	if len(ixs) == 0 {
		return nil, ErrEmptyTransaction
	}

	payload, err := instructionsPayload(ixs)
	if err != nil {
		return nil, err
	}

	signerSet := make(map[solana.PublicKey]bool, len(signers))
	var txSig solana.Signature
	for i, key := range signers {
		sig, err := verifySigner(key, payload)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			txSig = sig
		}
		signerSet[key.PublicKey()] = true
	}
	for _, ix := range ixs {
		if err := checkSigners(ix, signerSet); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state := newOverlay(l.accountStore)
	logs := make([]string, 0)
	now := l.clock.Now()

	for i, ix := range ixs {
		if err := l.dispatch(state, ix, signerSet, 0, now, &logs); err != nil {
			logx.Warn("LEDGER", fmt.Sprintf("Batch %s rolled back at instruction %d: %v", txSig, i, err))
			return l.rollback(txSig, logs, fmt.Errorf("instruction %d: %w", i, err))
		}
	}

	seq, stateHash, err := l.commit(state)
	if err != nil {
		logx.Error("LEDGER", fmt.Sprintf("Failed to commit batch %s: %v", txSig, err))
		return l.rollback(txSig, logs, err)
	}

	monitoring.IncreaseAppliedBatch()
	logx.Info("LEDGER", fmt.Sprintf("Applied batch %s with %d instructions at sequence %d", txSig, len(ixs), seq))
	res := &TxResult{Signature: txSig, Sequence: seq, StateHash: solana.Hash(stateHash), Logs: logs}
	l.events.Publish(types.NewBatchApplied(txSig.String(), seq, res.StateHash.String(), logs))
	return res, nil
}

func (l *Ledger) dispatch(state *overlay, ix solana.Instruction, signers map[solana.PublicKey]bool, depth int, now time.Time, logs *[]string) error {
	program, ok := l.programs[ix.ProgramID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID())
	}
	ctx := &InvokeContext{
		ledger:    l,
		state:     state,
		programID: program.ID(),
		signers:   signers,
		depth:     depth,
		now:       now,
		logs:      logs,
	}
	return program.Process(ctx, ix)
}

// Airdrop credits lamports to addr outside of any program
func (l *Ledger) Airdrop(addr solana.PublicKey, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := newOverlay(l.accountStore)
	ctx := &InvokeContext{ledger: l, state: state, programID: solana.SystemProgramID, logs: new([]string)}
	if err := ctx.Credit(addr, lamports); err != nil {
		return err
	}
	if _, _, err := l.commit(state); err != nil {
		return err
	}
	logx.Info("LEDGER", fmt.Sprintf("Airdropped %d lamports to %s", lamports, addr))
	return nil
}

// Balance returns current lamports of addr, zero when the account does not exist
func (l *Ledger) Balance(addr solana.PublicKey) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.accountStore.GetByAddr(addr)
	if err != nil {
		return uint256.NewInt(0), err
	}
	if acc == nil || acc.Lamports == nil {
		return uint256.NewInt(0), nil
	}
	return acc.Lamports, nil
}

// Account returns the account with addr (nil if not exist)
func (l *Ledger) Account(addr solana.PublicKey) (*types.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountStore.GetByAddr(addr)
}

// AccountsByOwner lists every account owned by program
func (l *Ledger) AccountsByOwner(program solana.PublicKey) ([]*types.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accountStore.ListByOwner(program)
}

func (l *Ledger) Close() {
	l.accountStore.MustClose()
}

func (l *Ledger) rent(dataLen int) uint64 {
	return (l.limits.AccountOverhead + uint64(dataLen)) * l.limits.LamportsPerByte
}

// instructionsPayload is the byte string every signer of a batch signs
func instructionsPayload(ixs []solana.Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := ag_binary.NewBorshEncoder(buf)
	for _, ix := range ixs {
		programID := ix.ProgramID()
		if err := enc.WriteBytes(programID[:], false); err != nil {
			return nil, err
		}
		for _, meta := range ix.Accounts() {
			if err := enc.WriteBytes(meta.PublicKey[:], false); err != nil {
				return nil, err
			}
			if err := enc.WriteBool(meta.IsSigner); err != nil {
				return nil, err
			}
			if err := enc.WriteBool(meta.IsWritable); err != nil {
				return nil, err
			}
		}
		data, err := ix.Data()
		if err != nil {
			return nil, fmt.Errorf("failed to read instruction data: %w", err)
		}
		if err := enc.WriteBytes(data, true); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func verifySigner(key solana.PrivateKey, payload []byte) (solana.Signature, error) {
	if len(key) != 64 {
		return solana.Signature{}, fmt.Errorf("%w: bad private key length %d", ErrInvalidSigner, len(key))
	}
	sig, err := key.Sign(payload)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	if !sig.Verify(key.PublicKey(), payload) {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrInvalidSigner, key.PublicKey())
	}
	return sig, nil
}

func checkSigners(ix solana.Instruction, signers map[solana.PublicKey]bool) error {
	for _, meta := range ix.Accounts() {
		if meta.IsSigner && !signers[meta.PublicKey] {
			return fmt.Errorf("%w: %s", ErrMissingSignature, meta.PublicKey)
		}
	}
	return nil
}
