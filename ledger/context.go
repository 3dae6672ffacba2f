package ledger

import (
	"fmt"
	"time"

	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

const maxInvokeDepth = 4

// InvokeContext is handed to a program for one instruction. It exposes the
// batch overlay under the ownership rules of the ledger.
type InvokeContext struct {
	ledger    *Ledger
	state     *overlay
	programID solana.PublicKey
	signers   map[solana.PublicKey]bool
	depth     int
	now       time.Time
	logs      *[]string
}

func (c *InvokeContext) ProgramID() solana.PublicKey {
	return c.programID
}

// Now is the clock reading taken when the batch started
func (c *InvokeContext) Now() time.Time {
	return c.now
}

func (c *InvokeContext) IsSigner(key solana.PublicKey) bool {
	return c.signers[key]
}

// Account returns a copy of the account at addr, nil if it does not exist
func (c *InvokeContext) Account(addr solana.PublicKey) (*types.Account, error) {
	acc, err := c.state.load(addr)
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

func (c *InvokeContext) Exists(addr solana.PublicKey) (bool, error) {
	acc, err := c.state.load(addr)
	if err != nil {
		return false, err
	}
	return acc != nil, nil
}

// SetAccountData replaces the data of an account owned by the calling program
func (c *InvokeContext) SetAccountData(addr solana.PublicKey, data []byte) error {
	acc, err := c.ownedAccount(addr)
	if err != nil {
		return err
	}
	acc.Data = append([]byte(nil), data...)
	c.state.put(acc)
	return nil
}

// Credit adds lamports to addr, creating a system owned account if needed
func (c *InvokeContext) Credit(addr solana.PublicKey, lamports uint64) error {
	acc, err := c.state.load(addr)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &types.Account{
			Address:  addr,
			Lamports: uint256.NewInt(0),
			Owner:    solana.SystemProgramID,
		}
	}
	if _, overflow := acc.Lamports.AddOverflow(acc.Lamports, uint256.NewInt(lamports)); overflow {
		return fmt.Errorf("%w: crediting %s", ErrBalanceOverflow, addr)
	}
	c.state.put(acc)
	return nil
}

// Debit removes lamports from an account owned by the calling program
func (c *InvokeContext) Debit(addr solana.PublicKey, lamports uint64) error {
	acc, err := c.ownedAccount(addr)
	if err != nil {
		return err
	}
	amount := uint256.NewInt(lamports)
	if acc.Lamports.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %d", ErrInsufficientFunds, addr, acc.Lamports.Dec(), lamports)
	}
	acc.Lamports.Sub(acc.Lamports, amount)
	c.state.put(acc)
	return nil
}

// Rent is the storage cost of an account holding dataLen bytes
func (c *InvokeContext) Rent(dataLen int) uint64 {
	return c.ledger.rent(dataLen)
}

// CreateAccount allocates addr for owner with data, paid by payer. payer must
// sign. addr must either sign or be the program address of seeds under the
// calling program.
func (c *InvokeContext) CreateAccount(payer, addr, owner solana.PublicKey, data []byte, seeds [][]byte) error {
	if seeds != nil {
		derived, err := solana.CreateProgramAddress(seeds, c.programID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
		}
		if !derived.Equals(addr) {
			return fmt.Errorf("%w: seeds derive %s, not %s", ErrInvalidSeeds, derived, addr)
		}
	} else if !c.IsSigner(addr) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, addr)
	}
	return c.createAccount(payer, addr, owner, data, c.Rent(len(data)))
}

func (c *InvokeContext) createAccount(payer, addr, owner solana.PublicKey, data []byte, lamports uint64) error {
	if !c.IsSigner(payer) {
		return fmt.Errorf("%w: payer %s", ErrMissingSignature, payer)
	}

	existing, err := c.state.load(addr)
	if err != nil {
		return err
	}
	prefunded := uint256.NewInt(0)
	if existing != nil {
		// lamports sent to a not yet allocated address do not block allocation
		if !existing.Owner.Equals(solana.SystemProgramID) || len(existing.Data) > 0 {
			return fmt.Errorf("%w: %s", ErrAccountExists, addr)
		}
		prefunded = existing.Lamports
	}

	payerAcc, err := c.state.load(payer)
	if err != nil {
		return err
	}
	if payerAcc == nil || !payerAcc.Owner.Equals(solana.SystemProgramID) {
		return fmt.Errorf("%w: payer %s", ErrNotOwner, payer)
	}
	amount := uint256.NewInt(lamports)
	if payerAcc.Lamports.Lt(amount) {
		return fmt.Errorf("%w: payer %s has %s, needs %d", ErrInsufficientFunds, payer, payerAcc.Lamports.Dec(), lamports)
	}
	payerAcc.Lamports.Sub(payerAcc.Lamports, amount)
	c.state.put(payerAcc)

	c.state.put(&types.Account{
		Address:  addr,
		Lamports: new(uint256.Int).Add(prefunded, amount),
		Owner:    owner,
		Data:     append([]byte(nil), data...),
	})
	return nil
}

// CloseAccount moves every lamport of addr to recipient and deletes addr.
// Only the owning program may close an account.
func (c *InvokeContext) CloseAccount(addr, recipient solana.PublicKey) error {
	if addr.Equals(recipient) {
		return fmt.Errorf("cannot close %s into itself", addr)
	}
	acc, err := c.ownedAccount(addr)
	if err != nil {
		return err
	}
	if !acc.Lamports.IsUint64() {
		return fmt.Errorf("%w: closing %s", ErrBalanceOverflow, addr)
	}
	if err := c.Credit(recipient, acc.Lamports.Uint64()); err != nil {
		return err
	}
	c.state.remove(addr)
	return nil
}

// InvokeSigned dispatches ix to its program with the caller's signers, the
// program addresses of seeds under the calling program, and extraSigners.
// Each extra signer proves its key by signing the instruction payload.
func (c *InvokeContext) InvokeSigned(ix solana.Instruction, seeds [][][]byte, extraSigners []solana.PrivateKey) error {
	return c.invoke(ix, seeds, extraSigners, true)
}

// InvokeIsolated is InvokeSigned without the caller's signers: only the seed
// addresses and extraSigners may sign ix.
func (c *InvokeContext) InvokeIsolated(ix solana.Instruction, seeds [][][]byte, extraSigners []solana.PrivateKey) error {
	return c.invoke(ix, seeds, extraSigners, false)
}

func (c *InvokeContext) invoke(ix solana.Instruction, seeds [][][]byte, extraSigners []solana.PrivateKey, inheritSigners bool) error {
	if c.depth+1 >= maxInvokeDepth {
		return ErrCallDepth
	}

	signers := make(map[solana.PublicKey]bool, len(c.signers)+len(seeds)+len(extraSigners))
	if inheritSigners {
		for k := range c.signers {
			signers[k] = true
		}
	}
	for _, s := range seeds {
		addr, err := solana.CreateProgramAddress(s, c.programID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
		}
		signers[addr] = true
	}

	payload, err := instructionsPayload([]solana.Instruction{ix})
	if err != nil {
		return err
	}
	for _, key := range extraSigners {
		if _, err := verifySigner(key, payload); err != nil {
			return err
		}
		signers[key.PublicKey()] = true
	}

	if err := checkSigners(ix, signers); err != nil {
		return err
	}

	return c.ledger.dispatch(c.state, ix, signers, c.depth+1, c.now, c.logs)
}

// Log appends a program log line to the batch result
func (c *InvokeContext) Log(format string, args ...interface{}) {
	line := fmt.Sprintf("Program %s: %s", c.programID, fmt.Sprintf(format, args...))
	*c.logs = append(*c.logs, line)
	logx.Debug("LEDGER", line)
}

func (c *InvokeContext) ownedAccount(addr solana.PublicKey) (*types.Account, error) {
	acc, err := c.state.load(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if !acc.Owner.Equals(c.programID) {
		return nil, fmt.Errorf("%w: %s is owned by %s, not %s", ErrNotOwner, addr, acc.Owner, c.programID)
	}
	return acc, nil
}
