package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

const maxAccountSpace = 10 * 1024 * 1024

// SystemProgram moves lamports between wallets and allocates accounts for
// other programs. Only Transfer and CreateAccount are supported.
type SystemProgram struct{}

func (SystemProgram) ID() solana.PublicKey {
	return solana.SystemProgramID
}

func (SystemProgram) Process(ctx *InvokeContext, ix solana.Instruction) error {
	data, err := ix.Data()
	if err != nil {
		return err
	}
	accounts := ix.Accounts()
	inst, err := system.DecodeInstruction(accounts, data)
	if err != nil {
		return fmt.Errorf("invalid system instruction: %w", err)
	}

	switch impl := inst.Impl.(type) {
	case *system.Transfer:
		if len(accounts) < 2 || impl.Lamports == nil {
			return fmt.Errorf("transfer: missing accounts or lamports")
		}
		from, to := accounts[0].PublicKey, accounts[1].PublicKey
		if !ctx.IsSigner(from) {
			return fmt.Errorf("%w: transfer source %s", ErrMissingSignature, from)
		}
		if err := ctx.Debit(from, *impl.Lamports); err != nil {
			return err
		}
		if err := ctx.Credit(to, *impl.Lamports); err != nil {
			return err
		}
		ctx.Log("transfer %d lamports %s -> %s", *impl.Lamports, from, to)
		return nil

	case *system.CreateAccount:
		if len(accounts) < 2 || impl.Lamports == nil || impl.Space == nil || impl.Owner == nil {
			return fmt.Errorf("create account: missing accounts or arguments")
		}
		funding, newAccount := accounts[0].PublicKey, accounts[1].PublicKey
		if !ctx.IsSigner(newAccount) {
			return fmt.Errorf("%w: new account %s", ErrMissingSignature, newAccount)
		}
		if *impl.Space > maxAccountSpace {
			return fmt.Errorf("create account: space %d exceeds %d", *impl.Space, maxAccountSpace)
		}
		if rent := ctx.Rent(int(*impl.Space)); *impl.Lamports < rent {
			return fmt.Errorf("%w: account of %d bytes needs %d lamports", ErrInsufficientFunds, *impl.Space, rent)
		}
		if err := ctx.createAccount(funding, newAccount, *impl.Owner, make([]byte, *impl.Space), *impl.Lamports); err != nil {
			return err
		}
		ctx.Log("create account %s owned by %s", newAccount, *impl.Owner)
		return nil

	default:
		return fmt.Errorf("unsupported system instruction %T", inst.Impl)
	}
}
