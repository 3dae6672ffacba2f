package program

import (
	"fmt"

	"github.com/fortis-labs/fortis/errors"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/monitoring"
	"github.com/fortis-labs/fortis/pda"
	"github.com/gagliardetto/solana-go"
)

// ValidateMembers checks a member list and threshold and returns the members
// in canonical (sorted) order.
func ValidateMembers(members []solana.PublicKey, threshold uint16, maxMembers int) ([]solana.PublicKey, error) {
	if len(members) == 0 {
		return nil, errors.ErrEmptyMembers
	}
	if maxMembers > 0 && len(members) > maxMembers {
		return nil, errors.ErrTooManyMembers.WithReason(fmt.Sprintf("%d members, max %d", len(members), maxMembers))
	}
	sorted := sortKeys(members)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, errors.ErrDuplicateMember.WithReason(sorted[i].String())
		}
	}
	if threshold == 0 || int(threshold) > len(sorted) {
		return nil, errors.ErrInvalidThreshold.WithReason(fmt.Sprintf("threshold %d for %d members", threshold, len(sorted)))
	}
	return sorted, nil
}

func (p *Program) multisigCreate(ctx *ledger.InvokeContext, accounts []*solana.AccountMeta, args MultisigCreateArgs) error {
	multisigAddr, err := accountAt(accounts, 0)
	if err != nil {
		return err
	}
	createKey, err := accountAt(accounts, 1)
	if err != nil {
		return err
	}
	creator, err := accountAt(accounts, 2)
	if err != nil {
		return err
	}

	if err := p.requireSigner(ctx, createKey); err != nil {
		return err
	}
	if err := p.requireSigner(ctx, creator); err != nil {
		return err
	}

	members, err := ValidateMembers(args.Members, args.Threshold, p.limits.MaxMembers)
	if err != nil {
		return err
	}

	derived, bump, err := pda.FindMultisigAddress(createKey, p.id)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidAddress, err)
	}
	if !derived.Equals(multisigAddr) {
		return errors.ErrInvalidAddress.WithReason(fmt.Sprintf("expected multisig %s, got %s", derived, multisigAddr))
	}

	if allocated, err := p.isAllocated(ctx, multisigAddr); err != nil {
		return err
	} else if allocated {
		return errors.ErrMultisigExists.WithReason(multisigAddr.String())
	}

	ms := &Multisig{
		CreateKey:        createKey,
		Members:          members,
		Threshold:        args.Threshold,
		RentCollector:    args.RentCollector,
		TransactionIndex: 0,
		Bump:             bump,
	}
	data, err := ms.Encode()
	if err != nil {
		return err
	}
	seeds := append(pda.MultisigSeeds(createKey), []byte{bump})
	if err := ctx.CreateAccount(creator, multisigAddr, p.id, data, seeds); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return errors.ErrMultisigExists.WithReason(multisigAddr.String())
		}
		return err
	}

	monitoring.IncreaseMultisigCreated()
	ctx.Log("multisig %s created: %d members, threshold %d", multisigAddr, len(members), args.Threshold)
	logx.Info("FORTIS", fmt.Sprintf("Created multisig %s with %d members, threshold %d", multisigAddr, len(members), args.Threshold))
	return nil
}
