package common

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const LamportsPerSol = 1_000_000_000

var (
	lamportsPerSol = decimal.NewFromInt(LamportsPerSol)
	maxLamports    = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// SolToLamports converts a decimal SOL amount ("0.001") to lamports.
// Fractions below one lamport are rejected rather than rounded.
func SolToLamports(sol string) (uint64, error) {
	d, err := decimal.NewFromString(sol)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", sol, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", sol)
	}
	lamports := d.Mul(lamportsPerSol)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than 9 decimal places", sol)
	}
	if lamports.GreaterThan(maxLamports) {
		return 0, fmt.Errorf("amount %s overflows lamports", sol)
	}
	return lamports.BigInt().Uint64(), nil
}

// LamportsToSol renders a balance for display.
func LamportsToSol(lamports *uint256.Int) string {
	if lamports == nil {
		return "0"
	}
	d := decimal.NewFromBigInt(lamports.ToBig(), 0)
	return d.Div(lamportsPerSol).String()
}
