// Package pda derives every Fortis record address from fixed seeds so that
// any party can recompute them without a registry.
package pda

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the default address of the Fortis program
var ProgramID = solana.MustPublicKeyFromBase58("FRTSmu1tisigVau1tTreasuryProgram2PDAvKQ7n9x")

var (
	seedPrefix      = []byte("fortis")
	seedMultisig    = []byte("multisig")
	seedVault       = []byte("vault")
	seedTransaction = []byte("transaction")
	seedProposal    = []byte("proposal")
)

func programIDOrDefault(programID []solana.PublicKey) solana.PublicKey {
	if len(programID) > 0 && !programID[0].IsZero() {
		return programID[0]
	}
	return ProgramID
}

func MultisigSeeds(createKey solana.PublicKey) [][]byte {
	return [][]byte{seedPrefix, seedMultisig, createKey.Bytes()}
}

func VaultSeeds(multisig solana.PublicKey, vaultIndex uint8) [][]byte {
	return [][]byte{seedPrefix, multisig.Bytes(), seedVault, {vaultIndex}}
}

func TransactionSeeds(multisig solana.PublicKey, index uint64) [][]byte {
	return [][]byte{seedPrefix, multisig.Bytes(), seedTransaction, u64LE(index)}
}

func ProposalSeeds(multisig solana.PublicKey, index uint64) [][]byte {
	return [][]byte{seedPrefix, multisig.Bytes(), seedTransaction, u64LE(index), seedProposal}
}

// FindMultisigAddress returns the multisig address and bump for createKey
func FindMultisigAddress(createKey solana.PublicKey, programID ...solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(MultisigSeeds(createKey), programIDOrDefault(programID))
}

func FindVaultAddress(multisig solana.PublicKey, vaultIndex uint8, programID ...solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(VaultSeeds(multisig, vaultIndex), programIDOrDefault(programID))
}

func FindTransactionAddress(multisig solana.PublicKey, index uint64, programID ...solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(TransactionSeeds(multisig, index), programIDOrDefault(programID))
}

func FindProposalAddress(multisig solana.PublicKey, index uint64, programID ...solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(ProposalSeeds(multisig, index), programIDOrDefault(programID))
}

func MultisigAddress(createKey solana.PublicKey, programID ...solana.PublicKey) (solana.PublicKey, uint8) {
	addr, bump, err := FindMultisigAddress(createKey, programID...)
	if err != nil {
		panic(fmt.Sprintf("Failed to find multisig PDA: %v", err))
	}
	return addr, bump
}

func VaultAddress(multisig solana.PublicKey, vaultIndex uint8, programID ...solana.PublicKey) (solana.PublicKey, uint8) {
	addr, bump, err := FindVaultAddress(multisig, vaultIndex, programID...)
	if err != nil {
		panic(fmt.Sprintf("Failed to find vault PDA: %v", err))
	}
	return addr, bump
}

func TransactionAddress(multisig solana.PublicKey, index uint64, programID ...solana.PublicKey) (solana.PublicKey, uint8) {
	addr, bump, err := FindTransactionAddress(multisig, index, programID...)
	if err != nil {
		panic(fmt.Sprintf("Failed to find transaction PDA: %v", err))
	}
	return addr, bump
}

func ProposalAddress(multisig solana.PublicKey, index uint64, programID ...solana.PublicKey) (solana.PublicKey, uint8) {
	addr, bump, err := FindProposalAddress(multisig, index, programID...)
	if err != nil {
		panic(fmt.Sprintf("Failed to find proposal PDA: %v", err))
	}
	return addr, bump
}

// VaultSignerSeeds returns the vault seeds with the bump appended, the form
// the ledger needs to recreate the vault signature.
func VaultSignerSeeds(multisig solana.PublicKey, vaultIndex uint8, bump uint8) [][]byte {
	return append(VaultSeeds(multisig, vaultIndex), []byte{bump})
}

func u64LE(value uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, value)
	return b
}
