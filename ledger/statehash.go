package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
)

// ComputeAccountsDeltaHash computes a deterministic hash over the accounts a
// batch touched. Each record is encoded as:
// address|lamports(32B BE)|owner|len(data)(8B BE)|sha256(data)
// A removed account (nil) is encoded as its address followed by a zero byte.
// Accounts are sorted by address for determinism.
func ComputeAccountsDeltaHash(updated map[solana.PublicKey]*types.Account) [32]byte {
	if len(updated) == 0 {
		return [32]byte{}
	}
	h := sha256.New()

	addresses := make([]solana.PublicKey, 0, len(updated))
	for addr := range updated {
		addresses = append(addresses, addr)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return string(addresses[i][:]) < string(addresses[j][:])
	})

	buf := make([]byte, 8)
	for _, addr := range addresses {
		acc := updated[addr]
		h.Write(addr[:])
		if acc == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		var lamports [32]byte
		if acc.Lamports != nil {
			lamports = acc.Lamports.Bytes32()
		}
		h.Write(lamports[:])
		h.Write(acc.Owner[:])
		binary.BigEndian.PutUint64(buf, uint64(len(acc.Data)))
		h.Write(buf)
		dataHash := sha256.Sum256(acc.Data)
		h.Write(dataHash[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// CombineStateHash chains the previous state hash with a batch delta.
// new = SHA256(prev || delta). If prev is zero, returns delta.
func CombineStateHash(prev [32]byte, delta [32]byte) [32]byte {
	if isZeroHash(prev) {
		return delta
	}
	h := sha256.New()
	h.Write(prev[:])
	h.Write(delta[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func isZeroHash(h [32]byte) bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}
