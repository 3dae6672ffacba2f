package store

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/fortis-labs/fortis/db"
)

// StateMetaStore records the chained state hash after every committed batch.
// Keys:
// - PrefixStateHashBySeq + <8-byte big-endian sequence> => 32-byte state hash
// - PrefixLatestStateMeta => 8-byte sequence || 32-byte state hash
type StateMetaStore interface {
	SetStateHashInBatch(batch db.DatabaseBatch, seq uint64, stateHash [32]byte)
	GetStateHash(seq uint64) ([32]byte, bool, error)
	Latest() (uint64, [32]byte, error)
}

type GenericStateMetaStore struct {
	provider db.DatabaseProvider
}

func NewGenericStateMetaStore(provider db.DatabaseProvider) *GenericStateMetaStore {
	return &GenericStateMetaStore{provider: provider}
}

func (s *GenericStateMetaStore) seqToStateHashKey(seq uint64) []byte {
	key := make([]byte, len(PrefixStateHashBySeq)+8)
	copy(key, PrefixStateHashBySeq)
	binary.BigEndian.PutUint64(key[len(PrefixStateHashBySeq):], seq)
	return key
}

// SetStateHashInBatch stages the hash for seq and moves the latest pointer
func (s *GenericStateMetaStore) SetStateHashInBatch(batch db.DatabaseBatch, seq uint64, stateHash [32]byte) {
	batch.Put(s.seqToStateHashKey(seq), stateHash[:])

	latest := make([]byte, 8+sha256.Size)
	binary.BigEndian.PutUint64(latest, seq)
	copy(latest[8:], stateHash[:])
	batch.Put([]byte(PrefixLatestStateMeta), latest)
}

func (s *GenericStateMetaStore) GetStateHash(seq uint64) ([32]byte, bool, error) {
	value, err := s.provider.Get(s.seqToStateHashKey(seq))
	if err != nil {
		return [32]byte{}, false, fmt.Errorf("failed to get state hash for sequence %d: %w", seq, err)
	}
	if len(value) == 0 {
		return [32]byte{}, false, nil
	}
	if len(value) != sha256.Size {
		return [32]byte{}, false, fmt.Errorf("invalid state hash length: %d", len(value))
	}
	var out [32]byte
	copy(out[:], value)
	return out, true, nil
}

// Latest returns the last committed sequence and hash, zero values on a fresh store
func (s *GenericStateMetaStore) Latest() (uint64, [32]byte, error) {
	value, err := s.provider.Get([]byte(PrefixLatestStateMeta))
	if err != nil {
		return 0, [32]byte{}, fmt.Errorf("failed to get latest state meta: %w", err)
	}
	if len(value) == 0 {
		return 0, [32]byte{}, nil
	}
	if len(value) != 8+sha256.Size {
		return 0, [32]byte{}, fmt.Errorf("invalid latest state meta length: %d", len(value))
	}
	var out [32]byte
	copy(out[:], value[8:])
	return binary.BigEndian.Uint64(value[:8]), out, nil
}
