// Package message compiles a list of instructions into the compact form stored
// in a vault transaction and decodes it back for execution.
package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ag_binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// DefaultMaxMessageSize bounds the encoded message
	DefaultMaxMessageSize = 10240

	// maxIndexSpace is the number of addressable accounts with u8 indexes
	maxIndexSpace = 256

	maxInstructions = 255

	publicKeyLength = 32
)

// CompiledInstruction references its program and accounts by index into the
// message account keys. Indexes at or past len(AccountKeys) address
// ephemeral signers.
type CompiledInstruction struct {
	ProgramIDIndex uint8   `json:"programIdIndex"`
	AccountIndexes []uint8 `json:"accountIndexes"`
	Data           []byte  `json:"data"`
}

// VaultTransactionMessage is the canonical, order-preserving form of a vault
// transaction. AccountKeys are grouped as writable signers, readonly signers,
// writable non-signers, readonly non-signers, and key 0 is always the vault.
type VaultTransactionMessage struct {
	NumSigners            uint8                 `json:"numSigners"`
	NumWritableSigners    uint8                 `json:"numWritableSigners"`
	NumWritableNonSigners uint8                 `json:"numWritableNonSigners"`
	AccountKeys           []solana.PublicKey    `json:"accountKeys"`
	Instructions          []CompiledInstruction `json:"instructions"`
	NumEphemeralSigners   uint8                 `json:"numEphemeralSigners"`
}

// Vault returns the first account key
func (m *VaultTransactionMessage) Vault() (solana.PublicKey, bool) {
	if len(m.AccountKeys) == 0 {
		return solana.PublicKey{}, false
	}
	return m.AccountKeys[0], true
}

func (m *VaultTransactionMessage) IsEphemeralIndex(i int) bool {
	return i >= len(m.AccountKeys) && i < len(m.AccountKeys)+int(m.NumEphemeralSigners)
}

func (m *VaultTransactionMessage) IsSignerIndex(i int) bool {
	return i < int(m.NumSigners) || m.IsEphemeralIndex(i)
}

// IsWritableIndex reports writability. Ephemeral signers are always writable
// so they can fund accounts they create.
func (m *VaultTransactionMessage) IsWritableIndex(i int) bool {
	switch {
	case m.IsEphemeralIndex(i):
		return true
	case i < int(m.NumSigners):
		return i < int(m.NumWritableSigners)
	case i < len(m.AccountKeys):
		return i-int(m.NumSigners) < int(m.NumWritableNonSigners)
	default:
		return false
	}
}

func (m VaultTransactionMessage) MarshalWithEncoder(encoder *ag_binary.Encoder) (err error) {
	if err = encoder.WriteUint8(m.NumSigners); err != nil {
		return err
	}
	if err = encoder.WriteUint8(m.NumWritableSigners); err != nil {
		return err
	}
	if err = encoder.WriteUint8(m.NumWritableNonSigners); err != nil {
		return err
	}
	if err = encoder.WriteUint32(uint32(len(m.AccountKeys)), binary.LittleEndian); err != nil {
		return err
	}
	for _, key := range m.AccountKeys {
		if err = encoder.WriteBytes(key[:], false); err != nil {
			return err
		}
	}
	if err = encoder.WriteUint32(uint32(len(m.Instructions)), binary.LittleEndian); err != nil {
		return err
	}
	for _, ix := range m.Instructions {
		if err = encoder.WriteUint8(ix.ProgramIDIndex); err != nil {
			return err
		}
		if err = encoder.WriteUint32(uint32(len(ix.AccountIndexes)), binary.LittleEndian); err != nil {
			return err
		}
		if err = encoder.WriteBytes(ix.AccountIndexes, false); err != nil {
			return err
		}
		if err = encoder.WriteUint32(uint32(len(ix.Data)), binary.LittleEndian); err != nil {
			return err
		}
		if err = encoder.WriteBytes(ix.Data, false); err != nil {
			return err
		}
	}
	return encoder.WriteUint8(m.NumEphemeralSigners)
}

func (m *VaultTransactionMessage) UnmarshalWithDecoder(decoder *ag_binary.Decoder) (err error) {
	if m.NumSigners, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if m.NumWritableSigners, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if m.NumWritableNonSigners, err = decoder.ReadUint8(); err != nil {
		return err
	}

	numKeys, err := readLength(decoder, publicKeyLength)
	if err != nil {
		return fmt.Errorf("account keys: %w", err)
	}
	m.AccountKeys = make([]solana.PublicKey, numKeys)
	for i := range m.AccountKeys {
		raw, err := decoder.ReadNBytes(publicKeyLength)
		if err != nil {
			return err
		}
		m.AccountKeys[i] = solana.PublicKeyFromBytes(raw)
	}

	// each instruction takes at least 9 bytes (index plus two lengths)
	numIxs, err := readLength(decoder, 9)
	if err != nil {
		return fmt.Errorf("instructions: %w", err)
	}
	m.Instructions = make([]CompiledInstruction, numIxs)
	for i := range m.Instructions {
		ix := &m.Instructions[i]
		if ix.ProgramIDIndex, err = decoder.ReadUint8(); err != nil {
			return err
		}
		n, err := readLength(decoder, 1)
		if err != nil {
			return fmt.Errorf("instruction %d accounts: %w", i, err)
		}
		if ix.AccountIndexes, err = decoder.ReadNBytes(n); err != nil {
			return err
		}
		n, err = readLength(decoder, 1)
		if err != nil {
			return fmt.Errorf("instruction %d data: %w", i, err)
		}
		if ix.Data, err = decoder.ReadNBytes(n); err != nil {
			return err
		}
	}

	m.NumEphemeralSigners, err = decoder.ReadUint8()
	return err
}

// readLength reads a u32 length prefix and refuses lengths the remaining
// input cannot possibly hold.
func readLength(decoder *ag_binary.Decoder, minElemSize int) (int, error) {
	n, err := decoder.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minElemSize) > uint64(decoder.Remaining()) {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, decoder.Remaining())
	}
	return int(n), nil
}

// Encode serializes the message with borsh
func (m *VaultTransactionMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.MarshalWithEncoder(ag_binary.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses and validates an encoded message. Trailing bytes, indexes
// outside the key space and inconsistent header counts are rejected.
func Decode(data []byte) (*VaultTransactionMessage, error) {
	decoder := ag_binary.NewBorshDecoder(data)
	var m VaultTransactionMessage
	if err := m.UnmarshalWithDecoder(decoder); err != nil {
		return nil, fmt.Errorf("failed to decode vault transaction message: %w", err)
	}
	if decoder.Remaining() != 0 {
		return nil, fmt.Errorf("vault transaction message has %d trailing bytes", decoder.Remaining())
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the header counts and every index against the key space
func (m *VaultTransactionMessage) Validate() error {
	numKeys := len(m.AccountKeys)
	if numKeys == 0 {
		return fmt.Errorf("message has no account keys")
	}
	if m.NumSigners == 0 || int(m.NumSigners) > numKeys {
		return fmt.Errorf("invalid signer count %d for %d keys", m.NumSigners, numKeys)
	}
	if m.NumWritableSigners == 0 || m.NumWritableSigners > m.NumSigners {
		return fmt.Errorf("invalid writable signer count %d", m.NumWritableSigners)
	}
	if int(m.NumWritableNonSigners) > numKeys-int(m.NumSigners) {
		return fmt.Errorf("invalid writable non-signer count %d", m.NumWritableNonSigners)
	}
	if numKeys+int(m.NumEphemeralSigners) > maxIndexSpace {
		return fmt.Errorf("index space %d exceeds %d", numKeys+int(m.NumEphemeralSigners), maxIndexSpace)
	}
	if len(m.Instructions) == 0 {
		return fmt.Errorf("message has no instructions")
	}
	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= numKeys {
			return fmt.Errorf("instruction %d: program index %d out of range", i, ix.ProgramIDIndex)
		}
		for _, idx := range ix.AccountIndexes {
			if int(idx) >= numKeys+int(m.NumEphemeralSigners) {
				return fmt.Errorf("instruction %d: account index %d out of range", i, idx)
			}
		}
	}
	return nil
}
