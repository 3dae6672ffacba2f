package message

import (
	"fmt"

	"github.com/fortis-labs/fortis/errors"
	"github.com/gagliardetto/solana-go"
)

type compileOptions struct {
	maxSize int
}

type CompileOption func(*compileOptions)

// WithMaxSize overrides DefaultMaxMessageSize
func WithMaxSize(n int) CompileOption {
	return func(o *compileOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

type keyMeta struct {
	key       solana.PublicKey
	signer    bool
	nonSigner bool
	writable  bool
}

// Compile builds the vault transaction message for instructions executed on
// behalf of vault. Every key in ephemeralSigners is a placeholder replaced by
// a fresh key at execution; placeholders are not stored, only their count.
func Compile(vault solana.PublicKey, instructions []solana.Instruction, ephemeralSigners []solana.PublicKey, opts ...CompileOption) (*VaultTransactionMessage, error) {
	options := compileOptions{maxSize: DefaultMaxMessageSize}
	for _, opt := range opts {
		opt(&options)
	}

	if len(instructions) == 0 {
		return nil, errors.ErrEmptyInstructions
	}
	if len(instructions) > maxInstructions {
		return nil, errors.ErrMessageTooLarge.WithReason(fmt.Sprintf("%d instructions", len(instructions)))
	}

	ephemeral := make(map[solana.PublicKey]int, len(ephemeralSigners))
	for i, k := range ephemeralSigners {
		if k.Equals(vault) {
			return nil, errors.ErrUnexpectedSigner.WithReason("vault cannot be an ephemeral signer")
		}
		if _, dup := ephemeral[k]; dup {
			return nil, errors.ErrEphemeralMismatch.WithReason(fmt.Sprintf("duplicate ephemeral signer %s", k))
		}
		ephemeral[k] = i
	}

	// collect keys in first appearance order
	metas := []*keyMeta{{key: vault, signer: true, writable: true}}
	byKey := map[solana.PublicKey]*keyMeta{vault: metas[0]}
	track := func(key solana.PublicKey, signer, writable bool) {
		m, ok := byKey[key]
		if !ok {
			m = &keyMeta{key: key}
			byKey[key] = m
			metas = append(metas, m)
		}
		if signer {
			m.signer = true
		} else {
			m.nonSigner = true
		}
		m.writable = m.writable || writable
	}

	datas := make([][]byte, len(instructions))
	for i, ix := range instructions {
		programID := ix.ProgramID()
		if _, ok := ephemeral[programID]; ok {
			return nil, errors.ErrInvalidInstruction.WithReason(fmt.Sprintf("instruction %d: program id is an ephemeral signer", i))
		}
		track(programID, false, false)
		for _, meta := range ix.Accounts() {
			if _, ok := ephemeral[meta.PublicKey]; ok {
				continue
			}
			track(meta.PublicKey, meta.IsSigner, meta.IsWritable)
		}
		data, err := ix.Data()
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInstruction, err)
		}
		datas[i] = data
	}

	for _, m := range metas[1:] {
		if m.signer && m.nonSigner {
			return nil, errors.ErrInconsistentSigner.WithReason(m.key.String())
		}
		if m.signer {
			return nil, errors.ErrUnexpectedSigner.WithReason(m.key.String())
		}
	}

	if len(metas)+len(ephemeralSigners) > maxIndexSpace {
		return nil, errors.ErrMessageTooLarge.WithReason(fmt.Sprintf("%d accounts", len(metas)+len(ephemeralSigners)))
	}

	var writableSigners, readonlySigners, writableNonSigners, readonlyNonSigners []solana.PublicKey
	for _, m := range metas {
		switch {
		case m.signer && m.writable:
			writableSigners = append(writableSigners, m.key)
		case m.signer:
			readonlySigners = append(readonlySigners, m.key)
		case m.writable:
			writableNonSigners = append(writableNonSigners, m.key)
		default:
			readonlyNonSigners = append(readonlyNonSigners, m.key)
		}
	}

	keys := make([]solana.PublicKey, 0, len(metas))
	keys = append(keys, writableSigners...)
	keys = append(keys, readonlySigners...)
	keys = append(keys, writableNonSigners...)
	keys = append(keys, readonlyNonSigners...)

	index := make(map[solana.PublicKey]uint8, len(keys))
	for i, k := range keys {
		index[k] = uint8(i)
	}

	msg := &VaultTransactionMessage{
		NumSigners:            uint8(len(writableSigners) + len(readonlySigners)),
		NumWritableSigners:    uint8(len(writableSigners)),
		NumWritableNonSigners: uint8(len(writableNonSigners)),
		AccountKeys:           keys,
		Instructions:          make([]CompiledInstruction, len(instructions)),
		NumEphemeralSigners:   uint8(len(ephemeralSigners)),
	}

	for i, ix := range instructions {
		accounts := ix.Accounts()
		compiled := CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID()],
			AccountIndexes: make([]uint8, len(accounts)),
			Data:           datas[i],
		}
		for j, meta := range accounts {
			if pos, ok := ephemeral[meta.PublicKey]; ok {
				compiled.AccountIndexes[j] = uint8(len(keys) + pos)
				continue
			}
			compiled.AccountIndexes[j] = index[meta.PublicKey]
		}
		msg.Instructions[i] = compiled
	}

	encoded, err := msg.Encode()
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInstruction, err)
	}
	if len(encoded) > options.maxSize {
		return nil, errors.ErrMessageTooLarge.WithReason(fmt.Sprintf("%d bytes exceeds %d", len(encoded), options.maxSize))
	}

	return msg, nil
}
