package message

import (
	"testing"

	"github.com/fortis-labs/fortis/errors"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func transfer(lamports uint64, from, to solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

func TestCompileSingleTransfer(t *testing.T) {
	vault := newKey(t)
	recipient := newKey(t)

	msg, err := Compile(vault, []solana.Instruction{transfer(1_000_000, vault, recipient)}, nil)
	require.NoError(t, err)

	require.Len(t, msg.AccountKeys, 3)
	assert.Equal(t, vault, msg.AccountKeys[0])
	assert.Equal(t, recipient, msg.AccountKeys[1])
	assert.Equal(t, solana.SystemProgramID, msg.AccountKeys[2])
	assert.Equal(t, uint8(1), msg.NumSigners)
	assert.Equal(t, uint8(1), msg.NumWritableSigners)
	assert.Equal(t, uint8(1), msg.NumWritableNonSigners)
	assert.Equal(t, uint8(0), msg.NumEphemeralSigners)

	require.Len(t, msg.Instructions, 1)
	assert.Equal(t, uint8(2), msg.Instructions[0].ProgramIDIndex)
	assert.Equal(t, []uint8{0, 1}, msg.Instructions[0].AccountIndexes)

	assert.True(t, msg.IsSignerIndex(0))
	assert.True(t, msg.IsWritableIndex(0))
	assert.False(t, msg.IsSignerIndex(1))
	assert.True(t, msg.IsWritableIndex(1))
	assert.False(t, msg.IsWritableIndex(2))
}

func TestCompileDeduplicatesAndMergesWritability(t *testing.T) {
	vault := newKey(t)
	a := newKey(t)
	b := newKey(t)
	program := newKey(t)

	readA := solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.NewAccountMeta(a, false, false),
		solana.NewAccountMeta(b, false, false),
	}, []byte{1})
	writeA := solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.NewAccountMeta(a, true, false),
		solana.NewAccountMeta(vault, false, false),
	}, []byte{2})

	msg, err := Compile(vault, []solana.Instruction{readA, writeA}, nil)
	require.NoError(t, err)

	assert.Equal(t, []solana.PublicKey{vault, a, program, b}, msg.AccountKeys)
	assert.Equal(t, uint8(1), msg.NumWritableNonSigners)
	assert.Equal(t, []uint8{1, 3}, msg.Instructions[0].AccountIndexes)
	assert.Equal(t, []uint8{1, 0}, msg.Instructions[1].AccountIndexes)
	assert.Equal(t, uint8(2), msg.Instructions[1].ProgramIDIndex)
}

func TestCompileVaultAlwaysFirstAndWritable(t *testing.T) {
	vault := newKey(t)
	other := newKey(t)
	program := newKey(t)

	ix := solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.NewAccountMeta(other, true, false),
		solana.NewAccountMeta(vault, false, true),
	}, nil)

	msg, err := Compile(vault, []solana.Instruction{ix}, nil)
	require.NoError(t, err)
	assert.Equal(t, vault, msg.AccountKeys[0])
	assert.True(t, msg.IsSignerIndex(0))
	assert.True(t, msg.IsWritableIndex(0))
}

func TestCompileErrors(t *testing.T) {
	vault := newKey(t)
	other := newKey(t)
	program := newKey(t)

	t.Run("empty", func(t *testing.T) {
		_, err := Compile(vault, nil, nil)
		assert.ErrorIs(t, err, errors.ErrEmptyInstructions)
	})

	t.Run("inconsistent signer", func(t *testing.T) {
		ix := solana.NewInstruction(program, solana.AccountMetaSlice{
			solana.NewAccountMeta(other, false, true),
			solana.NewAccountMeta(other, false, false),
		}, nil)
		_, err := Compile(vault, []solana.Instruction{ix}, nil)
		assert.ErrorIs(t, err, errors.ErrInconsistentSigner)
	})

	t.Run("unexpected signer", func(t *testing.T) {
		_, err := Compile(vault, []solana.Instruction{transfer(1, other, vault)}, nil)
		assert.ErrorIs(t, err, errors.ErrUnexpectedSigner)
	})

	t.Run("too many accounts", func(t *testing.T) {
		metas := solana.AccountMetaSlice{}
		for i := 0; i < 300; i++ {
			metas = append(metas, solana.NewAccountMeta(newKey(t), false, false))
		}
		ix := solana.NewInstruction(program, metas, nil)
		_, err := Compile(vault, []solana.Instruction{ix}, nil)
		assert.ErrorIs(t, err, errors.ErrMessageTooLarge)
	})

	t.Run("encoded size", func(t *testing.T) {
		ix := solana.NewInstruction(program, nil, make([]byte, 512))
		_, err := Compile(vault, []solana.Instruction{ix}, nil, WithMaxSize(256))
		assert.ErrorIs(t, err, errors.ErrMessageTooLarge)

		_, err = Compile(vault, []solana.Instruction{ix}, nil)
		assert.NoError(t, err)
	})

	t.Run("kind", func(t *testing.T) {
		_, err := Compile(vault, nil, nil)
		kind, ok := errors.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, errors.KindCompile, kind)
	})
}

func TestCompileEphemeralSigners(t *testing.T) {
	vault := newKey(t)
	placeholder := newKey(t)
	owner := newKey(t)

	create := system.NewCreateAccountInstruction(1_000_000, 0, owner, vault, placeholder).Build()
	msg, err := Compile(vault, []solana.Instruction{create}, []solana.PublicKey{placeholder})
	require.NoError(t, err)

	assert.Equal(t, uint8(1), msg.NumEphemeralSigners)
	assert.NotContains(t, msg.AccountKeys, placeholder)
	assert.Equal(t, []solana.PublicKey{vault, solana.SystemProgramID}, msg.AccountKeys)

	idx := msg.Instructions[0].AccountIndexes
	require.Len(t, idx, 2)
	assert.Equal(t, uint8(0), idx[0])
	assert.Equal(t, uint8(len(msg.AccountKeys)), idx[1])
	assert.True(t, msg.IsEphemeralIndex(int(idx[1])))
	assert.True(t, msg.IsSignerIndex(int(idx[1])))
	assert.True(t, msg.IsWritableIndex(int(idx[1])))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vault := newKey(t)
	placeholder := newKey(t)

	msg, err := Compile(vault, []solana.Instruction{
		transfer(5, vault, newKey(t)),
		system.NewCreateAccountInstruction(10, 8, newKey(t), vault, placeholder).Build(),
	}, []solana.PublicKey{placeholder})
	require.NoError(t, err)

	encoded, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	vault := newKey(t)
	msg, err := Compile(vault, []solana.Instruction{transfer(5, vault, newKey(t))}, nil)
	require.NoError(t, err)
	encoded, err := msg.Encode()
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":          {},
		"truncated":      encoded[:len(encoded)-3],
		"trailing":       append(append([]byte{}, encoded...), 0x01),
		"huge key count": {1, 1, 0, 0xff, 0xff, 0xff, 0x7f},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.Error(t, err)
		})
	}

	t.Run("index out of range", func(t *testing.T) {
		bad := *msg
		bad.Instructions = []CompiledInstruction{{ProgramIDIndex: 2, AccountIndexes: []uint8{9}}}
		data, err := bad.Encode()
		require.NoError(t, err)
		_, err = Decode(data)
		assert.Error(t, err)
	})
}
