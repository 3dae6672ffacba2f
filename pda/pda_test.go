package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestDerivationIsDeterministic(t *testing.T) {
	createKey := newKey(t)

	ms1, bump1 := MultisigAddress(createKey)
	ms2, bump2 := MultisigAddress(createKey)
	assert.Equal(t, ms1, ms2)
	assert.Equal(t, bump1, bump2)

	v1, _ := VaultAddress(ms1, 0)
	v2, _ := VaultAddress(ms1, 0)
	assert.Equal(t, v1, v2)

	tx1, _ := TransactionAddress(ms1, 7)
	tx2, _ := TransactionAddress(ms1, 7)
	assert.Equal(t, tx1, tx2)
}

func TestDerivedAddressesAreDistinct(t *testing.T) {
	ms, _ := MultisigAddress(newKey(t))

	vault0, _ := VaultAddress(ms, 0)
	vault1, _ := VaultAddress(ms, 1)
	tx1, _ := TransactionAddress(ms, 1)
	tx2, _ := TransactionAddress(ms, 2)
	prop1, _ := ProposalAddress(ms, 1)

	seen := map[solana.PublicKey]bool{}
	for _, a := range []solana.PublicKey{ms, vault0, vault1, tx1, tx2, prop1} {
		assert.False(t, seen[a], "duplicate address %s", a)
		seen[a] = true
	}
}

func TestDerivedAddressesAreOffCurve(t *testing.T) {
	ms, _ := MultisigAddress(newKey(t))
	vault, _ := VaultAddress(ms, 0)
	prop, _ := ProposalAddress(ms, 3)

	assert.False(t, ms.IsOnCurve())
	assert.False(t, vault.IsOnCurve())
	assert.False(t, prop.IsOnCurve())
}

func TestProgramIDOverride(t *testing.T) {
	createKey := newKey(t)
	other := newKey(t)

	def, _ := MultisigAddress(createKey)
	custom, _ := MultisigAddress(createKey, other)
	assert.NotEqual(t, def, custom)

	explicitDefault, _ := MultisigAddress(createKey, ProgramID)
	assert.Equal(t, def, explicitDefault)
}

func TestVaultSignerSeedsRecreateVault(t *testing.T) {
	ms, _ := MultisigAddress(newKey(t))
	vault, bump := VaultAddress(ms, 0)

	addr, err := solana.CreateProgramAddress(VaultSignerSeeds(ms, 0, bump), ProgramID)
	require.NoError(t, err)
	assert.Equal(t, vault, addr)
}
