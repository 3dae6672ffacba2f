package program

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func TestMultisigEncoding(t *testing.T) {
	collector := randomKey(t)
	ms := &Multisig{
		CreateKey:        randomKey(t),
		Members:          sortKeys([]solana.PublicKey{randomKey(t), randomKey(t), randomKey(t)}),
		Threshold:        2,
		RentCollector:    &collector,
		TransactionIndex: 42,
		Bump:             254,
	}
	data, err := ms.Encode()
	require.NoError(t, err)
	assert.Equal(t, MultisigDiscriminator[:], data[:8])

	decoded, err := DecodeMultisig(data)
	require.NoError(t, err)
	assert.Equal(t, ms, decoded)

	ms.RentCollector = nil
	data, err = ms.Encode()
	require.NoError(t, err)
	decoded, err = DecodeMultisig(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.RentCollector)

	_, err = DecodeProposal(data)
	assert.Error(t, err, "multisig data must not decode as a proposal")
	_, err = DecodeMultisig(append(data, 0))
	assert.Error(t, err)
}

func TestProposalEncoding(t *testing.T) {
	p := &Proposal{
		Multisig:         randomKey(t),
		TransactionIndex: 7,
		Creator:          randomKey(t),
		Approvals:        sortKeys([]solana.PublicKey{randomKey(t), randomKey(t)}),
		Rejections:       []solana.PublicKey{randomKey(t)},
		Cancellations:    []solana.PublicKey{},
		VotingDeadline:   1_700_000_100,
		Status:           ProposalRejected,
		CreatedAt:        1_700_000_000,
		Bump:             3,
	}
	data, err := p.Encode()
	require.NoError(t, err)
	decoded, err := DecodeProposal(data)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)

	// unknown status byte sits right before CreatedAt, ExecutedAt and Bump
	data[len(data)-1-8-8-1] = 9
	_, err = DecodeProposal(data)
	assert.Error(t, err)
}

func TestVaultTransactionEncoding(t *testing.T) {
	tx := &VaultTransaction{
		Multisig:             randomKey(t),
		Creator:              randomKey(t),
		Index:                1,
		VaultIndex:           0,
		VaultBump:            255,
		EphemeralSignerCount: 2,
		Message:              []byte{1, 2, 3},
		Bump:                 250,
	}
	data, err := tx.Encode()
	require.NoError(t, err)
	decoded, err := DecodeVaultTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, tx, decoded)

	_, err = DecodeVaultTransaction(data[:len(data)-2])
	assert.Error(t, err)
}

func TestProposalPredicates(t *testing.T) {
	deadline := time.Unix(1000, 0)
	p := &Proposal{VotingDeadline: deadline.Unix(), Status: ProposalActive}

	assert.False(t, p.IsExpired(deadline))
	assert.True(t, p.IsExpired(deadline.Add(time.Second)))
	assert.False(t, p.IsTerminal(deadline))
	assert.True(t, p.IsTerminal(deadline.Add(time.Second)))

	p.Approvals = []solana.PublicKey{randomKey(t)}
	assert.True(t, p.IsApproved(1))
	assert.False(t, p.IsApproved(2))

	p.Status = ProposalExecuted
	assert.False(t, p.IsExpired(deadline.Add(time.Hour)))
	assert.True(t, p.IsTerminal(deadline))
}

func TestSortedKeySet(t *testing.T) {
	var set []solana.PublicKey
	keys := []solana.PublicKey{randomKey(t), randomKey(t), randomKey(t), randomKey(t)}
	for _, k := range keys {
		set = insertKey(set, k)
	}
	set = insertKey(set, keys[0])
	require.Len(t, set, len(keys))
	assert.Equal(t, sortKeys(keys), set)
	for _, k := range keys {
		assert.True(t, containsKey(set, k))
	}
	assert.False(t, containsKey(set, randomKey(t)))
}

func TestNextIndex(t *testing.T) {
	ms := &Multisig{}
	assert.Equal(t, uint64(1), ms.NextIndex())
	assert.Equal(t, uint64(2), ms.NextIndex())
	assert.Equal(t, uint64(2), ms.TransactionIndex)
}

func TestInstructionDataRoundTrip(t *testing.T) {
	collector := randomKey(t)
	args := MultisigCreateArgs{
		Members:       []solana.PublicKey{randomKey(t)},
		Threshold:     1,
		RentCollector: &collector,
	}
	data, err := EncodeMultisigCreate(args)
	require.NoError(t, err)

	var decoded MultisigCreateArgs
	require.NoError(t, decodeWithDiscriminator(data, MultisigCreateDiscriminator, &decoded))
	assert.Equal(t, args, decoded)

	assert.Error(t, decodeWithDiscriminator(data, ProposalCreateDiscriminator, &decoded))
	assert.NotEqual(t, ProposalApproveDiscriminator, ProposalRejectDiscriminator)
}
