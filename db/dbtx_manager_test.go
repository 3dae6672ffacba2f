package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemProvider(t *testing.T) *LevelDBProvider {
	t.Helper()
	p, err := NewMemLevelDBProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestWithBatchWritesAllOrNothing(t *testing.T) {
	p := newMemProvider(t)
	tm := NewDBTxManager(p)

	require.NoError(t, tm.WithBatch(func(b DatabaseBatch) error {
		b.Put([]byte("account:a"), []byte{1})
		b.Put([]byte("meta:hash"), []byte{2})
		return nil
	}))
	v, err := p.Get([]byte("meta:hash"))
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, v)

	boom := errors.New("overlay rejected")
	err = tm.WithBatch(func(b DatabaseBatch) error {
		b.Put([]byte("account:b"), []byte{3})
		b.Delete([]byte("account:a"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	has, err := p.Has([]byte("account:b"))
	require.NoError(t, err)
	assert.False(t, has)
	has, err = p.Has([]byte("account:a"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestIteratePrefixStopsAtPrefixEnd(t *testing.T) {
	p := newMemProvider(t)
	for _, k := range []string{"acc:1", "acc:2", "acd:1", "ab:9"} {
		require.NoError(t, p.Put([]byte(k), []byte(k)))
	}

	var seen []string
	require.NoError(t, p.IteratePrefix([]byte("acc:"), func(key, _ []byte) bool {
		seen = append(seen, string(key))
		return true
	}))
	assert.Equal(t, []string{"acc:1", "acc:2"}, seen)

	missing, err := p.Get([]byte("nope"))
	require.NoError(t, err)
	assert.Nil(t, missing)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
