package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFortisConfigFillsDefaults(t *testing.T) {
	path := writeFile(t, "fortis.yml", `
config:
  program_id: "FRTSmu1tisigVau1tTreasuryProgram2PDAvKQ7n9x"
  store:
    type: memory
`)
	cfg, err := LoadFortisConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "FRTSmu1tisigVau1tTreasuryProgram2PDAvKQ7n9x", cfg.ProgramID)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, DefaultStoreDirectory, cfg.Store.Directory)
	assert.Equal(t, int64(DefaultVotingPeriodSeconds), cfg.VotingPeriodSeconds)
}

func TestLoadFortisConfigErrors(t *testing.T) {
	_, err := LoadFortisConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = LoadFortisConfig(writeFile(t, "bad.yml", "config: [unterminated"))
	assert.Error(t, err)
}

func TestLoadLimitsConfig(t *testing.T) {
	path := writeFile(t, "limits.ini", `
[limits]
max_members = 10
lamports_per_byte = 1
`)
	limits, err := LoadLimitsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, limits.MaxMembers)
	assert.Equal(t, uint64(1), limits.LamportsPerByte)
	assert.Equal(t, DefaultMaxMessageSize, limits.MaxMessageSize)
	assert.Equal(t, uint64(DefaultAccountOverhead), limits.AccountOverhead)
}

func TestLoadLimitsConfigRejectsInvalid(t *testing.T) {
	path := writeFile(t, "limits.ini", "[limits]\nmax_members = 0\n")
	_, err := LoadLimitsConfig(path)
	assert.Error(t, err)
}

func TestShippedConfigFiles(t *testing.T) {
	cfg, err := LoadFortisConfig("fortis.yml")
	require.NoError(t, err)
	assert.Equal(t, "leveldb", cfg.Store.Type)

	limits, err := LoadLimitsConfig("limits.ini")
	require.NoError(t, err)
	assert.Equal(t, DefaultLimits(), limits)
}
