package config

import (
	"fmt"
	"os"

	"github.com/fortis-labs/fortis/logx"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxMembers      = 64
	DefaultMaxMessageSize  = 10 * 1024
	DefaultLamportsPerByte = 6960
	DefaultAccountOverhead = 128

	DefaultVotingPeriodSeconds = 30 * 24 * 60 * 60
	DefaultStoreDirectory      = "./data/accounts"
)

// DefaultLimits are used when no limits file is supplied
func DefaultLimits() *LimitsConfig {
	return &LimitsConfig{
		MaxMembers:      DefaultMaxMembers,
		MaxMessageSize:  DefaultMaxMessageSize,
		LamportsPerByte: DefaultLamportsPerByte,
		AccountOverhead: DefaultAccountOverhead,
	}
}

// DefaultFortisConfig is used when no config file is supplied
func DefaultFortisConfig() *FortisConfig {
	return &FortisConfig{
		Store: StoreSection{
			Type:      "leveldb",
			Directory: DefaultStoreDirectory,
		},
		VotingPeriodSeconds: DefaultVotingPeriodSeconds,
	}
}

// LoadFortisConfig reads and parses the fortis.yml file
func LoadFortisConfig(path string) (*FortisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg := &cfgFile.Config
	if cfg.Store.Type == "" {
		cfg.Store.Type = "leveldb"
	}
	if cfg.Store.Directory == "" {
		cfg.Store.Directory = DefaultStoreDirectory
	}
	if cfg.VotingPeriodSeconds <= 0 {
		cfg.VotingPeriodSeconds = DefaultVotingPeriodSeconds
	}
	logx.Info("CONFIG", "loaded", path, "store", cfg.Store.Type, cfg.Store.Directory)
	return cfg, nil
}

// LoadLimitsConfig reads the [limits] section from an .ini file.
// Keys that are missing keep their default value.
func LoadLimitsConfig(path string) (*LimitsConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	limits := DefaultLimits()
	if err := cfg.Section("limits").MapTo(limits); err != nil {
		return nil, err
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits in %s: %w", path, err)
	}
	return limits, nil
}

func (l *LimitsConfig) Validate() error {
	if l.MaxMembers <= 0 || l.MaxMembers > 255 {
		return fmt.Errorf("max_members must be in [1, 255], got %d", l.MaxMembers)
	}
	if l.MaxMessageSize <= 0 {
		return fmt.Errorf("max_message_size must be positive, got %d", l.MaxMessageSize)
	}
	return nil
}
