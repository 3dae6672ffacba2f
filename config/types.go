package config

// StoreSection selects the account database
type StoreSection struct {
	Type      string `yaml:"type"`
	Directory string `yaml:"directory"`
}

// FortisConfig holds the configuration from fortis.yml
type FortisConfig struct {
	ProgramID            string       `yaml:"program_id"`
	Store                StoreSection `yaml:"store"`
	RentCollector        string       `yaml:"rent_collector"`
	VotingPeriodSeconds  int64        `yaml:"voting_period_seconds"`
	MetricsListenAddress string       `yaml:"metrics_listen_addr"`
}

// ConfigFile is the top-level structure for fortis.yml
type ConfigFile struct {
	Config FortisConfig `yaml:"config"`
}

// LimitsConfig bounds record sizes and storage cost
type LimitsConfig struct {
	MaxMembers      int    `ini:"max_members"`
	MaxMessageSize  int    `ini:"max_message_size"`
	LamportsPerByte uint64 `ini:"lamports_per_byte"`
	AccountOverhead uint64 `ini:"account_overhead"`
}
