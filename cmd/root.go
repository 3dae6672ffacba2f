package cmd

import (
	"fmt"
	"os"

	"github.com/fortis-labs/fortis/client"
	"github.com/fortis-labs/fortis/common"
	"github.com/fortis-labs/fortis/config"
	"github.com/fortis-labs/fortis/jsonx"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/pda"
	"github.com/fortis-labs/fortis/program"
	"github.com/fortis-labs/fortis/store"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

type RootConfig struct {
	ConfigFile string
	LimitsFile string
	DBDir      string
}

var rootConfig RootConfig

var rootCmd = &cobra.Command{
	Use:   "fortis",
	Short: "Fortis multisig treasury CLI",
	Long:  "Command line interface for creating Fortis multisigs and driving vault proposals against a local ledger.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootConfig.ConfigFile, "config", "c", "", "path to fortis.yml")
	rootCmd.PersistentFlags().StringVar(&rootConfig.LimitsFile, "limits", "", "path to limits.ini")
	rootCmd.PersistentFlags().StringVar(&rootConfig.DBDir, "db-dir", "", "account database directory (overrides config)")
}

// environment is everything a command needs to talk to the local ledger
type environment struct {
	cfg    *config.FortisConfig
	limits *config.LimitsConfig
	ledger *ledger.Ledger
	client *client.Client
}

func (e *environment) Close() {
	e.ledger.Close()
}

func loadConfigs() (*config.FortisConfig, *config.LimitsConfig, error) {
	cfg := config.DefaultFortisConfig()
	if rootConfig.ConfigFile != "" {
		loaded, err := config.LoadFortisConfig(rootConfig.ConfigFile)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if rootConfig.DBDir != "" {
		cfg.Store.Directory = rootConfig.DBDir
	}

	limits := config.DefaultLimits()
	if rootConfig.LimitsFile != "" {
		loaded, err := config.LoadLimitsConfig(rootConfig.LimitsFile)
		if err != nil {
			return nil, nil, err
		}
		limits = loaded
	}
	return cfg, limits, nil
}

func programIDFrom(cfg *config.FortisConfig) (solana.PublicKey, error) {
	if cfg.ProgramID == "" {
		return pda.ProgramID, nil
	}
	id, err := common.ParsePublicKey(cfg.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return id, nil
}

// openEnvironment opens the configured account store and registers the
// Fortis program on a ledger driven by the wall clock.
func openEnvironment() (*environment, error) {
	cfg, limits, err := loadConfigs()
	if err != nil {
		return nil, err
	}
	programID, err := programIDFrom(cfg)
	if err != nil {
		return nil, err
	}

	stores, err := store.CreateStores(&store.StoreConfig{
		Type:      store.StoreType(cfg.Store.Type),
		Directory: cfg.Store.Directory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}

	l, err := ledger.NewLedger(stores, ledger.SystemClock{}, limits)
	if err != nil {
		stores.Accounts.MustClose()
		return nil, err
	}
	l.RegisterProgram(program.New(limits, programID))
	return &environment{
		cfg:    cfg,
		limits: limits,
		ledger: l,
		client: client.New(l, programID),
	}, nil
}

func loadKey(path, flag string) (solana.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flag)
	}
	return common.LoadPrivateKeyFile(path)
}

func printJSON(v interface{}) error {
	out, err := jsonx.MarshalIndent(v)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
