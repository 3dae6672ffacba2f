package cmd

import (
	"fmt"
	"strings"

	"github.com/fortis-labs/fortis/common"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/pda"
	"github.com/fortis-labs/fortis/program"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

type MultisigConfig struct {
	CreatorKeyFile   string
	CreateKeyFile    string
	CreateKey        string
	Members          []string
	Threshold        uint16
	RentCollector    string
	NoRentCollector  bool
	MultisigAddr     string
	DepositKeyFile   string
	DepositAmountSol string
}

var multisigConfig MultisigConfig

var multisigCmd = &cobra.Command{
	Use:   "multisig",
	Short: "Multisig management commands",
	Long:  `Commands for creating Fortis multisigs, funding their vault and inspecting them.`,
}

var multisigCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new multisig",
	Long:  `Create a multisig owned by --members that needs --threshold approvals to move vault funds.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := createMultisig(multisigConfig); err != nil {
			logx.Error("MULTISIG CLI", err)
		}
	},
}

var multisigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a multisig and its vault balance",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showMultisig(multisigConfig); err != nil {
			logx.Error("MULTISIG CLI", err)
		}
	},
}

var multisigAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Derive the multisig and vault addresses for a create key",
	Run: func(cmd *cobra.Command, args []string) {
		if err := multisigAddress(multisigConfig); err != nil {
			logx.Error("MULTISIG CLI", err)
		}
	},
}

var multisigDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Transfer SOL from a wallet into the multisig vault",
	Run: func(cmd *cobra.Command, args []string) {
		if err := depositToVault(multisigConfig); err != nil {
			logx.Error("MULTISIG CLI", err)
		}
	},
}

func createMultisig(cfg MultisigConfig) error {
	creator, err := loadKey(cfg.CreatorKeyFile, "creator")
	if err != nil {
		return err
	}

	var createKey solana.PrivateKey
	if cfg.CreateKeyFile != "" {
		createKey, err = common.LoadPrivateKeyFile(cfg.CreateKeyFile)
	} else {
		createKey, err = solana.NewRandomPrivateKey()
	}
	if err != nil {
		return err
	}

	members, err := common.ParsePublicKeys(splitList(cfg.Members))
	if err != nil {
		return fmt.Errorf("invalid members: %w", err)
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	rentCollector, err := resolveRentCollector(cfg, env, creator.PublicKey())
	if err != nil {
		return err
	}

	multisig, res, err := env.client.CreateMultisig(creator, createKey, members, cfg.Threshold, rentCollector)
	if err != nil {
		return err
	}
	printLogs(res.Logs)
	fmt.Printf("Create key: %s\n", createKey.PublicKey())
	fmt.Printf("Multisig:   %s\n", multisig)
	fmt.Printf("Vault:      %s\n", env.client.VaultAddress(multisig))
	return nil
}

// resolveRentCollector prefers the flag, then config, then the creator
func resolveRentCollector(cfg MultisigConfig, env *environment, creator solana.PublicKey) (*solana.PublicKey, error) {
	if cfg.NoRentCollector {
		return nil, nil
	}
	raw := cfg.RentCollector
	if raw == "" {
		raw = env.cfg.RentCollector
	}
	if raw == "" {
		return &creator, nil
	}
	key, err := common.ParsePublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid rent collector: %w", err)
	}
	return &key, nil
}

type multisigView struct {
	Address     solana.PublicKey  `json:"address"`
	Vault       solana.PublicKey  `json:"vault"`
	VaultSol    string            `json:"vaultBalanceSol"`
	Multisig    *program.Multisig `json:"multisig"`
	ProposalsAt uint64            `json:"nextTransactionIndex"`
}

func showMultisig(cfg MultisigConfig) error {
	addr, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	ms, err := env.client.Multisig(addr)
	if err != nil {
		return err
	}
	vault := env.client.VaultAddress(addr)
	lamports, err := env.ledger.Balance(vault)
	if err != nil {
		return err
	}
	return printJSON(multisigView{
		Address:     addr,
		Vault:       vault,
		VaultSol:    common.LamportsToSol(lamports),
		Multisig:    ms,
		ProposalsAt: ms.TransactionIndex + 1,
	})
}

func multisigAddress(cfg MultisigConfig) error {
	createKey, err := common.ParsePublicKey(cfg.CreateKey)
	if err != nil {
		return err
	}
	cfgFile, _, err := loadConfigs()
	if err != nil {
		return err
	}
	programID, err := programIDFrom(cfgFile)
	if err != nil {
		return err
	}
	multisig, msBump := pda.MultisigAddress(createKey, programID)
	vault, vaultBump := pda.VaultAddress(multisig, 0, programID)
	fmt.Printf("Multisig: %s (bump %d)\n", multisig, msBump)
	fmt.Printf("Vault:    %s (bump %d)\n", vault, vaultBump)
	return nil
}

func depositToVault(cfg MultisigConfig) error {
	from, err := loadKey(cfg.DepositKeyFile, "from")
	if err != nil {
		return err
	}
	addr, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	lamports, err := common.SolToLamports(cfg.DepositAmountSol)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.client.Multisig(addr); err != nil {
		return err
	}
	res, err := env.client.Deposit(from, addr, lamports)
	if err != nil {
		return err
	}
	printLogs(res.Logs)
	return showBalance(env, env.client.VaultAddress(addr))
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func printLogs(logs []string) {
	for _, line := range logs {
		fmt.Println("  " + line)
	}
}

func init() {
	rootCmd.AddCommand(multisigCmd)
	multisigCmd.AddCommand(multisigCreateCmd)
	multisigCmd.AddCommand(multisigShowCmd)
	multisigCmd.AddCommand(multisigAddressCmd)
	multisigCmd.AddCommand(multisigDepositCmd)

	multisigCreateCmd.Flags().StringVar(&multisigConfig.CreatorKeyFile, "creator", "", "private key file of the paying creator")
	multisigCreateCmd.Flags().StringVar(&multisigConfig.CreateKeyFile, "create-key", "", "private key file of the create key (random if empty)")
	multisigCreateCmd.Flags().StringSliceVarP(&multisigConfig.Members, "members", "m", nil, "comma separated member public keys")
	multisigCreateCmd.Flags().Uint16VarP(&multisigConfig.Threshold, "threshold", "t", 1, "approvals needed to execute")
	multisigCreateCmd.Flags().StringVar(&multisigConfig.RentCollector, "rent-collector", "", "rent collector public key (defaults to config, then creator)")
	multisigCreateCmd.Flags().BoolVar(&multisigConfig.NoRentCollector, "no-rent-collector", false, "create without a rent collector")

	multisigShowCmd.Flags().StringVar(&multisigConfig.MultisigAddr, "multisig", "", "multisig address")

	multisigAddressCmd.Flags().StringVar(&multisigConfig.CreateKey, "create-key", "", "create key public key")

	multisigDepositCmd.Flags().StringVar(&multisigConfig.DepositKeyFile, "from", "", "private key file of the funding wallet")
	multisigDepositCmd.Flags().StringVar(&multisigConfig.MultisigAddr, "multisig", "", "multisig address")
	multisigDepositCmd.Flags().StringVar(&multisigConfig.DepositAmountSol, "amount", "", "amount in SOL")
}
