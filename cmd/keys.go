package cmd

import (
	"fmt"

	"github.com/fortis-labs/fortis/common"
	"github.com/fortis-labs/fortis/logx"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

type KeysConfig struct {
	OutFile string
	Address string
	Amount  string
}

var keysConfig KeysConfig

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new ed25519 keypair",
	Long:  `Generate a new ed25519 keypair and write the base58 private key to --out.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := keygen(keysConfig); err != nil {
			logx.Error("KEYS CLI", err)
		}
	},
}

var airdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Credit SOL to an address on the local ledger",
	Run: func(cmd *cobra.Command, args []string) {
		if err := airdrop(keysConfig); err != nil {
			logx.Error("KEYS CLI", err)
		}
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the balance of an address",
	Run: func(cmd *cobra.Command, args []string) {
		if err := balance(keysConfig); err != nil {
			logx.Error("KEYS CLI", err)
		}
	},
}

func keygen(cfg KeysConfig) error {
	if cfg.OutFile == "" {
		return fmt.Errorf("--out is required")
	}
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	if err := common.WritePrivateKeyFile(cfg.OutFile, key); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	fmt.Printf("Public key: %s\n", key.PublicKey())
	fmt.Printf("Private key written to %s\n", cfg.OutFile)
	return nil
}

func airdrop(cfg KeysConfig) error {
	addr, err := common.ParsePublicKey(cfg.Address)
	if err != nil {
		return err
	}
	lamports, err := common.SolToLamports(cfg.Amount)
	if err != nil {
		return err
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.ledger.Airdrop(addr, lamports); err != nil {
		return err
	}
	logx.Info("KEYS CLI", fmt.Sprintf("Airdropped %d lamports to %s", lamports, addr))
	return showBalance(env, addr)
}

func balance(cfg KeysConfig) error {
	addr, err := common.ParsePublicKey(cfg.Address)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()
	return showBalance(env, addr)
}

func showBalance(env *environment, addr solana.PublicKey) error {
	lamports, err := env.ledger.Balance(addr)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s SOL (%s lamports)\n", addr, common.LamportsToSol(lamports), lamports.Dec())
	return nil
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(airdropCmd)
	rootCmd.AddCommand(balanceCmd)

	keygenCmd.Flags().StringVarP(&keysConfig.OutFile, "out", "o", "", "file to write the private key to")

	airdropCmd.Flags().StringVarP(&keysConfig.Address, "address", "a", "", "address to credit")
	airdropCmd.Flags().StringVar(&keysConfig.Amount, "amount", "1", "amount in SOL")

	balanceCmd.Flags().StringVarP(&keysConfig.Address, "address", "a", "", "address to query")
}
