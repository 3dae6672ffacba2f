package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fortis-labs/fortis/client"
	"github.com/fortis-labs/fortis/common"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/monitoring"
	"github.com/fortis-labs/fortis/program"
	"github.com/fortis-labs/fortis/types"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

type SimulateConfig struct {
	MetricsAddr string
	Linger      time.Duration
}

var simulateConfig SimulateConfig

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a full 2-of-3 multisig lifecycle on an in-memory ledger",
	Long: `Create a 2-of-3 multisig, fund its vault, propose a transfer out of it,
approve and execute the proposal, then close its accounts. Nothing is persisted.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := simulate(simulateConfig); err != nil {
			logx.Error("SIMULATE", err)
		}
	},
}

func step(n int, title string, res *ledger.TxResult) {
	fmt.Printf("%d. %s\n", n, title)
	if res != nil {
		fmt.Printf("  signature: %s (sequence %d)\n", res.Signature, res.Sequence)
		printLogs(res.Logs)
	}
}

func simulate(cfg SimulateConfig) error {
	fortisCfg, limits, err := loadConfigs()
	if err != nil {
		return err
	}
	programID, err := programIDFrom(fortisCfg)
	if err != nil {
		return err
	}

	metricsAddr := cfg.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = fortisCfg.MetricsListenAddress
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		monitoring.RegisterMetrics(mux)
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logx.Error("SIMULATE", "metrics server stopped:", err)
			}
		}()
		logx.Info("SIMULATE", "Serving metrics on", metricsAddr)
	}

	l, err := ledger.NewInMemory(ledger.SystemClock{}, limits)
	if err != nil {
		return err
	}
	defer l.Close()
	l.RegisterProgram(program.New(limits, programID))
	c := client.New(l, programID)
	events := l.Events().Subscribe(types.AllEvents)
	defer l.Events().Unsubscribe(types.AllEvents, events)

	members := make([]solana.PrivateKey, 3)
	for i := range members {
		if members[i], err = solana.NewRandomPrivateKey(); err != nil {
			return err
		}
		if err := l.Airdrop(members[i].PublicKey(), common.LamportsPerSol); err != nil {
			return err
		}
	}
	createKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	creator := members[0]
	collector := creator.PublicKey()

	memberKeys := []solana.PublicKey{members[0].PublicKey(), members[1].PublicKey(), members[2].PublicKey()}
	multisig, res, err := c.CreateMultisig(creator, createKey, memberKeys, 2, &collector)
	if err != nil {
		return err
	}
	step(1, fmt.Sprintf("Created multisig %s", multisig), res)

	vault := c.VaultAddress(multisig)
	if res, err = c.Deposit(creator, multisig, 1_000_000); err != nil {
		return err
	}
	step(2, fmt.Sprintf("Funded vault %s", vault), res)

	receiver := solana.NewWallet().PublicKey()
	deadline := l.Clock().Now().Add(time.Duration(fortisCfg.VotingPeriodSeconds) * time.Second)
	index, res, err := c.ProposeTransfer(creator, multisig, receiver, 1_000_000, deadline)
	if err != nil {
		return err
	}
	step(3, fmt.Sprintf("Created proposal %d", index), res)

	for i, member := range members[:2] {
		if res, err = c.Approve(member, multisig, index); err != nil {
			return err
		}
		step(4+i, fmt.Sprintf("Member %s approved", member.PublicKey()), res)
	}

	if res, err = c.Execute(creator, multisig, index); err != nil {
		return err
	}
	step(6, "Executed proposal", res)
	received, err := l.Balance(receiver)
	if err != nil {
		return err
	}
	fmt.Printf("  receiver balance after execution: %s lamports\n", received.Dec())

	if res, err = c.Close(creator, multisig, index); err != nil {
		return err
	}
	step(7, "Closed proposal and transaction accounts", res)
	refunded, err := l.Balance(collector)
	if err != nil {
		return err
	}
	fmt.Printf("  rent collector balance: %s SOL\n", common.LamportsToSol(refunded))

	applied := 0
	for len(events) > 0 {
		if (<-events).Type() == types.EventBatchApplied {
			applied++
		}
	}
	seq, stateHash := l.StateHash()
	fmt.Printf("Applied %d batches, ledger at sequence %d with state hash %s\n", applied, seq, stateHash)

	if metricsAddr != "" && cfg.Linger > 0 {
		logx.Info("SIMULATE", "Keeping metrics endpoint up for", cfg.Linger)
		time.Sleep(cfg.Linger)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simulateConfig.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	simulateCmd.Flags().DurationVar(&simulateConfig.Linger, "linger", 0, "keep the metrics endpoint up this long after the run")
}
