package cmd

import (
	"fmt"
	"time"

	"github.com/fortis-labs/fortis/common"
	"github.com/fortis-labs/fortis/ledger"
	"github.com/fortis-labs/fortis/logx"
	"github.com/fortis-labs/fortis/message"
	"github.com/fortis-labs/fortis/program"
	"github.com/spf13/cobra"
)

type ProposalConfig struct {
	KeyFile      string
	MultisigAddr string
	Index        uint64
	Recipient    string
	Amount       string
	Deadline     string
}

var proposalConfig ProposalConfig

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Vault proposal commands",
	Long:  `Commands for proposing vault transactions, voting on them, executing them and reclaiming their storage.`,
}

var proposalTransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Propose a SOL transfer out of the vault",
	Run: func(cmd *cobra.Command, args []string) {
		if err := proposeTransfer(proposalConfig); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a proposal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := vote(proposalConfig, "approve"); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalRejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject a proposal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := vote(proposalConfig, "reject"); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Vote to cancel an approved proposal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := vote(proposalConfig, "cancel"); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute an approved proposal",
	Run: func(cmd *cobra.Command, args []string) {
		if err := vote(proposalConfig, "execute"); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close a resolved proposal and its transaction",
	Run: func(cmd *cobra.Command, args []string) {
		if err := closeProposal(proposalConfig); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalCloseResolvedCmd = &cobra.Command{
	Use:   "close-resolved",
	Short: "Close every resolved proposal of a multisig",
	Run: func(cmd *cobra.Command, args []string) {
		if err := closeResolved(proposalConfig); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

var proposalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a proposal and its vault transaction",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showProposal(proposalConfig); err != nil {
			logx.Error("PROPOSAL CLI", err)
		}
	},
}

// votingDeadline parses --deadline as RFC3339 or a duration from now and
// falls back to the configured voting period.
func votingDeadline(raw string, env *environment) (time.Time, error) {
	now := env.ledger.Clock().Now()
	if raw == "" {
		return now.Add(time.Duration(env.cfg.VotingPeriodSeconds) * time.Second), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline %q: want RFC3339 or a duration", raw)
	}
	return t, nil
}

func proposeTransfer(cfg ProposalConfig) error {
	creator, err := loadKey(cfg.KeyFile, "key")
	if err != nil {
		return err
	}
	multisig, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	recipient, err := common.ParsePublicKey(cfg.Recipient)
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

	deadline, err := votingDeadline(cfg.Deadline, env)
	if err != nil {
		return err
	}
	index, res, err := env.client.ProposeTransfer(creator, multisig, recipient, lamports, deadline)
	if err != nil {
		return err
	}
	printLogs(res.Logs)
	fmt.Printf("Proposal %d created, voting closes %s\n", index, deadline.UTC().Format(time.RFC3339))
	return nil
}

func vote(cfg ProposalConfig, action string) error {
	member, err := loadKey(cfg.KeyFile, "key")
	if err != nil {
		return err
	}
	multisig, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	var res *ledger.TxResult
	switch action {
	case "approve":
		res, err = env.client.Approve(member, multisig, cfg.Index)
	case "reject":
		res, err = env.client.Reject(member, multisig, cfg.Index)
	case "cancel":
		res, err = env.client.Cancel(member, multisig, cfg.Index)
	case "execute":
		res, err = env.client.Execute(member, multisig, cfg.Index)
	default:
		return fmt.Errorf("unknown action %s", action)
	}
	if err != nil {
		return err
	}
	printLogs(res.Logs)

	prop, err := env.client.Proposal(multisig, cfg.Index)
	if err != nil {
		return err
	}
	fmt.Printf("Proposal %d: %s (%d approvals, %d rejections, %d cancellations)\n",
		cfg.Index, prop.Status, len(prop.Approvals), len(prop.Rejections), len(prop.Cancellations))
	return nil
}

func closeProposal(cfg ProposalConfig) error {
	collector, err := loadKey(cfg.KeyFile, "key")
	if err != nil {
		return err
	}
	multisig, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.client.Close(collector, multisig, cfg.Index)
	if err != nil {
		return err
	}
	printLogs(res.Logs)
	return showBalance(env, collector.PublicKey())
}

func closeResolved(cfg ProposalConfig) error {
	collector, err := loadKey(cfg.KeyFile, "key")
	if err != nil {
		return err
	}
	multisig, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	closed, err := env.client.CloseResolved(collector, multisig)
	fmt.Printf("Closed proposals: %v\n", closed)
	if err != nil {
		return err
	}
	return showBalance(env, collector.PublicKey())
}

type proposalView struct {
	Proposal    *program.Proposal                `json:"proposal"`
	Expired     bool                             `json:"expired"`
	Transaction *program.VaultTransaction        `json:"transaction,omitempty"`
	Message     *message.VaultTransactionMessage `json:"message,omitempty"`
}

func showProposal(cfg ProposalConfig) error {
	multisig, err := common.ParsePublicKey(cfg.MultisigAddr)
	if err != nil {
		return err
	}
	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	prop, err := env.client.Proposal(multisig, cfg.Index)
	if err != nil {
		return err
	}
	view := proposalView{Proposal: prop, Expired: prop.IsExpired(env.ledger.Clock().Now())}
	if tx, err := env.client.Transaction(multisig, cfg.Index); err == nil {
		view.Transaction = tx
		if msg, err := message.Decode(tx.Message); err == nil {
			view.Message = msg
		}
	}
	return printJSON(view)
}

func addProposalFlags(cmd *cobra.Command, keyUsage string) {
	cmd.Flags().StringVarP(&proposalConfig.KeyFile, "key", "k", "", keyUsage)
	cmd.Flags().StringVar(&proposalConfig.MultisigAddr, "multisig", "", "multisig address")
}

func init() {
	rootCmd.AddCommand(proposalCmd)
	for _, c := range []*cobra.Command{
		proposalTransferCmd, proposalApproveCmd, proposalRejectCmd, proposalCancelCmd,
		proposalExecuteCmd, proposalCloseCmd, proposalCloseResolvedCmd, proposalShowCmd,
	} {
		proposalCmd.AddCommand(c)
	}

	addProposalFlags(proposalTransferCmd, "private key file of the proposing member")
	proposalTransferCmd.Flags().StringVar(&proposalConfig.Recipient, "to", "", "recipient public key")
	proposalTransferCmd.Flags().StringVar(&proposalConfig.Amount, "amount", "", "amount in SOL")
	proposalTransferCmd.Flags().StringVar(&proposalConfig.Deadline, "deadline", "", "voting deadline (RFC3339 or duration, defaults to the configured voting period)")

	for _, c := range []*cobra.Command{proposalApproveCmd, proposalRejectCmd, proposalCancelCmd, proposalExecuteCmd} {
		addProposalFlags(c, "private key file of the voting member")
		c.Flags().Uint64VarP(&proposalConfig.Index, "index", "i", 0, "transaction index")
	}

	addProposalFlags(proposalCloseCmd, "private key file of the rent collector")
	proposalCloseCmd.Flags().Uint64VarP(&proposalConfig.Index, "index", "i", 0, "transaction index")
	addProposalFlags(proposalCloseResolvedCmd, "private key file of the rent collector")

	proposalShowCmd.Flags().StringVar(&proposalConfig.MultisigAddr, "multisig", "", "multisig address")
	proposalShowCmd.Flags().Uint64VarP(&proposalConfig.Index, "index", "i", 0, "transaction index")
}
