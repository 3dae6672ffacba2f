package monitoring

import (
	"net/http"

	"github.com/fortis-labs/fortis/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type VoteKind string

var (
	VoteApprove VoteKind = "approve"
	VoteReject  VoteKind = "reject"
	VoteCancel  VoteKind = "cancel"
)

type fortisPromMetrics struct {
	multisigCreated   prometheus.Counter
	proposalCreated   prometheus.Counter
	proposalVotes     *prometheus.CounterVec
	proposalExecuted  prometheus.Counter
	proposalClosed    prometheus.Counter
	rejectedOps       *prometheus.CounterVec
	appliedBatches    prometheus.Counter
	rolledBackBatches prometheus.Counter
}

func newFortisPromMetrics() *fortisPromMetrics {
	return &fortisPromMetrics{
		multisigCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fortis_multisig_created_total",
				Help: "The total number of multisigs created",
			},
		),
		proposalCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fortis_proposal_created_total",
				Help: "The total number of proposals created",
			},
		),
		proposalVotes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fortis_proposal_vote_total",
				Help: "The total number of accepted proposal votes",
			},
			[]string{"vote"},
		),
		proposalExecuted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fortis_proposal_executed_total",
				Help: "The total number of executed proposals",
			},
		),
		proposalClosed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fortis_proposal_closed_total",
				Help: "The total number of closed proposal and transaction pairs",
			},
		),
		rejectedOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fortis_rejected_op_total",
				Help: "The total number of rejected program operations",
			},
			[]string{"code"},
		),
		appliedBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fortis_ledger_applied_batch_total",
				Help: "The total number of committed ledger batches",
			},
		),
		rolledBackBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fortis_ledger_rolled_back_batch_total",
				Help: "The total number of ledger batches discarded on failure",
			},
		),
	}
}

var fortisMetrics = newFortisPromMetrics()

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func IncreaseMultisigCreated() {
	fortisMetrics.multisigCreated.Inc()
}

func IncreaseProposalCreated() {
	fortisMetrics.proposalCreated.Inc()
}

func RecordVote(kind VoteKind) {
	fortisMetrics.proposalVotes.With(prometheus.Labels{
		"vote": string(kind),
	}).Inc()
}

func IncreaseProposalExecuted() {
	fortisMetrics.proposalExecuted.Inc()
}

func IncreaseProposalClosed() {
	fortisMetrics.proposalClosed.Inc()
}

func RecordRejectedOp(code string) {
	fortisMetrics.rejectedOps.With(prometheus.Labels{
		"code": code,
	}).Inc()
}

func IncreaseAppliedBatch() {
	fortisMetrics.appliedBatches.Inc()
}

func IncreaseRolledBackBatch() {
	fortisMetrics.rolledBackBatches.Inc()
}
