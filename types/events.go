package types

import (
	"time"
)

const (
	EventBatchApplied    = "BatchApplied"
	EventBatchRolledBack = "BatchRolledBack"
)

// LedgerEvent is anything the ledger reports about a submitted batch
type LedgerEvent interface {
	Type() string
	Timestamp() time.Time
	TxHash() string
}

// BatchApplied event when a batch is committed to the account store
type BatchApplied struct {
	txHash    string
	sequence  uint64
	stateHash string
	logs      []string
	timestamp time.Time
}

func NewBatchApplied(txHash string, sequence uint64, stateHash string, logs []string) *BatchApplied {
	return &BatchApplied{
		txHash:    txHash,
		sequence:  sequence,
		stateHash: stateHash,
		logs:      logs,
		timestamp: time.Now(),
	}
}

func (e *BatchApplied) Type() string {
	return EventBatchApplied
}

func (e *BatchApplied) Timestamp() time.Time {
	return e.timestamp
}

func (e *BatchApplied) TxHash() string {
	return e.txHash
}

func (e *BatchApplied) Sequence() uint64 {
	return e.sequence
}

func (e *BatchApplied) StateHash() string {
	return e.stateHash
}

func (e *BatchApplied) Logs() []string {
	return e.logs
}

// BatchRolledBack event when any instruction of a batch fails
type BatchRolledBack struct {
	txHash       string
	errorMessage string
	timestamp    time.Time
}

func NewBatchRolledBack(txHash string, errorMessage string) *BatchRolledBack {
	return &BatchRolledBack{
		txHash:       txHash,
		errorMessage: errorMessage,
		timestamp:    time.Now(),
	}
}

func (e *BatchRolledBack) Type() string {
	return EventBatchRolledBack
}

func (e *BatchRolledBack) Timestamp() time.Time {
	return e.timestamp
}

func (e *BatchRolledBack) TxHash() string {
	return e.txHash
}

func (e *BatchRolledBack) ErrorMessage() string {
	return e.errorMessage
}
