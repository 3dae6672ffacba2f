package errors

import (
	stderrors "errors"

	"github.com/fortis-labs/fortis/jsonx"
)

// ErrorKind groups codes by the caller response they call for.
type ErrorKind string

const (
	KindConfig    ErrorKind = "config"
	KindAuth      ErrorKind = "auth"
	KindProposal  ErrorKind = "proposal"
	KindCompile   ErrorKind = "compile"
	KindExecution ErrorKind = "execution"
)

// ErrorCode is the stable, machine readable identity of a failure
type ErrorCode string

const (
	// Config errors
	ErrCodeEmptyMembers     ErrorCode = "empty_members"
	ErrCodeDuplicateMember  ErrorCode = "duplicate_member"
	ErrCodeInvalidThreshold ErrorCode = "invalid_threshold"
	ErrCodeTooManyMembers   ErrorCode = "too_many_members"
	ErrCodeMultisigExists   ErrorCode = "multisig_exists"
	ErrCodeInvalidAddress   ErrorCode = "invalid_address"

	// Auth errors
	ErrCodeMissingSignature    ErrorCode = "missing_signature"
	ErrCodeNotAMember          ErrorCode = "not_a_member"
	ErrCodeNotRentCollector    ErrorCode = "not_rent_collector"
	ErrCodeRentCollectorNotSet ErrorCode = "rent_collector_not_set"

	// Proposal errors
	ErrCodeIndexReused      ErrorCode = "index_reused"
	ErrCodeInvalidIndex     ErrorCode = "invalid_index"
	ErrCodeInvalidDeadline  ErrorCode = "invalid_deadline"
	ErrCodeNotActive        ErrorCode = "not_active"
	ErrCodeAlreadyApproved  ErrorCode = "already_approved"
	ErrCodeAlreadyRejected  ErrorCode = "already_rejected"
	ErrCodeAlreadyCancelled ErrorCode = "already_cancelled"
	ErrCodeAlreadyExecuted  ErrorCode = "already_executed"
	ErrCodeExpired          ErrorCode = "expired"
	ErrCodeThresholdNotMet  ErrorCode = "threshold_not_met"
	ErrCodeNotTerminal      ErrorCode = "not_terminal"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeInvalidAccount   ErrorCode = "invalid_account"

	// Compile errors
	ErrCodeEmptyInstructions  ErrorCode = "empty_instructions"
	ErrCodeInconsistentSigner ErrorCode = "inconsistent_signer"
	ErrCodeUnexpectedSigner   ErrorCode = "unexpected_signer"
	ErrCodeMessageTooLarge    ErrorCode = "message_too_large"
	ErrCodeVaultMismatch      ErrorCode = "vault_mismatch"
	ErrCodeEphemeralMismatch  ErrorCode = "ephemeral_signer_mismatch"
	ErrCodeInvalidInstruction ErrorCode = "invalid_instruction"

	// Execution errors
	ErrCodeDecode         ErrorCode = "decode_error"
	ErrCodeDispatchFailed ErrorCode = "dispatch_failed"
)

// ProgramError is the error type returned by every program operation
type ProgramError struct {
	Kind    ErrorKind `json:"kind"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Reason  string    `json:"reason,omitempty"`

	cause error
}

// Error implements the error interface
func (e *ProgramError) Error() string {
	b, _ := jsonx.Marshal(e)
	return string(b)
}

// Is matches on code so wrapped and reasoned copies still compare equal to
// the exported sentinels.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	return ok && t.Code == e.Code
}

func (e *ProgramError) Unwrap() error {
	return e.cause
}

// NewError creates a new ProgramError
func NewError(kind ErrorKind, code ErrorCode, message string) *ProgramError {
	return &ProgramError{Kind: kind, Code: code, Message: message}
}

// WithReason returns a copy carrying extra detail for the caller
func (e *ProgramError) WithReason(reason string) *ProgramError {
	cp := *e
	cp.Reason = reason
	return &cp
}

// Wrap returns a copy of base that records cause as its reason and unwraps to it
func Wrap(base *ProgramError, cause error) *ProgramError {
	cp := *base
	if cause != nil {
		cp.Reason = cause.Error()
	}
	cp.cause = cause
	return &cp
}

// Is and As forward to the standard library so callers need one import
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// KindOf reports the kind of the first ProgramError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProgramError
	if stderrors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// CodeOf reports the code of the first ProgramError in err's chain
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ProgramError
	if stderrors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

var (
	ErrEmptyMembers     = NewError(KindConfig, ErrCodeEmptyMembers, "Multisig needs at least one member")
	ErrDuplicateMember  = NewError(KindConfig, ErrCodeDuplicateMember, "Member list contains duplicates")
	ErrInvalidThreshold = NewError(KindConfig, ErrCodeInvalidThreshold, "Threshold must be between 1 and the number of members")
	ErrTooManyMembers   = NewError(KindConfig, ErrCodeTooManyMembers, "Member list exceeds the configured maximum")
	ErrMultisigExists   = NewError(KindConfig, ErrCodeMultisigExists, "A multisig already exists for this create key")
	ErrInvalidAddress   = NewError(KindConfig, ErrCodeInvalidAddress, "Account address does not match its derivation")

	ErrMissingSignature    = NewError(KindAuth, ErrCodeMissingSignature, "Required signature is missing")
	ErrNotAMember          = NewError(KindAuth, ErrCodeNotAMember, "Signer is not a member of the multisig")
	ErrNotRentCollector    = NewError(KindAuth, ErrCodeNotRentCollector, "Signer is not the multisig rent collector")
	ErrRentCollectorNotSet = NewError(KindAuth, ErrCodeRentCollectorNotSet, "Multisig has no rent collector")

	ErrIndexReused      = NewError(KindProposal, ErrCodeIndexReused, "Transaction index is already used")
	ErrInvalidIndex     = NewError(KindProposal, ErrCodeInvalidIndex, "Transaction index is not the next index")
	ErrInvalidDeadline  = NewError(KindProposal, ErrCodeInvalidDeadline, "Voting deadline must be in the future")
	ErrNotActive        = NewError(KindProposal, ErrCodeNotActive, "Proposal is not active")
	ErrAlreadyApproved  = NewError(KindProposal, ErrCodeAlreadyApproved, "Member already approved the proposal")
	ErrAlreadyRejected  = NewError(KindProposal, ErrCodeAlreadyRejected, "Member already rejected the proposal")
	ErrAlreadyCancelled = NewError(KindProposal, ErrCodeAlreadyCancelled, "Member already cancelled the proposal")
	ErrAlreadyExecuted  = NewError(KindProposal, ErrCodeAlreadyExecuted, "Proposal was already executed")
	ErrExpired          = NewError(KindProposal, ErrCodeExpired, "Proposal voting deadline has passed")
	ErrThresholdNotMet  = NewError(KindProposal, ErrCodeThresholdNotMet, "Proposal does not have enough approvals")
	ErrNotTerminal      = NewError(KindProposal, ErrCodeNotTerminal, "Proposal is not in a terminal state")
	ErrNotFound         = NewError(KindProposal, ErrCodeNotFound, "Proposal or transaction does not exist")
	ErrInvalidAccount   = NewError(KindProposal, ErrCodeInvalidAccount, "Account does not belong to this multisig")

	ErrEmptyInstructions  = NewError(KindCompile, ErrCodeEmptyInstructions, "Vault transaction has no instructions")
	ErrInconsistentSigner = NewError(KindCompile, ErrCodeInconsistentSigner, "Account is referenced both as signer and non-signer")
	ErrUnexpectedSigner   = NewError(KindCompile, ErrCodeUnexpectedSigner, "Only the vault and ephemeral signers may sign")
	ErrMessageTooLarge    = NewError(KindCompile, ErrCodeMessageTooLarge, "Vault transaction message exceeds size limits")
	ErrVaultMismatch      = NewError(KindCompile, ErrCodeVaultMismatch, "Message vault does not match the multisig vault")
	ErrEphemeralMismatch  = NewError(KindCompile, ErrCodeEphemeralMismatch, "Ephemeral signer count does not match the message")
	ErrInvalidInstruction = NewError(KindCompile, ErrCodeInvalidInstruction, "Instruction data could not be decoded")

	ErrDecode         = NewError(KindExecution, ErrCodeDecode, "Stored vault transaction message is malformed")
	ErrDispatchFailed = NewError(KindExecution, ErrCodeDispatchFailed, "Vault transaction instruction failed")
)
