package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure families.
type ErrorKind int

const (
	KindAccount ErrorKind = iota
	KindData
	KindProof
	KindWithdrawalValidation
	KindConfig
	KindBlockchain
)

func (k ErrorKind) String() string {
	switch k {
	case KindAccount:
		return "AccountError"
	case KindData:
		return "DataError"
	case KindProof:
		return "ProofError"
	case KindWithdrawalValidation:
		return "WithdrawalValidationError"
	case KindConfig:
		return "ConfigError"
	case KindBlockchain:
		return "BlockchainError"
	default:
		return "UnknownError"
	}
}

// Error is the structured error returned by every core operation. Two errors
// match with errors.Is when they share kind and code, so the package level
// values below can be used as sentinels while the returned instances carry
// their own message, details and cause.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// WithMessage returns a copy of the error with a formatted message.
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	cp := e.copy()
	cp.Message = fmt.Sprintf(format, args...)
	return cp
}

// WithDetails returns a copy of the error carrying the given details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := e.copy()
	cp.Details = details
	return cp
}

// Wrap returns a copy of the error with err as cause.
func (e *Error) Wrap(err error) *Error {
	cp := e.copy()
	cp.Err = err
	return cp
}

func (e *Error) copy() *Error {
	cp := *e
	if e.Details != nil {
		cp.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

// IsKind returns whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError extracts the *Error from the chain of err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	// ErrInvalidInput is returned for a zero nullifier, label or secret, or
	// any other malformed account input.
	ErrInvalidInput = newError(KindAccount, "INVALID_INPUT", "invalid input")
	// ErrInvalidIndex is returned for a negative explicit derivation index.
	ErrInvalidIndex = newError(KindAccount, "INVALID_INDEX", "index must not be negative")
	// ErrCommitmentNotFound is returned when no pool account owns a commitment.
	ErrCommitmentNotFound = newError(KindAccount, "COMMITMENT_NOT_FOUND", "commitment not found")
	// ErrAccountInit is returned when master keys can't be derived from a seed.
	ErrAccountInit = newError(KindAccount, "ACCOUNT_INIT_FAILED", "failed to initialize account")

	// ErrChainNotConfigured ...
	ErrChainNotConfigured = newError(KindData, "CHAIN_NOT_CONFIGURED", "chain not configured")
	// ErrInvalidLog is returned for an event log that can't be decoded.
	ErrInvalidLog = newError(KindData, "INVALID_LOG", "invalid event log")
	// ErrNetwork ...
	ErrNetwork = newError(KindData, "NETWORK_ERROR", "network error")

	// ErrProofGeneration ...
	ErrProofGeneration = newError(KindProof, "PROOF_GENERATION_FAILED", "failed to generate proof")
	// ErrProofVerification is returned for a malformed proof or verification
	// key. A well formed but invalid proof is not an error.
	ErrProofVerification = newError(KindProof, "PROOF_VERIFICATION_FAILED", "failed to verify proof")
	// ErrInvalidProof is returned by the relayer when a proof doesn't verify.
	ErrInvalidProof = newError(KindProof, "INVALID_PROOF", "invalid proof")
	// ErrMerkle is returned when a leaf is missing from a tree.
	ErrMerkle = newError(KindProof, "MERKLE_ERROR", "merkle error")
	// ErrInvalidProofInput ...
	ErrInvalidProofInput = newError(KindProof, "INVALID_PROOF_INPUT", "invalid proof input")

	// ErrInvalidWithdrawalData is returned when withdrawal data is not a
	// valid fee data encoding.
	ErrInvalidWithdrawalData = newError(KindWithdrawalValidation, "INVALID_DATA", "invalid withdrawal data")
	// ErrInvalidRequest is returned for a relay request body that can't be
	// parsed.
	ErrInvalidRequest = newError(KindWithdrawalValidation, "INVALID_INPUT", "invalid request")
	// ErrInvalidSignals ...
	ErrInvalidSignals = newError(KindWithdrawalValidation, "INVALID_SIGNALS", "invalid public signals")
	// ErrProcessooorMismatch ...
	ErrProcessooorMismatch = newError(KindWithdrawalValidation, "PROCESSOOOR_MISMATCH", "processooor mismatch")
	// ErrFeeReceiverMismatch ...
	ErrFeeReceiverMismatch = newError(KindWithdrawalValidation, "FEE_RECEIVER_MISMATCH", "fee receiver mismatch")
	// ErrFeeTooLow ...
	ErrFeeTooLow = newError(KindWithdrawalValidation, "FEE_TOO_LOW", "relay fee too low")
	// ErrContextMismatch ...
	ErrContextMismatch = newError(KindWithdrawalValidation, "CONTEXT_MISMATCH", "context mismatch")
	// ErrWithdrawnValueTooSmall ...
	ErrWithdrawnValueTooSmall = newError(KindWithdrawalValidation, "INSUFFICIENT_WITHDRAWN_VALUE", "withdrawn value too small")
	// ErrAssetNotSupported ...
	ErrAssetNotSupported = newError(KindWithdrawalValidation, "ASSET_NOT_SUPPORTED", "asset not supported")
	// ErrFeeCommitmentExpired ...
	ErrFeeCommitmentExpired = newError(KindWithdrawalValidation, "RELAYER_COMMITMENT_EXPIRED", "fee commitment expired")
	// ErrInvalidFeeCommitment is returned for a fee commitment not signed by
	// the relayer or not matching the withdrawal data.
	ErrInvalidFeeCommitment = newError(KindWithdrawalValidation, "RELAYER_COMMITMENT_REJECTED", "invalid fee commitment")

	// ErrInvalidConfig ...
	ErrInvalidConfig = newError(KindConfig, "INVALID_CONFIG", "invalid config")
	// ErrMissingConfig ...
	ErrMissingConfig = newError(KindConfig, "MISSING_CONFIG", "missing config")

	// ErrTxFailed is returned when a relay transaction is reverted during
	// simulation or broadcast.
	ErrTxFailed = newError(KindBlockchain, "TRANSACTION_ERROR", "transaction failed")
)
