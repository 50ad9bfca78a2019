package shared

import "errors"

// ErrorKind classifies why a lending operation was rejected.
type ErrorKind string

const (
	KindPolicyViolation    ErrorKind = "POLICY_VIOLATION"
	KindResourceExhaustion ErrorKind = "RESOURCE_EXHAUSTION"
	KindStateMismatch      ErrorKind = "STATE_MISMATCH"
	KindAuthorization      ErrorKind = "AUTHORIZATION"
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// Error is a rejected lending operation. Values are compared by identity, so
// callers match them with errors.Is against the sentinels below.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Policy violations
var (
	ErrCreditLimitExceeded    = newError(KindPolicyViolation, "CREDIT_LIMIT_EXCEEDED", "exceeds credit limit")
	ErrActiveLoanExists       = newError(KindPolicyViolation, "ACTIVE_LOAN_EXISTS", "active loan exists")
	ErrTooEarlyToRepay        = newError(KindPolicyViolation, "TOO_EARLY_TO_REPAY", "minimum loan duration not reached")
	ErrContractPaused         = newError(KindPolicyViolation, "CONTRACT_PAUSED", "lending is paused")
	ErrBootstrapDepositTooLow = newError(KindPolicyViolation, "BOOTSTRAP_DEPOSIT_TOO_SMALL", "first deposit is below the bootstrap minimum")
)

// Resource exhaustion
var (
	ErrInsufficientLiquidity = newError(KindResourceExhaustion, "INSUFFICIENT_LIQUIDITY", "insufficient liquidity")
	ErrPoolInsolvent         = newError(KindResourceExhaustion, "POOL_INSOLVENT", "pool has no solvent assets backing its shares")
	ErrPoolCapacityExceeded  = newError(KindResourceExhaustion, "POOL_CAPACITY_EXCEEDED", "pool balance would exceed its representable range")
)

// State mismatches
var (
	ErrNoActiveLoan       = newError(KindStateMismatch, "NO_ACTIVE_LOAN", "no active loan")
	ErrNoLoanToDefault    = newError(KindStateMismatch, "NO_LOAN_TO_DEFAULT", "no active loan to default")
	ErrNoDefaultedLoan    = newError(KindStateMismatch, "NO_DEFAULTED_LOAN", "no defaulted loan")
	ErrInsufficientShares = newError(KindStateMismatch, "INSUFFICIENT_SHARES", "insufficient shares")
	ErrInvalidTransition  = newError(KindStateMismatch, "INVALID_TRANSITION", "loan status transition not allowed")
	ErrNotPaused          = newError(KindStateMismatch, "NOT_PAUSED", "lending is not paused")
)

// Authorization and input
var (
	ErrNotOwner      = newError(KindAuthorization, "NOT_OWNER", "caller is not the owner")
	ErrInvalidAmount = newError(KindInvalidInput, "INVALID_AMOUNT", "amount must be positive")
	ErrInvalidParty  = newError(KindInvalidInput, "INVALID_ACCOUNT", "account identifier is required")
)

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf reports the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
