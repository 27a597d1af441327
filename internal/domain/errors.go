package domain

import (
	"errors"
	"fmt"
)

// Code is the stable, machine-readable identifier of a domain error
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Validation
	CodeNameTooLong         Code = "NAME_TOO_LONG"
	CodeInvalidTargetAmount Code = "INVALID_TARGET_AMOUNT"
	CodeInvalidDeadline     Code = "INVALID_DEADLINE"
	CodeBadArguments        Code = "BAD_ARGUMENTS"

	// Authorization
	CodeUnauthorized Code = "UNAUTHORIZED"

	// Lifecycle
	CodeGoalNotActive     Code = "GOAL_NOT_ACTIVE"
	CodeAlreadyFinalized  Code = "ALREADY_FINALIZED"
	CodeGoalNotFinalized  Code = "GOAL_NOT_FINALIZED"
	CodeCannotFinalizeYet Code = "CANNOT_FINALIZE_YET"

	// Capacity / duplication
	CodeMemberAlreadyExists     Code = "MEMBER_ALREADY_EXISTS"
	CodeMaxMembersReached       Code = "MAX_MEMBERS_REACHED"
	CodeDuplicateJobOffset      Code = "DUPLICATE_JOB_OFFSET"
	CodeStaleJob                Code = "STALE_JOB"
	CodeTransferAlreadyApproved Code = "TRANSFER_ALREADY_APPROVED"
	CodeContributionExists      Code = "CONTRIBUTION_EXISTS"
	CodeAggregationInFlight     Code = "AGGREGATION_IN_FLIGHT"

	// Computation
	CodeAbortedComputation Code = "ABORTED_COMPUTATION"

	// Resource
	CodeInsufficientVaultBalance Code = "INSUFFICIENT_VAULT_BALANCE"

	// Lookup
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// Error is a domain error with a stable code
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = newError(CodeNotFound, "not found")

	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = newError(CodeAlreadyExists, "already exists")

	ErrNameTooLong         = newError(CodeNameTooLong, "goal name is too long (max 50 characters)")
	ErrInvalidTargetAmount = newError(CodeInvalidTargetAmount, "target amount must be greater than zero")
	ErrInvalidDeadline     = newError(CodeInvalidDeadline, "deadline must be in the future")
	ErrBadArguments        = newError(CodeBadArguments, "bad arguments")

	ErrUnauthorized = newError(CodeUnauthorized, "only the goal owner can perform this action")

	ErrGoalNotActive     = newError(CodeGoalNotActive, "goal is not active")
	ErrAlreadyFinalized  = newError(CodeAlreadyFinalized, "goal already finalized")
	ErrGoalNotFinalized  = newError(CodeGoalNotFinalized, "goal not finalized yet")
	ErrCannotFinalizeYet = newError(CodeCannotFinalizeYet, "cannot finalize yet - goal not reached and deadline not passed")

	ErrMemberAlreadyExists     = newError(CodeMemberAlreadyExists, "member already exists in this goal")
	ErrMaxMembersReached       = newError(CodeMaxMembersReached, "maximum number of members reached (10)")
	ErrDuplicateJobOffset      = newError(CodeDuplicateJobOffset, "job offset is already queued")
	ErrStaleJob                = newError(CodeStaleJob, "job is not outstanding")
	ErrTransferAlreadyApproved = newError(CodeTransferAlreadyApproved, "transfer already approved")
	ErrContributionExists      = newError(CodeContributionExists, "contributor already contributed to this goal")
	ErrAggregationInFlight     = newError(CodeAggregationInFlight, "an aggregation step is already queued for this goal")

	// ErrAbortedComputation covers network failures and failed attestation alike
	ErrAbortedComputation = newError(CodeAbortedComputation, "computation aborted")

	ErrInsufficientVaultBalance = newError(CodeInsufficientVaultBalance, "insufficient vault balance")
)

// CodeOf extracts the domain code from an error chain
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

// BadArgumentsf wraps ErrBadArguments with detail
func BadArgumentsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadArguments, fmt.Sprintf(format, args...))
}
