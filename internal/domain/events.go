package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

type EventType string

const (
	EventTypeGoalCreated           EventType = "GoalCreated"
	EventTypeMemberInvited         EventType = "MemberInvited"
	EventTypeContributionAdded     EventType = "ContributionAdded"
	EventTypeAggregationTotal      EventType = "AggregationTotal"
	EventTypeGoalCheckResult       EventType = "GoalCheckResult"
	EventTypeContributionsRevealed EventType = "ContributionsRevealed"
	EventTypeComputationAborted    EventType = "ComputationAborted"
	EventTypeGoalFinalized         EventType = "GoalFinalized"
	EventTypeTransferRequested     EventType = "TransferRequested"
	EventTypeTransferCompleted     EventType = "TransferCompleted"
	EventTypeVaultDeposited        EventType = "VaultDeposited"
)

// Event is the interface for all events emitted at protocol boundaries
type Event interface {
	EventName() string
	String() string
}

// GoalCreatedEvent is emitted when a goal is created
type GoalCreatedEvent struct {
	GoalID       models.GoalKey `json:"goalId"`
	Name         string         `json:"name"`
	TargetAmount uint64         `json:"targetAmount"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
}

func (GoalCreatedEvent) EventName() string { return string(EventTypeGoalCreated) }

func (e *GoalCreatedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, name=%q, target=%d", e.EventName(), e.GoalID, e.Name, e.TargetAmount)
}

// MemberInvitedEvent is emitted when the owner adds a member
type MemberInvitedEvent struct {
	GoalID models.GoalKey `json:"goalId"`
	Member common.Address `json:"member"`
}

func (MemberInvitedEvent) EventName() string { return string(EventTypeMemberInvited) }

func (e *MemberInvitedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, member=%s", e.EventName(), e.GoalID, e.Member.Hex())
}

// ContributionAddedEvent is emitted when a ciphertext is recorded. It never
// carries the amount.
type ContributionAddedEvent struct {
	GoalID      models.GoalKey `json:"goalId"`
	Contributor common.Address `json:"contributor"`
	Timestamp   time.Time      `json:"timestamp"`
}

func (ContributionAddedEvent) EventName() string { return string(EventTypeContributionAdded) }

func (e *ContributionAddedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, contributor=%s", e.EventName(), e.GoalID, e.Contributor.Hex())
}

// AggregationTotalEvent carries a revealed pairwise sum
type AggregationTotalEvent struct {
	Total  uint64          `json:"total"`
	GoalID *models.GoalKey `json:"goalId,omitempty"`
	Offset uint64          `json:"offset"`
}

func (AggregationTotalEvent) EventName() string { return string(EventTypeAggregationTotal) }

func (e *AggregationTotalEvent) String() string {
	return fmt.Sprintf("%s: offset=%d, total=%d", e.EventName(), e.Offset, e.Total)
}

// GoalCheckResultEvent carries the outcome of a threshold check
type GoalCheckResultEvent struct {
	Reached bool            `json:"reached"`
	GoalID  *models.GoalKey `json:"goalId,omitempty"`
	Offset  uint64          `json:"offset"`
}

func (GoalCheckResultEvent) EventName() string { return string(EventTypeGoalCheckResult) }

func (e *GoalCheckResultEvent) String() string {
	return fmt.Sprintf("%s: offset=%d, reached=%t", e.EventName(), e.Offset, e.Reached)
}

// ContributionsRevealedEvent carries individually revealed amounts in input
// order, sealed to the audience key of the job.
type ContributionsRevealedEvent struct {
	GoalID       *models.GoalKey      `json:"goalId,omitempty"`
	Offset       uint64               `json:"offset"`
	Contributors []common.Address     `json:"contributors,omitempty"`
	AudienceKey  circuit.PublicKey    `json:"audienceKey"`
	Nonce        circuit.Nonce        `json:"nonce"`
	Amounts      []circuit.Ciphertext `json:"amounts"`
}

func (ContributionsRevealedEvent) EventName() string { return string(EventTypeContributionsRevealed) }

func (e *ContributionsRevealedEvent) String() string {
	return fmt.Sprintf("%s: offset=%d, values=%d", e.EventName(), e.Offset, len(e.Amounts))
}

// ComputationAbortedEvent is emitted when a job resolves as aborted
type ComputationAbortedEvent struct {
	Offset uint64          `json:"offset"`
	GoalID *models.GoalKey `json:"goalId,omitempty"`
	Reason string          `json:"reason"`
}

func (ComputationAbortedEvent) EventName() string { return string(EventTypeComputationAborted) }

func (e *ComputationAbortedEvent) String() string {
	return fmt.Sprintf("%s: offset=%d, reason=%s", e.EventName(), e.Offset, e.Reason)
}

// GoalFinalizedEvent is emitted on the Active -> Finalized transition
type GoalFinalizedEvent struct {
	GoalID      models.GoalKey `json:"goalId"`
	FinalizedAt time.Time      `json:"finalizedAt"`
	GoalReached bool           `json:"goalReached"`
}

func (GoalFinalizedEvent) EventName() string { return string(EventTypeGoalFinalized) }

func (e *GoalFinalizedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, reached=%t", e.EventName(), e.GoalID, e.GoalReached)
}

// TransferRequestedEvent is emitted when the owner fills the transfer slot
type TransferRequestedEvent struct {
	GoalID    models.GoalKey `json:"goalId"`
	Recipient common.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

func (TransferRequestedEvent) EventName() string { return string(EventTypeTransferRequested) }

func (e *TransferRequestedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, recipient=%s, amount=%d", e.EventName(), e.GoalID, e.Recipient.Hex(), e.Amount)
}

// TransferCompletedEvent is emitted once vault funds have moved
type TransferCompletedEvent struct {
	GoalID    models.GoalKey `json:"goalId"`
	Recipient common.Address `json:"recipient"`
	Amount    uint64         `json:"amount"`
}

func (TransferCompletedEvent) EventName() string { return string(EventTypeTransferCompleted) }

func (e *TransferCompletedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, recipient=%s, amount=%d", e.EventName(), e.GoalID, e.Recipient.Hex(), e.Amount)
}

// VaultDepositedEvent is emitted when funds are credited to a goal vault
type VaultDepositedEvent struct {
	GoalID  models.GoalKey `json:"goalId"`
	Vault   common.Address `json:"vault"`
	Amount  uint64         `json:"amount"`
	Balance uint64         `json:"balance"`
}

func (VaultDepositedEvent) EventName() string { return string(EventTypeVaultDeposited) }

func (e *VaultDepositedEvent) String() string {
	return fmt.Sprintf("%s: goal=%s, amount=%d, balance=%d", e.EventName(), e.GoalID, e.Amount, e.Balance)
}
