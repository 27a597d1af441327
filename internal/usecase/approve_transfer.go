package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// ApproveTransferParams contains parameters for approving a payout
type ApproveTransferParams struct {
	Goal   models.GoalKey
	Caller common.Address
}

// ApproveTransfer releases vault funds for the goal's pending transfer
// request. A request is approved at most once; the store enforces that
// across every process sharing it.
type ApproveTransfer struct {
	goals     GoalRepository
	transfers TransferRepository
	events    EventSink
	clock     Clock
}

// NewApproveTransfer creates a new ApproveTransfer use case
func NewApproveTransfer(goals GoalRepository, transfers TransferRepository, events EventSink, clock Clock) *ApproveTransfer {
	return &ApproveTransfer{goals: goals, transfers: transfers, events: events, clock: clock}
}

// Execute moves the requested amount from the vault to the recipient
func (uc *ApproveTransfer) Execute(ctx context.Context, params ApproveTransferParams) (*models.TransferRequest, error) {
	goal, err := uc.goals.GetGoal(ctx, params.Goal)
	if err != nil {
		return nil, err
	}
	if !goal.IsOwner(params.Caller) {
		return nil, domain.ErrUnauthorized
	}
	if !goal.IsFinalized() {
		return nil, domain.ErrGoalNotFinalized
	}

	request, err := uc.transfers.ApproveTransferRequest(ctx, goal.Key, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.events.Emit(ctx, &domain.TransferCompletedEvent{
		GoalID:    goal.Key,
		Recipient: request.Recipient,
		Amount:    request.Amount,
	}); err != nil {
		return nil, err
	}
	return request, nil
}
