package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// RequestTransferParams contains parameters for requesting a payout
type RequestTransferParams struct {
	Goal      models.GoalKey
	Caller    common.Address
	Recipient common.Address
	Amount    uint64
}

// RequestTransfer fills the goal's transfer slot. A pending request is
// overwritten; an approved one is final.
type RequestTransfer struct {
	goals     GoalRepository
	transfers TransferRepository
	events    EventSink
	clock     Clock
}

// NewRequestTransfer creates a new RequestTransfer use case
func NewRequestTransfer(goals GoalRepository, transfers TransferRepository, events EventSink, clock Clock) *RequestTransfer {
	return &RequestTransfer{goals: goals, transfers: transfers, events: events, clock: clock}
}

// Execute records the transfer request
func (uc *RequestTransfer) Execute(ctx context.Context, params RequestTransferParams) (*models.TransferRequest, error) {
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
	if params.Amount == 0 {
		return nil, domain.BadArgumentsf("transfer amount must be greater than zero")
	}
	if params.Recipient == (common.Address{}) {
		return nil, domain.BadArgumentsf("recipient is required")
	}

	existing, err := uc.transfers.GetTransferRequest(ctx, goal.Key)
	switch {
	case err == nil && existing.Approved:
		return nil, domain.ErrTransferAlreadyApproved
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to read transfer request: %w", err)
	}

	request := &models.TransferRequest{
		Goal:        goal.Key,
		Recipient:   params.Recipient,
		Amount:      params.Amount,
		RequestedAt: uc.clock.Now(),
	}
	if err := uc.transfers.SaveTransferRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save transfer request: %w", err)
	}

	if err := uc.events.Emit(ctx, &domain.TransferRequestedEvent{
		GoalID:    goal.Key,
		Recipient: request.Recipient,
		Amount:    request.Amount,
	}); err != nil {
		return nil, err
	}
	return request, nil
}
