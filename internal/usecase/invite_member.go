package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// InviteMemberParams contains parameters for inviting a member
type InviteMemberParams struct {
	Goal   models.GoalKey
	Caller common.Address
	Member common.Address
}

// InviteMember adds a member to a goal
type InviteMember struct {
	goals  GoalRepository
	events EventSink
}

// NewInviteMember creates a new InviteMember use case
func NewInviteMember(goals GoalRepository, events EventSink) *InviteMember {
	return &InviteMember{goals: goals, events: events}
}

// Execute appends member to the goal's member list
func (uc *InviteMember) Execute(ctx context.Context, params InviteMemberParams) (*models.Goal, error) {
	if params.Member == (common.Address{}) {
		return nil, domain.BadArgumentsf("member address is required")
	}

	goal, err := uc.goals.UpdateGoal(ctx, params.Goal, func(goal *models.Goal) error {
		if !goal.IsOwner(params.Caller) {
			return domain.ErrUnauthorized
		}
		if goal.IsMember(params.Member) {
			return domain.ErrMemberAlreadyExists
		}
		if len(goal.Members) >= models.MaxMembers {
			return domain.ErrMaxMembersReached
		}
		goal.Members = append(goal.Members, params.Member)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.events.Emit(ctx, &domain.MemberInvitedEvent{GoalID: goal.Key, Member: params.Member}); err != nil {
		return nil, err
	}
	return goal, nil
}
