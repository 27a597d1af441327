package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// FinalizeGoalParams contains parameters for finalizing a goal
type FinalizeGoalParams struct {
	Goal   models.GoalKey
	Caller common.Address
}

// FinalizeGoalResult contains the finalized goal and whether the target was met
type FinalizeGoalResult struct {
	Goal        *models.Goal `json:"goal"`
	GoalReached bool         `json:"goalReached"`
}

// FinalizeGoal moves a goal from Active to Finalized once its target is met
// or its deadline has passed. It reads only the last recorded total and never
// queries the network.
type FinalizeGoal struct {
	goals  GoalRepository
	events EventSink
	clock  Clock
}

// NewFinalizeGoal creates a new FinalizeGoal use case
func NewFinalizeGoal(goals GoalRepository, events EventSink, clock Clock) *FinalizeGoal {
	return &FinalizeGoal{goals: goals, events: events, clock: clock}
}

// Execute finalizes the goal
func (uc *FinalizeGoal) Execute(ctx context.Context, params FinalizeGoalParams) (*FinalizeGoalResult, error) {
	now := uc.clock.Now()
	var reached bool

	goal, err := uc.goals.UpdateGoal(ctx, params.Goal, func(goal *models.Goal) error {
		if !goal.IsOwner(params.Caller) {
			return domain.ErrUnauthorized
		}
		if goal.IsFinalized() {
			return domain.ErrAlreadyFinalized
		}
		reached = goal.TargetReached()
		if !reached && !goal.DeadlinePassed(now) {
			return domain.ErrCannotFinalizeYet
		}
		goal.Status = models.GoalStatusFinalized
		goal.FinalizedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.events.Emit(ctx, &domain.GoalFinalizedEvent{
		GoalID:      goal.Key,
		FinalizedAt: now,
		GoalReached: reached,
	}); err != nil {
		return nil, err
	}

	return &FinalizeGoalResult{Goal: goal, GoalReached: reached}, nil
}
