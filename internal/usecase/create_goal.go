package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

// CreateGoalParams contains parameters for creating a goal
type CreateGoalParams struct {
	Owner common.Address
	// ID is chosen by the owner; 0 picks the next free id
	ID           uint64
	Name         string
	TargetAmount uint64
	Deadline     *time.Time
}

// CreateGoal registers a new savings goal owned by the caller
type CreateGoal struct {
	goals    GoalRepository
	keys     KeyStore
	events   EventSink
	clock    Clock
	progress ProgressSink
}

// NewCreateGoal creates a new CreateGoal use case
func NewCreateGoal(goals GoalRepository, keys KeyStore, events EventSink, clock Clock, progress ProgressSink) *CreateGoal {
	return &CreateGoal{
		goals:    goals,
		keys:     keys,
		events:   events,
		clock:    clock,
		progress: progress,
	}
}

// Execute validates the parameters and stores the goal with the owner as its
// first member. A fresh audience key pair is generated for the owner.
func (uc *CreateGoal) Execute(ctx context.Context, params CreateGoalParams) (*models.Goal, error) {
	now := uc.clock.Now()

	if params.Owner == (common.Address{}) {
		return nil, domain.BadArgumentsf("owner is required")
	}
	if utf8.RuneCountInString(params.Name) > models.MaxGoalNameLength {
		return nil, domain.ErrNameTooLong
	}
	if params.TargetAmount == 0 {
		return nil, domain.ErrInvalidTargetAmount
	}
	if params.Deadline != nil && !params.Deadline.After(now) {
		return nil, domain.ErrInvalidDeadline
	}

	id := params.ID
	if id == 0 {
		next, err := uc.nextID(ctx, params.Owner)
		if err != nil {
			return nil, err
		}
		id = next
	}

	audience, err := sealedbox.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate audience key: %w", err)
	}

	var deadline *time.Time
	if params.Deadline != nil {
		d := params.Deadline.UTC()
		deadline = &d
	}

	goal := &models.Goal{
		Key:          models.GoalKey{Owner: params.Owner, ID: id},
		Name:         params.Name,
		TargetAmount: params.TargetAmount,
		Deadline:     deadline,
		Members:      []common.Address{params.Owner},
		Status:       models.GoalStatusActive,
		AudienceKey:  audience.Public,
		Aggregated:   []common.Address{},
		CreatedAt:    now,
	}

	if err := uc.goals.CreateGoal(ctx, goal); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("goal %s: %w", goal.Key, err)
		}
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	if err := uc.keys.SaveAudienceKey(ctx, goal.Key, audience); err != nil {
		return nil, fmt.Errorf("goal created but audience key could not be saved: %w", err)
	}

	if err := uc.events.Emit(ctx, &domain.GoalCreatedEvent{
		GoalID:       goal.Key,
		Name:         goal.Name,
		TargetAmount: goal.TargetAmount,
		Deadline:     goal.Deadline,
	}); err != nil {
		return nil, err
	}

	uc.progress.Info(fmt.Sprintf("Created goal %s", goal.Key))
	return goal, nil
}

func (uc *CreateGoal) nextID(ctx context.Context, owner common.Address) (uint64, error) {
	existing, err := uc.goals.ListGoals(ctx, domain.GoalFilter{Owner: owner})
	if err != nil {
		return 0, fmt.Errorf("failed to list goals: %w", err)
	}
	var max uint64
	for _, g := range existing {
		if g.Key.ID > max {
			max = g.Key.ID
		}
	}
	return max + 1, nil
}
