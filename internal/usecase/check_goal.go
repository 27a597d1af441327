package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// CheckGoalParams contains parameters for a threshold check
type CheckGoalParams struct {
	Goal    models.GoalKey
	Caller  common.Address
	Version uint32
	Wait    bool
}

// CheckGoalResult contains the dispatched job and, when awaited, the answer
type CheckGoalResult struct {
	Job     *JobHandle `json:"job,omitempty"`
	Reached *bool      `json:"reached,omitempty"`
}

// CheckGoal asks the network whether the goal's total has met its target
// without revealing the total itself.
type CheckGoal struct {
	goals      GoalRepository
	keys       KeyStore
	network    ComputationNetwork
	dispatcher *DispatchComputation
	await      *AwaitJob
	offsets    OffsetSource
}

// NewCheckGoal creates a new CheckGoal use case
func NewCheckGoal(
	goals GoalRepository,
	keys KeyStore,
	network ComputationNetwork,
	dispatcher *DispatchComputation,
	await *AwaitJob,
	offsets OffsetSource,
) *CheckGoal {
	return &CheckGoal{
		goals:      goals,
		keys:       keys,
		network:    network,
		dispatcher: dispatcher,
		await:      await,
		offsets:    offsets,
	}
}

// Execute submits a THRESHOLD_CHECK job for the goal
func (uc *CheckGoal) Execute(ctx context.Context, params CheckGoalParams) (*CheckGoalResult, error) {
	goal, err := uc.goals.GetGoal(ctx, params.Goal)
	if err != nil {
		return nil, err
	}
	if !goal.IsOwner(params.Caller) {
		return nil, domain.ErrUnauthorized
	}

	audience, err := uc.keys.AudienceKey(ctx, goal.Key)
	if err != nil {
		return nil, fmt.Errorf("audience key for goal %s: %w", goal.Key, err)
	}
	sealer, err := sealerFor(ctx, uc.network, audience)
	if err != nil {
		return nil, err
	}
	total, err := sealer.Seal(goal.CurrentTotal)
	if err != nil {
		return nil, err
	}

	offset, err := uc.offsets.NextOffset()
	if err != nil {
		return nil, fmt.Errorf("failed to pick offset: %w", err)
	}

	key := goal.Key
	handle, err := uc.dispatcher.Submit(ctx, SubmitParams{
		Opcode:      circuit.OpcodeThresholdCheck,
		Version:     params.Version,
		Inputs:      []circuit.Argument{circuit.Encrypted(total), circuit.Plaintext(goal.TargetAmount)},
		AudienceKey: goal.AudienceKey,
		Nonce:       total.Nonce,
		Offset:      offset,
		Goal:        &key,
		Purpose:     models.JobPurposeCheck,
	})
	if err != nil {
		return nil, err
	}

	result := &CheckGoalResult{Job: handle}
	if !params.Wait {
		return result, nil
	}

	job, err := uc.await.Wait(ctx, handle.Offset)
	if err != nil {
		return result, err
	}
	if job.Output != nil {
		reached := job.Output.Bool
		result.Reached = &reached
	}
	return result, nil
}
