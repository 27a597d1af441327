package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

// AggregateGoalParams contains parameters for folding contributions
type AggregateGoalParams struct {
	Goal   models.GoalKey
	Caller common.Address
	// Version pins the circuit version; 0 uses the default
	Version uint32
	// Wait blocks until each step's callback has been applied
	Wait bool
	// All keeps stepping until every contribution is folded. Implies Wait.
	All bool
}

// AggregateStep describes one dispatched fold
type AggregateStep struct {
	Job   *JobHandle       `json:"job"`
	Folds []common.Address `json:"folds"`
	// Total is the revealed running total, set once the step has been awaited
	Total *uint64 `json:"total,omitempty"`
}

// AggregateGoalResult contains the outcome of an aggregation run
type AggregateGoalResult struct {
	Goal      *models.Goal    `json:"goal"`
	Steps     []AggregateStep `json:"steps"`
	Remaining int             `json:"remaining"`
}

// AggregateGoal folds unaggregated contributions into the goal's running
// total, one ADD_TWO job at a time.
//
// The first step of a goal adds its first two contributions. Every later
// step adds the next contribution to the current total, which the owner
// seals to the network with the goal's audience key.
type AggregateGoal struct {
	goals         GoalRepository
	contributions ContributionRepository
	keys          KeyStore
	network       ComputationNetwork
	dispatcher    *DispatchComputation
	await         *AwaitJob
	offsets       OffsetSource
	progress      ProgressSink
}

// NewAggregateGoal creates a new AggregateGoal use case
func NewAggregateGoal(
	goals GoalRepository,
	contributions ContributionRepository,
	keys KeyStore,
	network ComputationNetwork,
	dispatcher *DispatchComputation,
	await *AwaitJob,
	offsets OffsetSource,
	progress ProgressSink,
) *AggregateGoal {
	return &AggregateGoal{
		goals:         goals,
		contributions: contributions,
		keys:          keys,
		network:       network,
		dispatcher:    dispatcher,
		await:         await,
		offsets:       offsets,
		progress:      progress,
	}
}

// Execute runs one or more fold steps
func (uc *AggregateGoal) Execute(ctx context.Context, params AggregateGoalParams) (*AggregateGoalResult, error) {
	wait := params.Wait || params.All
	result := &AggregateGoalResult{}

	for {
		step, remaining, err := uc.Step(ctx, params)
		if err != nil {
			return result, err
		}
		result.Remaining = remaining
		if step == nil {
			break
		}

		if wait {
			job, err := uc.await.Wait(ctx, step.Job.Offset)
			if err != nil {
				result.Steps = append(result.Steps, *step)
				return result, err
			}
			if job.Output != nil {
				total := job.Output.U64
				step.Total = &total
			}
			result.Remaining -= len(step.Folds)
		}
		result.Steps = append(result.Steps, *step)

		if !params.All || result.Remaining == 0 {
			break
		}
	}

	goal, err := uc.goals.GetGoal(ctx, params.Goal)
	if err != nil {
		return result, err
	}
	result.Goal = goal
	return result, nil
}

// Step dispatches a single fold. It returns a nil step when there is nothing
// left to fold, along with the number of contributions still pending.
func (uc *AggregateGoal) Step(ctx context.Context, params AggregateGoalParams) (*AggregateStep, int, error) {
	goal, err := uc.goals.GetGoal(ctx, params.Goal)
	if err != nil {
		return nil, 0, err
	}
	if !goal.IsOwner(params.Caller) {
		return nil, 0, domain.ErrUnauthorized
	}
	if !goal.IsActive() {
		return nil, 0, domain.ErrGoalNotActive
	}

	all, err := uc.contributions.ListContributions(ctx, goal.Key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contributions: %w", err)
	}
	var pending []*models.Contribution
	for _, c := range all {
		if !goal.IsAggregated(c.Contributor) {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil, 0, nil
	}

	var inputs []circuit.Argument
	var folds []common.Address
	if len(goal.Aggregated) == 0 && len(pending) >= 2 {
		inputs = []circuit.Argument{
			circuit.Encrypted(pending[0].Sealed()),
			circuit.Encrypted(pending[1].Sealed()),
		}
		folds = []common.Address{pending[0].Contributor, pending[1].Contributor}
	} else {
		total, err := uc.sealTotal(ctx, goal)
		if err != nil {
			return nil, 0, err
		}
		inputs = []circuit.Argument{
			circuit.Encrypted(total),
			circuit.Encrypted(pending[0].Sealed()),
		}
		folds = []common.Address{pending[0].Contributor}
	}

	offset, err := uc.offsets.NextOffset()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to pick offset: %w", err)
	}
	nonce, err := sealedbox.RandomNonce()
	if err != nil {
		return nil, 0, err
	}

	key := goal.Key
	handle, err := uc.dispatcher.Submit(ctx, SubmitParams{
		Opcode:      circuit.OpcodeAddTwo,
		Version:     params.Version,
		Inputs:      inputs,
		AudienceKey: goal.AudienceKey,
		Nonce:       nonce,
		Offset:      offset,
		Goal:        &key,
		Purpose:     models.JobPurposeFold,
		Folds:       folds,
		BaseTotal:   goal.CurrentTotal,
	})
	if err != nil {
		return nil, 0, err
	}

	uc.progress.Info(fmt.Sprintf("Queued fold of %d contribution(s) at offset %d", len(folds), handle.Offset))
	return &AggregateStep{Job: handle, Folds: folds}, len(pending), nil
}

func (uc *AggregateGoal) sealTotal(ctx context.Context, goal *models.Goal) (circuit.Sealed, error) {
	audience, err := uc.keys.AudienceKey(ctx, goal.Key)
	if err != nil {
		return circuit.Sealed{}, fmt.Errorf("audience key for goal %s: %w", goal.Key, err)
	}
	sealer, err := sealerFor(ctx, uc.network, audience)
	if err != nil {
		return circuit.Sealed{}, err
	}
	return sealer.Seal(goal.CurrentTotal)
}
