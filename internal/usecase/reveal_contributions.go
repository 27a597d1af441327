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

// RevealContributionsParams contains parameters for revealing amounts
type RevealContributionsParams struct {
	Goal    models.GoalKey
	Caller  common.Address
	Version uint32
	Wait    bool
}

// RevealedAmount is one decrypted contribution
type RevealedAmount struct {
	Contributor common.Address `json:"contributor"`
	Amount      uint64         `json:"amount"`
}

// RevealContributionsResult contains the dispatched job and, when awaited,
// the decrypted amounts in contribution order.
type RevealContributionsResult struct {
	Job     *JobHandle       `json:"job,omitempty"`
	Amounts []RevealedAmount `json:"amounts"`
}

// RevealContributions re-encrypts each contribution of a finalized goal to
// the owner's audience key. Inputs are padded with sealed zeros up to the
// smallest registered REVEAL_N arity that fits.
type RevealContributions struct {
	goals         GoalRepository
	contributions ContributionRepository
	keys          KeyStore
	registry      *circuit.Registry
	network       ComputationNetwork
	dispatcher    *DispatchComputation
	await         *AwaitJob
	jobs          JobTable
	offsets       OffsetSource
}

// NewRevealContributions creates a new RevealContributions use case
func NewRevealContributions(
	goals GoalRepository,
	contributions ContributionRepository,
	keys KeyStore,
	registry *circuit.Registry,
	network ComputationNetwork,
	dispatcher *DispatchComputation,
	await *AwaitJob,
	jobs JobTable,
	offsets OffsetSource,
) *RevealContributions {
	return &RevealContributions{
		goals:         goals,
		contributions: contributions,
		keys:          keys,
		registry:      registry,
		network:       network,
		dispatcher:    dispatcher,
		await:         await,
		jobs:          jobs,
		offsets:       offsets,
	}
}

// Execute submits a REVEAL_N job for the goal's contributions
func (uc *RevealContributions) Execute(ctx context.Context, params RevealContributionsParams) (*RevealContributionsResult, error) {
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

	contributions, err := uc.contributions.ListContributions(ctx, goal.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	if len(contributions) == 0 {
		return nil, domain.BadArgumentsf("goal %s has no contributions", goal.Key)
	}

	arity := 0
	for _, n := range uc.registry.Arities(circuit.OpcodeRevealN, params.Version) {
		if n >= len(contributions) {
			arity = n
			break
		}
	}
	if arity == 0 {
		return nil, domain.BadArgumentsf("no reveal circuit takes %d inputs", len(contributions))
	}

	audience, err := uc.keys.AudienceKey(ctx, goal.Key)
	if err != nil {
		return nil, fmt.Errorf("audience key for goal %s: %w", goal.Key, err)
	}
	sealer, err := sealerFor(ctx, uc.network, audience)
	if err != nil {
		return nil, err
	}

	inputs := make([]circuit.Argument, 0, arity)
	contributors := make([]common.Address, 0, len(contributions))
	for _, c := range contributions {
		inputs = append(inputs, circuit.Encrypted(c.Sealed()))
		contributors = append(contributors, c.Contributor)
	}
	for len(inputs) < arity {
		zero, err := sealer.Seal(0)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, circuit.Encrypted(zero))
	}

	nonce, err := sealedbox.RandomNonce()
	if err != nil {
		return nil, err
	}
	offset, err := uc.offsets.NextOffset()
	if err != nil {
		return nil, fmt.Errorf("failed to pick offset: %w", err)
	}

	key := goal.Key
	handle, err := uc.dispatcher.Submit(ctx, SubmitParams{
		Opcode:       circuit.OpcodeRevealN,
		Version:      params.Version,
		Inputs:       inputs,
		AudienceKey:  goal.AudienceKey,
		Nonce:        nonce,
		Offset:       offset,
		Goal:         &key,
		Purpose:      models.JobPurposeReveal,
		Contributors: contributors,
	})
	if err != nil {
		return nil, err
	}

	result := &RevealContributionsResult{Job: handle}
	if !params.Wait {
		return result, nil
	}
	job, err := uc.await.Wait(ctx, handle.Offset)
	if err != nil {
		return result, err
	}
	result.Amounts, err = uc.Open(ctx, job)
	return result, err
}

// Open decrypts the output of a completed reveal job with the goal's
// audience key. Padding values are dropped.
func (uc *RevealContributions) Open(ctx context.Context, job *models.ComputationJob) ([]RevealedAmount, error) {
	if job.Purpose != models.JobPurposeReveal || job.Goal == nil {
		return nil, domain.BadArgumentsf("job %d is not a reveal", job.Offset)
	}
	if job.Status != models.JobStatusCompleted || job.Output == nil {
		return nil, domain.BadArgumentsf("job %d has no output", job.Offset)
	}
	if len(job.Output.Sealed) < len(job.Contributors) {
		return nil, domain.BadArgumentsf("job %d returned %d values for %d contributors", job.Offset, len(job.Output.Sealed), len(job.Contributors))
	}

	audience, err := uc.keys.AudienceKey(ctx, *job.Goal)
	if err != nil {
		return nil, fmt.Errorf("audience key for goal %s: %w", job.Goal, err)
	}
	sealer, err := sealerFor(ctx, uc.network, audience)
	if err != nil {
		return nil, err
	}
	values, err := sealer.OpenVector(job.Nonce, job.Output.Sealed[:len(job.Contributors)])
	if err != nil {
		return nil, fmt.Errorf("failed to open reveal output: %w", err)
	}

	out := make([]RevealedAmount, len(values))
	for i, v := range values {
		out[i] = RevealedAmount{Contributor: job.Contributors[i], Amount: v}
	}
	return out, nil
}

// OpenOffset loads a reveal job by offset and decrypts it
func (uc *RevealContributions) OpenOffset(ctx context.Context, offset uint64) ([]RevealedAmount, error) {
	job, err := uc.jobs.GetJob(ctx, offset)
	if err != nil {
		return nil, err
	}
	return uc.Open(ctx, job)
}
