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

// AddContributionParams contains parameters for recording a contribution.
// The amount is already sealed to the computation network.
type AddContributionParams struct {
	Goal        models.GoalKey
	Contributor common.Address
	Sealed      circuit.Sealed
}

// AddContribution records a member's encrypted contribution
type AddContribution struct {
	goals         GoalRepository
	contributions ContributionRepository
	events        EventSink
	clock         Clock
}

// NewAddContribution creates a new AddContribution use case
func NewAddContribution(goals GoalRepository, contributions ContributionRepository, events EventSink, clock Clock) *AddContribution {
	return &AddContribution{
		goals:         goals,
		contributions: contributions,
		events:        events,
		clock:         clock,
	}
}

// Execute stores the ciphertext in the contributor's slot
func (uc *AddContribution) Execute(ctx context.Context, params AddContributionParams) (*models.Contribution, error) {
	if params.Sealed.PublicKey.IsZero() {
		return nil, domain.BadArgumentsf("contribution has no public key")
	}
	if params.Sealed.Nonce.IsZero() {
		return nil, domain.BadArgumentsf("contribution has no nonce")
	}

	goal, err := uc.goals.GetGoal(ctx, params.Goal)
	if err != nil {
		return nil, err
	}
	if !goal.IsActive() {
		return nil, domain.ErrGoalNotActive
	}
	if !goal.IsMember(params.Contributor) {
		return nil, fmt.Errorf("%w: %s is not a member of goal %s", domain.ErrUnauthorized, params.Contributor.Hex(), goal.Key)
	}

	contribution := &models.Contribution{
		Goal:        goal.Key,
		Contributor: params.Contributor,
		Ciphertext:  params.Sealed.Ciphertext,
		Nonce:       params.Sealed.Nonce,
		PublicKey:   params.Sealed.PublicKey,
		Timestamp:   uc.clock.Now(),
	}
	if err := uc.contributions.CreateContribution(ctx, contribution); err != nil {
		return nil, err
	}

	if err := uc.events.Emit(ctx, &domain.ContributionAddedEvent{
		GoalID:      goal.Key,
		Contributor: contribution.Contributor,
		Timestamp:   contribution.Timestamp,
	}); err != nil {
		return nil, err
	}
	return contribution, nil
}

// SealAmount encrypts amount to the computation network under a fresh
// contributor key, the way a member's client prepares a contribution
func SealAmount(ctx context.Context, network ComputationNetwork, amount uint64) (circuit.Sealed, error) {
	keys, err := sealedbox.GenerateKey(nil)
	if err != nil {
		return circuit.Sealed{}, err
	}
	sealer, err := sealerFor(ctx, network, keys)
	if err != nil {
		return circuit.Sealed{}, err
	}
	return sealer.Seal(amount)
}
