package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// VaultBalance is a goal vault account and the funds it holds
type VaultBalance struct {
	Goal    models.GoalKey `json:"goal"`
	Vault   common.Address `json:"vault"`
	Balance uint64         `json:"balance"`
}

// DepositToVaultParams contains parameters for funding a goal vault
type DepositToVaultParams struct {
	Goal   models.GoalKey
	Amount uint64
}

// DepositToVault credits plaintext funds to a goal's vault account. The
// ledger is an external substrate; this is the reference way to fund it.
type DepositToVault struct {
	goals  GoalRepository
	ledger Ledger
	events EventSink
}

// NewDepositToVault creates a new DepositToVault use case
func NewDepositToVault(goals GoalRepository, ledger Ledger, events EventSink) *DepositToVault {
	return &DepositToVault{goals: goals, ledger: ledger, events: events}
}

// Execute credits the vault and returns the new balance
func (uc *DepositToVault) Execute(ctx context.Context, params DepositToVaultParams) (*VaultBalance, error) {
	if params.Amount == 0 {
		return nil, domain.BadArgumentsf("deposit amount must be greater than zero")
	}
	goal, err := uc.goals.GetGoal(ctx, params.Goal)
	if err != nil {
		return nil, err
	}

	vault := goal.Key.VaultAccount()
	balance, err := uc.ledger.Credit(ctx, vault, params.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit vault: %w", err)
	}

	if err := uc.events.Emit(ctx, &domain.VaultDepositedEvent{
		GoalID:  goal.Key,
		Vault:   vault,
		Amount:  params.Amount,
		Balance: balance,
	}); err != nil {
		return nil, err
	}
	return &VaultBalance{Goal: goal.Key, Vault: vault, Balance: balance}, nil
}

// ShowVaultBalance reads a goal vault's balance
type ShowVaultBalance struct {
	goals  GoalRepository
	ledger Ledger
}

// NewShowVaultBalance creates a new ShowVaultBalance use case
func NewShowVaultBalance(goals GoalRepository, ledger Ledger) *ShowVaultBalance {
	return &ShowVaultBalance{goals: goals, ledger: ledger}
}

// Run returns the vault balance of a goal
func (uc *ShowVaultBalance) Run(ctx context.Context, key models.GoalKey) (*VaultBalance, error) {
	goal, err := uc.goals.GetGoal(ctx, key)
	if err != nil {
		return nil, err
	}
	vault := goal.Key.VaultAccount()
	balance, err := uc.ledger.Balance(ctx, vault)
	if err != nil {
		return nil, err
	}
	return &VaultBalance{Goal: goal.Key, Vault: vault, Balance: balance}, nil
}
