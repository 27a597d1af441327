//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/conclave/internal/adapters"
	"github.com/trebuchet-org/conclave/internal/config"
	"github.com/trebuchet-org/conclave/internal/logging"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewDispatchComputation,
		usecase.NewHandleCallback,
		usecase.NewAwaitJob,
		usecase.NewCreateGoal,
		usecase.NewInviteMember,
		usecase.NewAddContribution,
		usecase.NewAggregateGoal,
		usecase.NewCheckGoal,
		usecase.NewRevealContributions,
		usecase.NewFinalizeGoal,
		usecase.NewRequestTransfer,
		usecase.NewApproveTransfer,
		usecase.NewDepositToVault,
		usecase.NewShowVaultBalance,
		usecase.NewShowGoal,
		usecase.NewListGoals,
		usecase.NewListJobs,
		wire.Struct(new(UseCases), "*"),

		// App
		NewApp,
	)
	return nil, nil
}
