package app

import (
	"log/slog"

	"github.com/trebuchet-org/conclave/internal/adapters"
	"github.com/trebuchet-org/conclave/internal/adapters/callbacks"
	"github.com/trebuchet-org/conclave/internal/adapters/events"
	"github.com/trebuchet-org/conclave/internal/adapters/interactive"
	"github.com/trebuchet-org/conclave/internal/adapters/network"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/config"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Registry *circuit.Registry
	Network  *adapters.Network
	Events   *events.Bus
	Progress usecase.ProgressSink
	Selector *interactive.SelectorAdapter
	store    *adapters.Store

	// Use cases
	CreateGoal          *usecase.CreateGoal
	InviteMember        *usecase.InviteMember
	AddContribution     *usecase.AddContribution
	AggregateGoal       *usecase.AggregateGoal
	CheckGoal           *usecase.CheckGoal
	RevealContributions *usecase.RevealContributions
	FinalizeGoal        *usecase.FinalizeGoal
	RequestTransfer     *usecase.RequestTransfer
	ApproveTransfer     *usecase.ApproveTransfer
	DepositToVault      *usecase.DepositToVault
	ShowVaultBalance    *usecase.ShowVaultBalance
	ShowGoal            *usecase.ShowGoal
	ListGoals           *usecase.ListGoals
	ListJobs            *usecase.ListJobs
	AwaitJob            *usecase.AwaitJob
	HandleCallback      *usecase.HandleCallback

	// HTTP surfaces
	CallbackServer *callbacks.Server
	ClusterServer  *network.ClusterServer
}

// UseCases bundles the use cases handed to NewApp
type UseCases struct {
	CreateGoal          *usecase.CreateGoal
	InviteMember        *usecase.InviteMember
	AddContribution     *usecase.AddContribution
	AggregateGoal       *usecase.AggregateGoal
	CheckGoal           *usecase.CheckGoal
	RevealContributions *usecase.RevealContributions
	FinalizeGoal        *usecase.FinalizeGoal
	RequestTransfer     *usecase.RequestTransfer
	ApproveTransfer     *usecase.ApproveTransfer
	DepositToVault      *usecase.DepositToVault
	ShowVaultBalance    *usecase.ShowVaultBalance
	ShowGoal            *usecase.ShowGoal
	ListGoals           *usecase.ListGoals
	ListJobs            *usecase.ListJobs
	AwaitJob            *usecase.AwaitJob
	HandleCallback      *usecase.HandleCallback
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	registry *circuit.Registry,
	store *adapters.Store,
	net *adapters.Network,
	bus *events.Bus,
	sink usecase.ProgressSink,
	selector *interactive.SelectorAdapter,
	uc UseCases,
	callbackServer *callbacks.Server,
	clusterServer *network.ClusterServer,
) (*App, error) {
	return &App{
		Config:   cfg,
		Log:      log,
		Registry: registry,
		Network:  net,
		Events:   bus,
		Progress: sink,
		Selector: selector,
		store:    store,

		CreateGoal:          uc.CreateGoal,
		InviteMember:        uc.InviteMember,
		AddContribution:     uc.AddContribution,
		AggregateGoal:       uc.AggregateGoal,
		CheckGoal:           uc.CheckGoal,
		RevealContributions: uc.RevealContributions,
		FinalizeGoal:        uc.FinalizeGoal,
		RequestTransfer:     uc.RequestTransfer,
		ApproveTransfer:     uc.ApproveTransfer,
		DepositToVault:      uc.DepositToVault,
		ShowVaultBalance:    uc.ShowVaultBalance,
		ShowGoal:            uc.ShowGoal,
		ListGoals:           uc.ListGoals,
		ListJobs:            uc.ListJobs,
		AwaitJob:            uc.AwaitJob,
		HandleCallback:      uc.HandleCallback,

		CallbackServer: callbackServer,
		ClusterServer:  clusterServer,
	}, nil
}

// Close waits for in-process result deliveries and releases the store
func (a *App) Close() {
	a.Network.Drain()
	a.store.Close()
}
