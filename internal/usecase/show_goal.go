package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// GoalDetails is everything known about one goal
type GoalDetails struct {
	Goal          *models.Goal             `json:"goal"`
	Contributions []*models.Contribution   `json:"contributions"`
	Transfer      *models.TransferRequest  `json:"transfer,omitempty"`
	Vault         *VaultBalance            `json:"vault,omitempty"`
	Jobs          []*models.ComputationJob `json:"jobs"`
}

// ShowGoal is the use case for showing goal details
type ShowGoal struct {
	goals         GoalRepository
	contributions ContributionRepository
	transfers     TransferRepository
	ledger        Ledger
	jobs          JobTable
	progress      ProgressSink
}

// NewShowGoal creates a new ShowGoal use case
func NewShowGoal(
	goals GoalRepository,
	contributions ContributionRepository,
	transfers TransferRepository,
	ledger Ledger,
	jobs JobTable,
	progress ProgressSink,
) *ShowGoal {
	return &ShowGoal{
		goals:         goals,
		contributions: contributions,
		transfers:     transfers,
		ledger:        ledger,
		jobs:          jobs,
		progress:      progress,
	}
}

// Run loads the goal with its contributions, transfer slot, vault and jobs
func (uc *ShowGoal) Run(ctx context.Context, key models.GoalKey) (*GoalDetails, error) {
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading goal details",
		Spinner: true,
	})

	goal, err := uc.goals.GetGoal(ctx, key)
	if err != nil {
		return nil, err
	}

	contributions, err := uc.contributions.ListContributions(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}

	transfer, err := uc.transfers.GetTransferRequest(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load transfer request: %w", err)
	}

	vault := key.VaultAccount()
	balance, err := uc.ledger.Balance(ctx, vault)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault balance: %w", err)
	}

	jobs, err := uc.jobs.ListJobs(ctx, domain.JobFilter{Goal: &key})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Message: "Goal loaded",
	})

	return &GoalDetails{
		Goal:          goal,
		Contributions: contributions,
		Transfer:      transfer,
		Vault:         &VaultBalance{Goal: key, Vault: vault, Balance: balance},
		Jobs:          jobs,
	}, nil
}

// ListGoalsResult contains goals and a summary
type ListGoalsResult struct {
	Goals   []*models.Goal
	Summary GoalSummary
}

// GoalSummary counts goals by status
type GoalSummary struct {
	Total    int
	ByStatus map[models.GoalStatus]int
}

// ListGoals is the use case for listing goals
type ListGoals struct {
	goals GoalRepository
}

// NewListGoals creates a new ListGoals use case
func NewListGoals(goals GoalRepository) *ListGoals {
	return &ListGoals{goals: goals}
}

// Run lists goals matching filter, ordered by owner then id
func (uc *ListGoals) Run(ctx context.Context, filter domain.GoalFilter) (*ListGoalsResult, error) {
	goals, err := uc.goals.ListGoals(ctx, filter)
	if err != nil {
		return nil, err
	}

	sort.Slice(goals, func(i, j int) bool {
		a, b := goals[i].Key, goals[j].Key
		if a.Owner != b.Owner {
			return a.Owner.Hex() < b.Owner.Hex()
		}
		return a.ID < b.ID
	})

	summary := GoalSummary{Total: len(goals), ByStatus: make(map[models.GoalStatus]int)}
	for _, g := range goals {
		summary.ByStatus[g.Status]++
	}
	return &ListGoalsResult{Goals: goals, Summary: summary}, nil
}

// ListJobs is the use case for listing computation jobs
type ListJobs struct {
	jobs JobTable
}

// NewListJobs creates a new ListJobs use case
func NewListJobs(jobs JobTable) *ListJobs {
	return &ListJobs{jobs: jobs}
}

// Run lists jobs matching filter, most recently queued first
func (uc *ListJobs) Run(ctx context.Context, filter domain.JobFilter) ([]*models.ComputationJob, error) {
	jobs, err := uc.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].QueuedAt.After(jobs[j].QueuedAt)
	})
	return jobs, nil
}
