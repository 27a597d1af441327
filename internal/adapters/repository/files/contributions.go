package files

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// GetContribution retrieves one contributor's slot
func (r *FileRepository) GetContribution(ctx context.Context, goal models.GoalKey, contributor common.Address) (*models.Contribution, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(ContributionsFile); err != nil {
		return nil, err
	}
	c, ok := r.contributions[contributionKey(goal, contributor)]
	if !ok {
		return nil, fmt.Errorf("contribution of %s to %s: %w", contributor.Hex(), goal, domain.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

// ListContributions returns a goal's contributions ordered by timestamp
func (r *FileRepository) ListContributions(ctx context.Context, goal models.GoalKey) ([]*models.Contribution, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(ContributionsFile); err != nil {
		return nil, err
	}
	var result []*models.Contribution
	for _, c := range r.contributions {
		if c.Goal == goal {
			clone := *c
			result = append(result, &clone)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].Contributor.Hex() < result[j].Contributor.Hex()
	})
	return result, nil
}

// CreateContribution fills a contributor's slot
func (r *FileRepository) CreateContribution(ctx context.Context, contribution *models.Contribution) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.refresh(ContributionsFile); err != nil {
		return err
	}
	key := contributionKey(contribution.Goal, contribution.Contributor)
	if _, exists := r.contributions[key]; exists {
		return domain.ErrContributionExists
	}
	clone := *contribution
	r.contributions[key] = &clone
	if err := r.saveFile(ContributionsFile, r.contributions); err != nil {
		delete(r.contributions, key)
		return err
	}
	return nil
}
