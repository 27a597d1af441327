package interactive_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/interactive"
	"github.com/trebuchet-org/conclave/internal/domain/config"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

func goals() []*models.Goal {
	owner := common.HexToAddress("0x01")
	return []*models.Goal{
		{Key: models.GoalKey{Owner: owner, ID: 1}, Name: "Summer trip", Status: models.GoalStatusActive},
		{Key: models.GoalKey{Owner: owner, ID: 2}, Name: "New laptop", Status: models.GoalStatusFinalized},
	}
}

func TestSelectGoalNonInteractive(t *testing.T) {
	s := interactive.NewSelectorAdapter(&config.RuntimeConfig{NonInteractive: true})
	ctx := context.Background()

	_, err := s.SelectGoal(ctx, nil, "Goal")
	assert.Error(t, err)

	only := goals()[:1]
	got, err := s.SelectGoal(ctx, only, "Goal")
	require.NoError(t, err)
	assert.Equal(t, only[0], got)

	_, err = s.SelectGoal(ctx, goals(), "Goal")
	assert.ErrorContains(t, err, "2 goals match")

	assert.True(t, s.Confirm("Approve?"))
}

func TestFuzzySearcher(t *testing.T) {
	color.NoColor = true
	options := interactive.FormatGoalOptions(goals())
	assert.Contains(t, options[1], "[finalized]")

	search := interactive.FuzzySearcher(options)
	assert.True(t, search("", 0))
	assert.True(t, search("trip", 0))
	assert.True(t, search("smrtrp", 0))
	assert.False(t, search("laptop", 0))
	assert.True(t, search("laptop", 1))
}
