package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/app"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// principal returns the configured acting address
func principal(a *app.App) (common.Address, error) {
	if a.Config.Principal == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no principal configured: pass --principal or set CONCLAVE_PRINCIPAL")
	}
	return a.Config.Principal, nil
}

// resolveGoal parses the goal reference in args, or lets the user pick
// one of the principal's goals when none is given
func resolveGoal(cmd *cobra.Command, a *app.App, args []string, filter domain.GoalFilter) (models.GoalKey, error) {
	if len(args) > 0 && args[0] != "" {
		return models.ParseGoalKey(args[0])
	}
	who, err := principal(a)
	if err != nil {
		return models.GoalKey{}, fmt.Errorf("no goal given: %w", err)
	}
	if filter.Owner == (common.Address{}) {
		filter.Member = who
	}
	result, err := a.ListGoals.Run(cmd.Context(), filter)
	if err != nil {
		return models.GoalKey{}, err
	}
	goal, err := a.Selector.SelectGoal(cmd.Context(), result.Goals, "Select goal")
	if err != nil {
		return models.GoalKey{}, err
	}
	return goal.Key, nil
}

func parseAddress(what, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", what, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.ReplaceAll(strings.TrimSpace(s), "_", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: must be an unsigned 64-bit integer", s)
	}
	return n, nil
}

// parseDeadline accepts an RFC 3339 timestamp or a duration from now
func parseDeadline(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		t := now.Add(d).UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("invalid deadline %q: use RFC 3339 (2025-12-31T00:00:00Z) or a duration (72h)", s)
}

// output writes v as JSON when --json is set, otherwise calls text
func output(cmd *cobra.Command, a *app.App, v any, text func()) error {
	if a.Config.JSON {
		return render.JSON(cmd.OutOrStdout(), v)
	}
	text()
	return nil
}
