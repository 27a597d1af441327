package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/conclave/internal/domain/config"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectGoal selects a goal from a list
func (s *SelectorAdapter) SelectGoal(ctx context.Context, goals []*models.Goal, prompt string) (*models.Goal, error) {
	if len(goals) == 0 {
		return nil, fmt.Errorf("no goals to choose from")
	}

	// If only one match, return it directly
	if len(goals) == 1 {
		return goals[0], nil
	}

	// In non-interactive mode, we can't select
	if s.config.NonInteractive || s.config.JSON {
		return nil, fmt.Errorf("%d goals match; pass <owner>/<id> explicitly in non-interactive mode", len(goals))
	}

	options := FormatGoalOptions(goals)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          FuzzySearcher(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return goals[index], nil
}

// FormatGoalOptions creates display strings for goal selection
func FormatGoalOptions(goals []*models.Goal) []string {
	options := make([]string, len(goals))
	for i, g := range goals {
		name := color.New(color.FgWhite, color.Bold).Sprint(g.Name)
		key := color.New(color.FgBlue).Sprint(g.Key.String())
		if g.IsFinalized() {
			options[i] = fmt.Sprintf("%s %s (%s)", name, color.New(color.FgYellow).Sprint("[finalized]"), key)
		} else {
			options[i] = fmt.Sprintf("%s (%s)", name, key)
		}
	}
	return options
}

// FuzzySearcher creates a fuzzy search function for promptui
func FuzzySearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		// Empty search shows all items
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		// First try simple substring match
		if strings.Contains(item, input) {
			return true
		}

		// Then try fuzzy match
		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

// Confirm asks a yes/no question. Non-interactive runs answer yes.
func (s *SelectorAdapter) Confirm(label string) bool {
	if s.config.NonInteractive || s.config.JSON {
		return true
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

// Ensure the adapter implements the interface
var _ usecase.GoalSelector = (*SelectorAdapter)(nil)
