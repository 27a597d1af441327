package render

import (
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// Renderer writes one kind of use case result for a terminal
type Renderer[T any] interface {
	Render(result T) error
}

var (
	_ Renderer[*usecase.ListGoalsResult] = (*GoalsRenderer)(nil)
	_ Renderer[*usecase.GoalDetails]     = (*GoalRenderer)(nil)
	_ Renderer[[]*models.ComputationJob] = (*JobsRenderer)(nil)
)
