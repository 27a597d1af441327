// Package progress renders use case progress on the terminal.
package progress

import (
	"github.com/trebuchet-org/conclave/internal/domain/config"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewProgressSink picks the spinner for interactive text output and a no-op
// sink otherwise
func NewProgressSink(cfg *config.RuntimeConfig) usecase.ProgressSink {
	if cfg.JSON || cfg.NonInteractive {
		return NewNopSink()
	}
	return NewSpinnerProgressReporter()
}
