package progress_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/conclave/internal/adapters/progress"
	"github.com/trebuchet-org/conclave/internal/domain/config"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

func TestSpinnerProgressReporter(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := progress.NewSpinnerProgressReporterTo(&buf)
	ctx := context.Background()

	r.OnProgress(ctx, usecase.ProgressEvent{Stage: "waiting", Message: "Waiting for job 7", Spinner: true})
	r.Info("queued")
	r.OnProgress(ctx, usecase.ProgressEvent{Stage: "complete", Message: "Job 7 completed"})
	r.Stop()

	out := buf.String()
	assert.Contains(t, out, "queued")
	assert.Contains(t, out, "✓ Job 7 completed")
}

func TestNewProgressSink(t *testing.T) {
	assert.IsType(t, usecase.NopProgress{}, progress.NewProgressSink(&config.RuntimeConfig{JSON: true}))
	assert.IsType(t, usecase.NopProgress{}, progress.NewProgressSink(&config.RuntimeConfig{NonInteractive: true}))
	assert.IsType(t, &progress.SpinnerProgressReporter{}, progress.NewProgressSink(&config.RuntimeConfig{}))
}
