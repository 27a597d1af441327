package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

const defaultPollInterval = 100 * time.Millisecond

// AwaitJob polls the job table until a job reaches a terminal status
type AwaitJob struct {
	jobs     JobTable
	progress ProgressSink
	interval time.Duration
}

// NewAwaitJob creates a new AwaitJob use case
func NewAwaitJob(jobs JobTable, progress ProgressSink) *AwaitJob {
	return &AwaitJob{jobs: jobs, progress: progress, interval: defaultPollInterval}
}

// WithInterval overrides the poll interval
func (uc *AwaitJob) WithInterval(d time.Duration) *AwaitJob {
	uc.interval = d
	return uc
}

// Wait blocks until the job at offset is resolved or ctx is done. An aborted
// job is returned together with a wrapped domain.ErrAbortedComputation.
func (uc *AwaitJob) Wait(ctx context.Context, offset uint64) (*models.ComputationJob, error) {
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "waiting",
		Message: fmt.Sprintf("Waiting for job %d", offset),
		Spinner: true,
	})

	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()

	for {
		job, err := uc.jobs.GetJob(ctx, offset)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case models.JobStatusCompleted:
			uc.progress.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: fmt.Sprintf("Job %d completed", offset)})
			return job, nil
		case models.JobStatusAborted:
			uc.progress.OnProgress(ctx, ProgressEvent{Stage: "complete", Message: fmt.Sprintf("Job %d aborted", offset)})
			return job, fmt.Errorf("%w: offset %d: %s", domain.ErrAbortedComputation, offset, job.Reason)
		}

		select {
		case <-ctx.Done():
			return job, fmt.Errorf("job %d still queued: %w", offset, ctx.Err())
		case <-ticker.C:
		}
	}
}
