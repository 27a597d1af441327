package files

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// ReserveJob records a queued job
func (r *FileRepository) ReserveJob(ctx context.Context, job *models.ComputationJob) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.refresh(JobsFile); err != nil {
		return err
	}
	if existing, ok := r.jobs[job.Offset]; ok && existing.IsQueued() {
		return fmt.Errorf("offset %d: %w", job.Offset, domain.ErrDuplicateJobOffset)
	}
	if job.Purpose == models.JobPurposeFold && job.Goal != nil {
		for _, other := range r.jobs {
			if other.IsQueued() && other.Purpose == models.JobPurposeFold && other.Goal != nil && *other.Goal == *job.Goal {
				return fmt.Errorf("goal %s, offset %d: %w", job.Goal, other.Offset, domain.ErrAggregationInFlight)
			}
		}
	}

	previous := r.jobs[job.Offset]
	r.jobs[job.Offset] = job.Clone()
	if err := r.saveFile(JobsFile, r.jobs); err != nil {
		r.restoreJob(job.Offset, previous)
		return err
	}
	return nil
}

// ReleaseJob drops a queued reservation
func (r *FileRepository) ReleaseJob(ctx context.Context, offset uint64) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.refresh(JobsFile); err != nil {
		return err
	}
	job, ok := r.jobs[offset]
	if !ok || !job.IsQueued() {
		return nil
	}
	delete(r.jobs, offset)
	if err := r.saveFile(JobsFile, r.jobs); err != nil {
		r.jobs[offset] = job
		return err
	}
	return nil
}

// ResolveJob moves a queued job to a terminal status
func (r *FileRepository) ResolveJob(ctx context.Context, offset uint64, res models.JobResolution) (*models.ComputationJob, error) {
	if !res.Status.Terminal() {
		return nil, domain.BadArgumentsf("cannot resolve job to %s", res.Status)
	}

	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(JobsFile); err != nil {
		return nil, err
	}
	job, ok := r.jobs[offset]
	if !ok {
		return nil, fmt.Errorf("%w: unknown offset %d", domain.ErrStaleJob, offset)
	}
	if !job.IsQueued() {
		return nil, fmt.Errorf("%w: offset %d is %s", domain.ErrStaleJob, offset, job.Status)
	}

	resolved := job.Clone()
	resolved.Apply(res)
	r.jobs[offset] = resolved
	if err := r.saveFile(JobsFile, r.jobs); err != nil {
		r.jobs[offset] = job
		return nil, err
	}
	return resolved.Clone(), nil
}

// GetJob retrieves a job by offset
func (r *FileRepository) GetJob(ctx context.Context, offset uint64) (*models.ComputationJob, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(JobsFile); err != nil {
		return nil, err
	}
	job, ok := r.jobs[offset]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", offset, domain.ErrNotFound)
	}
	return job.Clone(), nil
}

// ListJobs retrieves jobs matching the filter
func (r *FileRepository) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*models.ComputationJob, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(JobsFile); err != nil {
		return nil, err
	}
	var result []*models.ComputationJob
	for _, job := range r.jobs {
		if filter.Matches(job) {
			result = append(result, job.Clone())
		}
	}
	return result, nil
}

func (r *FileRepository) restoreJob(offset uint64, previous *models.ComputationJob) {
	if previous == nil {
		delete(r.jobs, offset)
		return
	}
	r.jobs[offset] = previous
}

// Balance returns an account's balance
func (r *FileRepository) Balance(ctx context.Context, account common.Address) (uint64, error) {
	unlock, err := r.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := r.refresh(LedgerFile); err != nil {
		return 0, err
	}
	return r.balances[account], nil
}

// Credit adds amount to an account and returns the new balance
func (r *FileRepository) Credit(ctx context.Context, account common.Address, amount uint64) (uint64, error) {
	unlock, err := r.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := r.refresh(LedgerFile); err != nil {
		return 0, err
	}
	before := r.balances[account]
	after := before + amount
	if after < before {
		return 0, domain.BadArgumentsf("credit of %d overflows balance of %s", amount, account.Hex())
	}
	r.balances[account] = after
	if err := r.saveFile(LedgerFile, r.balances); err != nil {
		r.balances[account] = before
		return 0, err
	}
	return after, nil
}
