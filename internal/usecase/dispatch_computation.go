package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// DispatchComputation builds computation jobs and hands them to the network.
// It never waits for results and never retries.
type DispatchComputation struct {
	registry *circuit.Registry
	jobs     JobTable
	network  ComputationNetwork
	clock    Clock
	log      *slog.Logger
}

// NewDispatchComputation creates a new dispatcher
func NewDispatchComputation(
	registry *circuit.Registry,
	jobs JobTable,
	network ComputationNetwork,
	clock Clock,
	log *slog.Logger,
) *DispatchComputation {
	return &DispatchComputation{
		registry: registry,
		jobs:     jobs,
		network:  network,
		clock:    clock,
		log:      log,
	}
}

// SubmitParams contains parameters for submitting a job
type SubmitParams struct {
	Opcode circuit.Opcode
	// Version pins a circuit version; 0 uses the registry default
	Version     uint32
	Inputs      []circuit.Argument
	AudienceKey circuit.PublicKey
	Nonce       circuit.Nonce
	Offset      uint64

	// Optional goal binding, consumed by the callback handler
	Goal         *models.GoalKey
	Purpose      models.JobPurpose
	Folds        []common.Address
	BaseTotal    uint64
	Contributors []common.Address
}

// JobHandle identifies a submitted job
type JobHandle struct {
	Offset  uint64         `json:"offset"`
	Circuit string         `json:"circuit"`
	Version uint32         `json:"version"`
	Opcode  circuit.Opcode `json:"opcode"`
}

// Submit validates and enqueues a job. Nothing is mutated on failure.
func (d *DispatchComputation) Submit(ctx context.Context, params SubmitParams) (*JobHandle, error) {
	if !params.Opcode.Valid() {
		return nil, domain.BadArgumentsf("unknown opcode %q", params.Opcode)
	}

	def, err := d.registry.Resolve(params.Opcode, params.Version, len(params.Inputs))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadArguments, err)
	}
	if err := def.CheckInputs(params.Inputs); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadArguments, err)
	}
	if params.AudienceKey.IsZero() {
		return nil, domain.BadArgumentsf("audience key is empty")
	}
	if params.Nonce.IsZero() {
		return nil, domain.BadArgumentsf("nonce is empty")
	}
	if params.Purpose != models.JobPurposeNone && params.Goal == nil {
		return nil, domain.BadArgumentsf("%s job has no goal", params.Purpose)
	}

	job := &models.ComputationJob{
		Offset:       params.Offset,
		Opcode:       def.Opcode,
		Circuit:      def.Name,
		Version:      def.Version,
		Inputs:       params.Inputs,
		AudienceKey:  params.AudienceKey,
		Nonce:        params.Nonce,
		Status:       models.JobStatusQueued,
		Goal:         params.Goal,
		Purpose:      params.Purpose,
		Folds:        params.Folds,
		BaseTotal:    params.BaseTotal,
		Contributors: params.Contributors,
		QueuedAt:     d.clock.Now(),
	}

	if err := d.jobs.ReserveJob(ctx, job); err != nil {
		return nil, err
	}

	if err := d.network.Enqueue(ctx, job.Clone()); err != nil {
		if releaseErr := d.jobs.ReleaseJob(ctx, job.Offset); releaseErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to release offset %d: %w", job.Offset, releaseErr))
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	d.log.Debug("job queued",
		"offset", job.Offset,
		"circuit", def.ID(),
		"opcode", def.Opcode,
		"purpose", job.Purpose,
	)

	return &JobHandle{
		Offset:  job.Offset,
		Circuit: def.Name,
		Version: def.Version,
		Opcode:  def.Opcode,
	}, nil
}
