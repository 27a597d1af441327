package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

var errSkipUpdate = errors.New("skip update")

// callbackEffect applies the opcode-specific consequence of a successful job
type callbackEffect func(ctx context.Context, job *models.ComputationJob, out *circuit.Output) (*CallbackResult, error)

// HandleCallback receives job results out-of-band, authenticates them and
// publishes their facts. It never finalizes a goal.
//
// Results are handled one at a time. A job's effect is applied before the
// job is resolved, so anyone polling the job table sees the goal already
// updated once the job is terminal.
type HandleCallback struct {
	mu sync.Mutex

	registry *circuit.Registry
	jobs     JobTable
	goals    GoalRepository
	verifier ExecutionContextVerifier
	events   EventSink
	clock    Clock
	log      *slog.Logger
	effects  map[circuit.Opcode]callbackEffect
}

// NewHandleCallback creates the callback handler, binding an effect to every
// opcode the registry knows about.
func NewHandleCallback(
	registry *circuit.Registry,
	jobs JobTable,
	goals GoalRepository,
	verifier ExecutionContextVerifier,
	events EventSink,
	clock Clock,
	log *slog.Logger,
) (*HandleCallback, error) {
	h := &HandleCallback{
		registry: registry,
		jobs:     jobs,
		goals:    goals,
		verifier: verifier,
		events:   events,
		clock:    clock,
		log:      log,
	}
	available := map[circuit.Opcode]callbackEffect{
		circuit.OpcodeAddTwo:         h.applyAggregation,
		circuit.OpcodeThresholdCheck: h.applyThresholdCheck,
		circuit.OpcodeRevealN:        h.applyReveal,
	}
	h.effects = make(map[circuit.Opcode]callbackEffect)
	for _, op := range registry.Opcodes() {
		effect, ok := available[op]
		if !ok {
			return nil, fmt.Errorf("no callback effect for opcode %s", op)
		}
		h.effects[op] = effect
	}
	return h, nil
}

// CallbackResult describes what a callback did
type CallbackResult struct {
	Job         *models.ComputationJob
	Events      []domain.Event
	GoalUpdated bool
}

// HandleResult implements ResultHandler
func (h *HandleCallback) HandleResult(ctx context.Context, result *circuit.Result) error {
	_, err := h.Execute(ctx, result)
	return err
}

// Execute resolves the job behind result exactly once. A fold whose goal has
// moved on is still resolved as completed; the goal is left untouched and
// domain.ErrStaleJob is returned.
func (h *HandleCallback) Execute(ctx context.Context, result *circuit.Result) (*CallbackResult, error) {
	if result == nil {
		return nil, domain.BadArgumentsf("empty result")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	job, err := h.jobs.GetJob(ctx, result.Offset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown offset %d", domain.ErrStaleJob, result.Offset)
		}
		return nil, err
	}
	if !job.IsQueued() {
		return nil, fmt.Errorf("%w: offset %d is %s", domain.ErrStaleJob, result.Offset, job.Status)
	}

	if reason := h.rejectReason(ctx, job, result); reason != "" {
		return h.abort(ctx, job, reason)
	}

	effect := h.effects[job.Opcode]
	res, effectErr := effect(ctx, job, result.Output)
	if effectErr != nil && !errors.Is(effectErr, domain.ErrStaleJob) {
		return nil, effectErr
	}

	resolved, err := h.jobs.ResolveJob(ctx, job.Offset, models.JobResolution{
		Status: models.JobStatusCompleted,
		Output: result.Output,
		At:     h.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	res.Job = resolved

	h.log.Debug("job completed", "offset", resolved.Offset, "circuit", resolved.Circuit, "goal_updated", res.GoalUpdated)
	return res, effectErr
}

// rejectReason returns why a result can't be trusted as a success, or ""
func (h *HandleCallback) rejectReason(ctx context.Context, job *models.ComputationJob, result *circuit.Result) string {
	if result.Outcome != circuit.OutcomeSuccess {
		if result.Reason != "" {
			return result.Reason
		}
		return "network reported abort"
	}
	if err := h.verifier.Verify(ctx, result); err != nil {
		return fmt.Sprintf("attestation rejected: %v", err)
	}
	if result.Circuit != job.Circuit || result.Version != job.Version {
		return fmt.Sprintf("result for %s@%d does not match job circuit %s@%d", result.Circuit, result.Version, job.Circuit, job.Version)
	}
	def, err := h.registry.Lookup(job.Circuit, job.Version)
	if err != nil {
		return err.Error()
	}
	if result.Output == nil || result.Output.Kind != def.Output {
		return fmt.Sprintf("expected %s output", def.Output)
	}
	if def.Output == circuit.OutputSealedU64Vector && len(result.Output.Sealed) != def.Arity() {
		return fmt.Sprintf("expected %d sealed values, got %d", def.Arity(), len(result.Output.Sealed))
	}
	if _, ok := h.effects[job.Opcode]; !ok {
		return fmt.Sprintf("no effect registered for %s", job.Opcode)
	}
	return ""
}

func (h *HandleCallback) abort(ctx context.Context, job *models.ComputationJob, reason string) (*CallbackResult, error) {
	resolved, err := h.jobs.ResolveJob(ctx, job.Offset, models.JobResolution{
		Status: models.JobStatusAborted,
		Reason: reason,
		At:     h.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	h.log.Warn("job aborted", "offset", job.Offset, "circuit", job.Circuit, "reason", reason)

	event := &domain.ComputationAbortedEvent{Offset: job.Offset, GoalID: job.Goal, Reason: reason}
	if err := h.events.Emit(ctx, event); err != nil {
		h.log.Error("failed to emit event", "event", event.EventName(), "error", err)
	}
	return &CallbackResult{Job: resolved, Events: []domain.Event{event}},
		fmt.Errorf("%w: offset %d: %s", domain.ErrAbortedComputation, job.Offset, reason)
}

func (h *HandleCallback) emit(ctx context.Context, res *CallbackResult, event domain.Event) error {
	if err := h.events.Emit(ctx, event); err != nil {
		return fmt.Errorf("failed to emit %s: %w", event.EventName(), err)
	}
	res.Events = append(res.Events, event)
	return nil
}

// applyAggregation publishes the revealed sum. For fold jobs it also records
// the sum as the goal's current total, provided the goal has not moved since
// the fold was dispatched.
func (h *HandleCallback) applyAggregation(ctx context.Context, job *models.ComputationJob, out *circuit.Output) (*CallbackResult, error) {
	res := &CallbackResult{Job: job}
	if err := h.emit(ctx, res, &domain.AggregationTotalEvent{Total: out.U64, GoalID: job.Goal, Offset: job.Offset}); err != nil {
		return nil, err
	}
	if job.Purpose != models.JobPurposeFold || job.Goal == nil {
		return res, nil
	}

	var inactive bool
	_, err := h.goals.UpdateGoal(ctx, *job.Goal, func(goal *models.Goal) error {
		if !goal.IsActive() {
			inactive = true
			return errSkipUpdate
		}
		if goal.CurrentTotal != job.BaseTotal {
			return fmt.Errorf("%w: goal %s total moved from %d to %d since offset %d was queued",
				domain.ErrStaleJob, goal.Key, job.BaseTotal, goal.CurrentTotal, job.Offset)
		}
		goal.CurrentTotal = out.U64
		for _, c := range job.Folds {
			if !lo.Contains(goal.Aggregated, c) {
				goal.Aggregated = append(goal.Aggregated, c)
			}
		}
		return nil
	})
	switch {
	case inactive:
		h.log.Warn("fold result for inactive goal not applied", "goal", job.Goal.String(), "offset", job.Offset)
		return res, nil
	case errors.Is(err, domain.ErrStaleJob):
		return res, err
	case err != nil:
		return nil, fmt.Errorf("failed to update goal %s: %w", job.Goal, err)
	}
	res.GoalUpdated = true
	return res, nil
}

func (h *HandleCallback) applyThresholdCheck(ctx context.Context, job *models.ComputationJob, out *circuit.Output) (*CallbackResult, error) {
	res := &CallbackResult{Job: job}
	if err := h.emit(ctx, res, &domain.GoalCheckResultEvent{Reached: out.Bool, GoalID: job.Goal, Offset: job.Offset}); err != nil {
		return nil, err
	}
	return res, nil
}

func (h *HandleCallback) applyReveal(ctx context.Context, job *models.ComputationJob, out *circuit.Output) (*CallbackResult, error) {
	res := &CallbackResult{Job: job}
	event := &domain.ContributionsRevealedEvent{
		GoalID:       job.Goal,
		Offset:       job.Offset,
		Contributors: job.Contributors,
		AudienceKey:  job.AudienceKey,
		Nonce:        job.Nonce,
		Amounts:      out.Sealed,
	}
	if err := h.emit(ctx, res, event); err != nil {
		return nil, err
	}
	return res, nil
}
