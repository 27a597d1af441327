package network

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// Fault is a deliberate misbehaviour of the local network, used to exercise
// the callback handler.
type Fault string

const (
	// FaultAbort delivers an aborted result
	FaultAbort Fault = "abort"
	// FaultForgeAttestation delivers a result with a corrupted attestation
	FaultForgeAttestation Fault = "forge-attestation"
	// FaultDuplicate delivers the same result twice
	FaultDuplicate Fault = "duplicate"
	// FaultDrop never delivers the result
	FaultDrop Fault = "drop"
)

// LocalNetwork runs the reference cluster in-process. Each job is evaluated
// on its own goroutine and its result handed to the result handler after
// the configured latency.
type LocalNetwork struct {
	cluster *Cluster
	handler usecase.ResultHandler
	latency time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	faults []Fault
	wg     sync.WaitGroup
}

var _ usecase.ComputationNetwork = (*LocalNetwork)(nil)

// NewLocalNetwork creates an in-process network delivering to handler
func NewLocalNetwork(cluster *Cluster, handler usecase.ResultHandler, latency time.Duration, log *slog.Logger) *LocalNetwork {
	return &LocalNetwork{
		cluster: cluster,
		handler: handler,
		latency: latency,
		log:     log,
	}
}

// PublicKey implements usecase.ComputationNetwork
func (n *LocalNetwork) PublicKey(ctx context.Context) (circuit.PublicKey, error) {
	return n.cluster.PublicKey(), nil
}

// Cluster returns the underlying cluster
func (n *LocalNetwork) Cluster() *Cluster {
	return n.cluster
}

// InjectFault queues a fault for the next enqueued job
func (n *LocalNetwork) InjectFault(f Fault) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults = append(n.faults, f)
}

func (n *LocalNetwork) nextFault() Fault {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.faults) == 0 {
		return ""
	}
	f := n.faults[0]
	n.faults = n.faults[1:]
	return f
}

// Enqueue implements usecase.ComputationNetwork. It returns immediately.
func (n *LocalNetwork) Enqueue(ctx context.Context, job *models.ComputationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fault := n.nextFault()
	job = job.Clone()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if n.latency > 0 {
			time.Sleep(n.latency)
		}

		result := n.cluster.Execute(job)
		switch fault {
		case FaultDrop:
			n.log.Debug("dropping result", "offset", job.Offset)
			return
		case FaultAbort:
			result.Outcome = circuit.OutcomeAborted
			result.Output = nil
			result.Reason = "injected abort"
		case FaultForgeAttestation:
			if len(result.Attestation) > 0 {
				result.Attestation[0] ^= 0xff
			}
		}

		n.deliver(result)
		if fault == FaultDuplicate {
			n.deliver(result)
		}
	}()
	return nil
}

func (n *LocalNetwork) deliver(result *circuit.Result) {
	err := n.handler.HandleResult(context.Background(), result)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAbortedComputation), errors.Is(err, domain.ErrStaleJob):
		n.log.Debug("result not applied", "offset", result.Offset, "error", err)
	default:
		n.log.Error("failed to deliver result", "offset", result.Offset, "error", err)
	}
}

// Drain blocks until every enqueued job has been delivered
func (n *LocalNetwork) Drain() {
	n.wg.Wait()
}
