package usecase

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

// GoalRepository handles persistence of goals
type GoalRepository interface {
	GetGoal(ctx context.Context, key models.GoalKey) (*models.Goal, error)
	ListGoals(ctx context.Context, filter domain.GoalFilter) ([]*models.Goal, error)
	// CreateGoal fails with domain.ErrAlreadyExists if the key is taken
	CreateGoal(ctx context.Context, goal *models.Goal) error
	// UpdateGoal applies fn to the stored goal under the record's lock and
	// persists the result. If fn returns an error nothing is written.
	UpdateGoal(ctx context.Context, key models.GoalKey, fn func(goal *models.Goal) error) (*models.Goal, error)
}

// ContributionRepository handles persistence of encrypted contributions
type ContributionRepository interface {
	GetContribution(ctx context.Context, goal models.GoalKey, contributor common.Address) (*models.Contribution, error)
	// ListContributions returns a goal's contributions ordered by timestamp
	ListContributions(ctx context.Context, goal models.GoalKey) ([]*models.Contribution, error)
	// CreateContribution fails with domain.ErrContributionExists if the slot is taken
	CreateContribution(ctx context.Context, contribution *models.Contribution) error
}

// TransferRepository handles the per-goal transfer request slot
type TransferRepository interface {
	GetTransferRequest(ctx context.Context, goal models.GoalKey) (*models.TransferRequest, error)
	// SaveTransferRequest fills or replaces a pending slot. It fails with
	// domain.ErrTransferAlreadyApproved once the slot is approved.
	SaveTransferRequest(ctx context.Context, request *models.TransferRequest) error
	// ApproveTransferRequest marks the pending request approved and moves its
	// amount from the goal vault to the recipient in one unit of work. Only
	// one caller across all processes sharing the store can succeed; the rest
	// get domain.ErrTransferAlreadyApproved.
	ApproveTransferRequest(ctx context.Context, goal models.GoalKey, at time.Time) (*models.TransferRequest, error)
}

// JobTable tracks outstanding computation jobs by offset
type JobTable interface {
	// ReserveJob records a queued job. It fails with domain.ErrDuplicateJobOffset
	// if the offset is queued, and with domain.ErrAggregationInFlight if the job
	// is a fold and another fold for the same goal is queued. Terminal jobs
	// under the same offset are replaced.
	ReserveJob(ctx context.Context, job *models.ComputationJob) error
	// ReleaseJob drops a queued reservation whose enqueue failed
	ReleaseJob(ctx context.Context, offset uint64) error
	// ResolveJob moves a queued job to a terminal status. It fails with
	// domain.ErrStaleJob if the job is unknown or already terminal.
	ResolveJob(ctx context.Context, offset uint64, res models.JobResolution) (*models.ComputationJob, error)
	GetJob(ctx context.Context, offset uint64) (*models.ComputationJob, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]*models.ComputationJob, error)
}

// Ledger holds account balances, including goal vaults
type Ledger interface {
	Balance(ctx context.Context, account common.Address) (uint64, error)
	Credit(ctx context.Context, account common.Address, amount uint64) (uint64, error)
}

// ComputationNetwork accepts jobs for asynchronous execution. Enqueue must
// not block on the result; the result arrives later through the callback
// handler.
type ComputationNetwork interface {
	Enqueue(ctx context.Context, job *models.ComputationJob) error
	// PublicKey is the key clients seal inputs to
	PublicKey(ctx context.Context) (circuit.PublicKey, error)
}

// sealerFor pairs the goal's audience key with the network key
func sealerFor(ctx context.Context, network ComputationNetwork, audience *sealedbox.KeyPair) (*sealedbox.Sealer, error) {
	networkKey, err := network.PublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get network key: %w", err)
	}
	return sealedbox.NewSealer(audience, networkKey)
}

// ResultHandler consumes results delivered by the computation network
type ResultHandler interface {
	HandleResult(ctx context.Context, result *circuit.Result) error
}

// ExecutionContextVerifier authenticates that a result was produced by the
// authorized execution context of the computation network.
type ExecutionContextVerifier interface {
	Verify(ctx context.Context, result *circuit.Result) error
}

// EventSink receives protocol events
type EventSink interface {
	Emit(ctx context.Context, event domain.Event) error
}

// KeyStore keeps the goal owner's audience secrets
type KeyStore interface {
	SaveAudienceKey(ctx context.Context, goal models.GoalKey, keys *sealedbox.KeyPair) error
	AudienceKey(ctx context.Context, goal models.GoalKey) (*sealedbox.KeyPair, error)
}

// GoalSelector lets the user pick a goal when none was named
type GoalSelector interface {
	SelectGoal(ctx context.Context, goals []*models.Goal, prompt string) (*models.Goal, error)
}

// Clock abstracts the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// OffsetSource hands out job offsets
type OffsetSource interface {
	NextOffset() (uint64, error)
}

// RandomOffsets draws offsets from crypto/rand
type RandomOffsets struct{}

func (RandomOffsets) NextOffset() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
