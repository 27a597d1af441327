package usecase_test

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

// MockGoalRepository is a mock implementation of GoalRepository
type MockGoalRepository struct {
	mock.Mock
}

func (m *MockGoalRepository) GetGoal(ctx context.Context, key models.GoalKey) (*models.Goal, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Goal), args.Error(1)
}

func (m *MockGoalRepository) ListGoals(ctx context.Context, filter domain.GoalFilter) ([]*models.Goal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Goal), args.Error(1)
}

func (m *MockGoalRepository) CreateGoal(ctx context.Context, goal *models.Goal) error {
	args := m.Called(ctx, goal)
	return args.Error(0)
}

func (m *MockGoalRepository) UpdateGoal(ctx context.Context, key models.GoalKey, fn func(goal *models.Goal) error) (*models.Goal, error) {
	args := m.Called(ctx, key, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	goal := args.Get(0).(*models.Goal).Clone()
	if err := fn(goal); err != nil {
		return nil, err
	}
	return goal, args.Error(1)
}

// MockTransferRepository is a mock implementation of TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) GetTransferRequest(ctx context.Context, goal models.GoalKey) (*models.TransferRequest, error) {
	args := m.Called(ctx, goal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransferRequest), args.Error(1)
}

func (m *MockTransferRepository) SaveTransferRequest(ctx context.Context, request *models.TransferRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockTransferRepository) ApproveTransferRequest(ctx context.Context, goal models.GoalKey, at time.Time) (*models.TransferRequest, error) {
	args := m.Called(ctx, goal, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransferRequest), args.Error(1)
}

// MockJobTable is a mock implementation of JobTable
type MockJobTable struct {
	mock.Mock
}

func (m *MockJobTable) ReserveJob(ctx context.Context, job *models.ComputationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobTable) ReleaseJob(ctx context.Context, offset uint64) error {
	args := m.Called(ctx, offset)
	return args.Error(0)
}

func (m *MockJobTable) ResolveJob(ctx context.Context, offset uint64, res models.JobResolution) (*models.ComputationJob, error) {
	args := m.Called(ctx, offset, res)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComputationJob), args.Error(1)
}

func (m *MockJobTable) GetJob(ctx context.Context, offset uint64) (*models.ComputationJob, error) {
	args := m.Called(ctx, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComputationJob), args.Error(1)
}

func (m *MockJobTable) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*models.ComputationJob, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ComputationJob), args.Error(1)
}

// MockNetwork is a mock implementation of ComputationNetwork
type MockNetwork struct {
	mock.Mock
}

func (m *MockNetwork) Enqueue(ctx context.Context, job *models.ComputationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockNetwork) PublicKey(ctx context.Context) (circuit.PublicKey, error) {
	args := m.Called(ctx)
	return args.Get(0).(circuit.PublicKey), args.Error(1)
}

// MockKeyStore is a mock implementation of KeyStore
type MockKeyStore struct {
	mock.Mock
}

func (m *MockKeyStore) SaveAudienceKey(ctx context.Context, goal models.GoalKey, keys *sealedbox.KeyPair) error {
	args := m.Called(ctx, goal, keys)
	return args.Error(0)
}

func (m *MockKeyStore) AudienceKey(ctx context.Context, goal models.GoalKey) (*sealedbox.KeyPair, error) {
	args := m.Called(ctx, goal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealedbox.KeyPair), args.Error(1)
}

// MockEventSink is a mock implementation of EventSink
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Emit(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockProgressSink records progress events
type MockProgressSink struct {
	events []string
	infos  []string
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.events = append(m.events, event.Stage)
}

func (m *MockProgressSink) Info(msg string)  { m.infos = append(m.infos, msg) }
func (m *MockProgressSink) Error(msg string) {}

// stubVerifier accepts or rejects every result
type stubVerifier struct {
	err error
}

func (v stubVerifier) Verify(ctx context.Context, result *circuit.Result) error {
	return v.err
}

func testGoal(owner common.Address, members ...common.Address) *models.Goal {
	return &models.Goal{
		Key:          models.GoalKey{Owner: owner, ID: 1},
		Name:         "Trip",
		TargetAmount: 1000,
		Members:      append([]common.Address{owner}, members...),
		Status:       models.GoalStatusActive,
		Aggregated:   []common.Address{},
	}
}
