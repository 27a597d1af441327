package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

const (
	GoalsFile         = "goals.json"
	ContributionsFile = "contributions.json"
	TransfersFile     = "transfers.json"
	JobsFile          = "jobs.json"
	LedgerFile        = "ledger.json"

	lockFileName = ".lock"
)

// FileRepository stores goals, contributions, transfer requests, the job
// table and ledger balances in json files under the data directory.
//
// Every operation holds an exclusive flock on <dataDir>/.lock and re-reads
// the files it touches before acting on them, so the callback server and
// the CLI can share one data directory.
type FileRepository struct {
	dataDir       string
	mu            sync.Mutex
	goals         map[string]*models.Goal
	contributions map[string]*models.Contribution
	transfers     map[string]*models.TransferRequest
	jobs          map[uint64]*models.ComputationJob
	balances      map[common.Address]uint64
}

// NewFileRepository creates a repository rooted at dataDir
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	r := &FileRepository{
		dataDir:       dataDir,
		goals:         make(map[string]*models.Goal),
		contributions: make(map[string]*models.Contribution),
		transfers:     make(map[string]*models.TransferRequest),
		jobs:          make(map[uint64]*models.ComputationJob),
		balances:      make(map[common.Address]uint64),
	}

	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, f := range []string{GoalsFile, ContributionsFile, TransfersFile, JobsFile, LedgerFile} {
		if err := r.refresh(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// lock serialises access within the process and with every other process
// using the same data directory. Closing the lock file releases the flock.
func (r *FileRepository) lock() (func(), error) {
	r.mu.Lock()
	f, err := os.OpenFile(filepath.Join(r.dataDir, lockFileName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to lock data directory: %w", err)
	}
	return func() {
		f.Close()
		r.mu.Unlock()
	}, nil
}

// refresh reloads one file into memory. A missing file leaves the map empty.
func (r *FileRepository) refresh(filename string) error {
	var err error
	switch filename {
	case GoalsFile:
		r.goals = make(map[string]*models.Goal)
		err = r.loadFile(filename, &r.goals)
	case ContributionsFile:
		r.contributions = make(map[string]*models.Contribution)
		err = r.loadFile(filename, &r.contributions)
	case TransfersFile:
		r.transfers = make(map[string]*models.TransferRequest)
		err = r.loadFile(filename, &r.transfers)
	case JobsFile:
		r.jobs = make(map[uint64]*models.ComputationJob)
		err = r.loadFile(filename, &r.jobs)
	case LedgerFile:
		r.balances = make(map[common.Address]uint64)
		err = r.loadFile(filename, &r.balances)
	default:
		return fmt.Errorf("unknown data file %s", filename)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return nil
}

// loadFile loads a JSON file from the data directory
func (r *FileRepository) loadFile(filename string, v any) error {
	data, err := os.ReadFile(filepath.Join(r.dataDir, filename))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// saveFile saves data to a JSON file in the data directory
func (r *FileRepository) saveFile(filename string, v any) error {
	path := filepath.Join(r.dataDir, filename)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Write to a uniquely named temp file first
	tmp, err := os.CreateTemp(r.dataDir, filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	tmpPath := tmp.Name()
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0644)
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}

func contributionKey(goal models.GoalKey, contributor common.Address) string {
	return goal.String() + "/" + contributor.Hex()
}

// GetGoal retrieves a goal by key
func (r *FileRepository) GetGoal(ctx context.Context, key models.GoalKey) (*models.Goal, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(GoalsFile); err != nil {
		return nil, err
	}
	goal, ok := r.goals[key.String()]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", key, domain.ErrNotFound)
	}
	return goal.Clone(), nil
}

// ListGoals retrieves goals matching the filter
func (r *FileRepository) ListGoals(ctx context.Context, filter domain.GoalFilter) ([]*models.Goal, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(GoalsFile); err != nil {
		return nil, err
	}
	var result []*models.Goal
	for _, g := range r.goals {
		if filter.Matches(g) {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

// CreateGoal stores a new goal
func (r *FileRepository) CreateGoal(ctx context.Context, goal *models.Goal) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.refresh(GoalsFile); err != nil {
		return err
	}
	key := goal.Key.String()
	if _, exists := r.goals[key]; exists {
		return domain.ErrAlreadyExists
	}
	r.goals[key] = goal.Clone()
	if err := r.saveFile(GoalsFile, r.goals); err != nil {
		delete(r.goals, key)
		return err
	}
	return nil
}

// UpdateGoal applies fn to the stored goal and persists it
func (r *FileRepository) UpdateGoal(ctx context.Context, key models.GoalKey, fn func(goal *models.Goal) error) (*models.Goal, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(GoalsFile); err != nil {
		return nil, err
	}
	stored, ok := r.goals[key.String()]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", key, domain.ErrNotFound)
	}

	updated := stored.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	r.goals[key.String()] = updated
	if err := r.saveFile(GoalsFile, r.goals); err != nil {
		r.goals[key.String()] = stored
		return nil, err
	}
	return updated.Clone(), nil
}
