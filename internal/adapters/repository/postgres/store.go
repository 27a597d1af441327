// Package postgres is a State Store, JobTable and Ledger backed by
// PostgreSQL. Records are kept as JSONB documents next to the columns the
// store filters and locks on.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation = "23505"
	foldIndex       = "conclave_jobs_one_fold_per_goal"
)

// Store implements the repository ports on a pgx pool
type Store struct{ DB *pgxpool.Pool }

// New wraps an existing pool
func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// Connect opens a pool for dsn
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they don't exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *Store) Close() {
	s.DB.Close()
}

func offsetKey(offset uint64) string {
	return strconv.FormatUint(offset, 10)
}

func contributionKey(contributor common.Address) string {
	return contributor.Hex()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// GetGoal retrieves a goal by key
func (s *Store) GetGoal(ctx context.Context, key models.GoalKey) (*models.Goal, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `SELECT doc FROM conclave_goals WHERE goal_key=$1`, key.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal %s: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	var goal models.Goal
	if err := json.Unmarshal(doc, &goal); err != nil {
		return nil, fmt.Errorf("corrupt goal %s: %w", key, err)
	}
	return &goal, nil
}

// ListGoals retrieves goals matching the filter
func (s *Store) ListGoals(ctx context.Context, filter domain.GoalFilter) ([]*models.Goal, error) {
	query := `SELECT doc FROM conclave_goals`
	var args []any
	if filter.Owner != (common.Address{}) {
		query += ` WHERE owner=$1`
		args = append(args, filter.Owner.Hex())
	}
	rows, err := s.DB.Query(ctx, query+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Goal
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var goal models.Goal
		if err := json.Unmarshal(doc, &goal); err != nil {
			return nil, err
		}
		if filter.Matches(&goal) {
			result = append(result, &goal)
		}
	}
	return result, rows.Err()
}

// CreateGoal stores a new goal
func (s *Store) CreateGoal(ctx context.Context, goal *models.Goal) error {
	doc, err := json.Marshal(goal)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO conclave_goals(goal_key,owner,status,doc,created_at)
VALUES($1,$2,$3,$4::jsonb,$5)
`, goal.Key.String(), goal.Key.Owner.Hex(), string(goal.Status), string(doc), goal.CreatedAt)
	if isUniqueViolation(err, "") {
		return domain.ErrAlreadyExists
	}
	return err
}

// UpdateGoal applies fn to the goal under a row lock
func (s *Store) UpdateGoal(ctx context.Context, key models.GoalKey, fn func(goal *models.Goal) error) (*models.Goal, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM conclave_goals WHERE goal_key=$1 FOR UPDATE`, key.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("goal %s: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	var goal models.Goal
	if err := json.Unmarshal(doc, &goal); err != nil {
		return nil, fmt.Errorf("corrupt goal %s: %w", key, err)
	}
	if err := fn(&goal); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&goal)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE conclave_goals SET status=$2, doc=$3::jsonb WHERE goal_key=$1`,
		key.String(), string(goal.Status), string(updated)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &goal, nil
}

// GetContribution retrieves one contributor's slot
func (s *Store) GetContribution(ctx context.Context, goal models.GoalKey, contributor common.Address) (*models.Contribution, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `
SELECT doc FROM conclave_contributions WHERE goal_key=$1 AND contributor=$2
`, goal.String(), contributionKey(contributor)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("contribution of %s to %s: %w", contributor.Hex(), goal, domain.ErrNotFound)
		}
		return nil, err
	}
	var c models.Contribution
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContributions returns a goal's contributions ordered by timestamp
func (s *Store) ListContributions(ctx context.Context, goal models.GoalKey) ([]*models.Contribution, error) {
	rows, err := s.DB.Query(ctx, `
SELECT doc FROM conclave_contributions WHERE goal_key=$1 ORDER BY ts, contributor
`, goal.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Contribution
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c models.Contribution
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// CreateContribution fills a contributor's slot
func (s *Store) CreateContribution(ctx context.Context, contribution *models.Contribution) error {
	doc, err := json.Marshal(contribution)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
INSERT INTO conclave_contributions(goal_key,contributor,ts,doc)
VALUES($1,$2,$3,$4::jsonb)
ON CONFLICT (goal_key,contributor) DO NOTHING
`, contribution.Goal.String(), contributionKey(contribution.Contributor), contribution.Timestamp, string(doc))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrContributionExists
	}
	return nil
}

// GetTransferRequest retrieves the goal's transfer slot
func (s *Store) GetTransferRequest(ctx context.Context, goal models.GoalKey) (*models.TransferRequest, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `SELECT doc FROM conclave_transfers WHERE goal_key=$1`, goal.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transfer request for %s: %w", goal, domain.ErrNotFound)
		}
		return nil, err
	}
	var t models.TransferRequest
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTransferRequest creates or overwrites the goal's pending transfer slot.
// An approved slot is never overwritten.
func (s *Store) SaveTransferRequest(ctx context.Context, request *models.TransferRequest) error {
	doc, err := json.Marshal(request)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
INSERT INTO conclave_transfers(goal_key,doc) VALUES($1,$2::jsonb)
ON CONFLICT (goal_key) DO UPDATE SET doc=EXCLUDED.doc
WHERE NOT COALESCE((conclave_transfers.doc->>'approved')::boolean, false)
`, request.Goal.String(), string(doc))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer request for %s: %w", request.Goal, domain.ErrTransferAlreadyApproved)
	}
	return nil
}

// ApproveTransferRequest locks the transfer row and the vault balance, then
// flips the approval and moves the funds in one transaction
func (s *Store) ApproveTransferRequest(ctx context.Context, goal models.GoalKey, at time.Time) (*models.TransferRequest, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM conclave_transfers WHERE goal_key=$1 FOR UPDATE`, goal.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transfer request for %s: %w", goal, domain.ErrNotFound)
		}
		return nil, err
	}
	var request models.TransferRequest
	if err := json.Unmarshal(doc, &request); err != nil {
		return nil, fmt.Errorf("corrupt transfer request %s: %w", goal, err)
	}
	if request.Approved {
		return nil, fmt.Errorf("transfer request for %s: %w", goal, domain.ErrTransferAlreadyApproved)
	}

	if err := move(ctx, tx, goal.VaultAccount(), request.Recipient, request.Amount); err != nil {
		return nil, err
	}

	request.Approved = true
	request.ApprovedAt = &at
	updated, err := json.Marshal(&request)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE conclave_transfers SET doc=$2::jsonb WHERE goal_key=$1`, goal.String(), string(updated)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &request, nil
}
