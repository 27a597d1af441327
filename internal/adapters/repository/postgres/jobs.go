package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

func jobGoalKey(job *models.ComputationJob) *string {
	if job.Goal == nil {
		return nil
	}
	s := job.Goal.String()
	return &s
}

// ReserveJob records a queued job. A terminal job under the same offset is
// replaced.
func (s *Store) ReserveJob(ctx context.Context, job *models.ComputationJob) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
INSERT INTO conclave_jobs(job_offset,goal_key,purpose,status,doc)
VALUES($1,$2,$3,$4,$5::jsonb)
ON CONFLICT (job_offset) DO UPDATE
  SET goal_key=EXCLUDED.goal_key, purpose=EXCLUDED.purpose, status=EXCLUDED.status, doc=EXCLUDED.doc
  WHERE conclave_jobs.status <> 'QUEUED'
`, offsetKey(job.Offset), jobGoalKey(job), string(job.Purpose), string(job.Status), string(doc))
	if err != nil {
		if isUniqueViolation(err, foldIndex) {
			return fmt.Errorf("goal %s: %w", job.Goal, domain.ErrAggregationInFlight)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offset %d: %w", job.Offset, domain.ErrDuplicateJobOffset)
	}
	return nil
}

// ReleaseJob drops a queued reservation
func (s *Store) ReleaseJob(ctx context.Context, offset uint64) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM conclave_jobs WHERE job_offset=$1 AND status='QUEUED'`, offsetKey(offset))
	return err
}

// ResolveJob moves a queued job to a terminal status under a row lock
func (s *Store) ResolveJob(ctx context.Context, offset uint64, res models.JobResolution) (*models.ComputationJob, error) {
	if !res.Status.Terminal() {
		return nil, domain.BadArgumentsf("cannot resolve job to %s", res.Status)
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM conclave_jobs WHERE job_offset=$1 FOR UPDATE`, offsetKey(offset)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown offset %d", domain.ErrStaleJob, offset)
		}
		return nil, err
	}
	var job models.ComputationJob
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, err
	}
	if !job.IsQueued() {
		return nil, fmt.Errorf("%w: offset %d is %s", domain.ErrStaleJob, offset, job.Status)
	}

	job.Apply(res)
	updated, err := json.Marshal(&job)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE conclave_jobs SET status=$2, doc=$3::jsonb WHERE job_offset=$1`,
		offsetKey(offset), string(job.Status), string(updated)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob retrieves a job by offset
func (s *Store) GetJob(ctx context.Context, offset uint64) (*models.ComputationJob, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `SELECT doc FROM conclave_jobs WHERE job_offset=$1`, offsetKey(offset)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %d: %w", offset, domain.ErrNotFound)
		}
		return nil, err
	}
	var job models.ComputationJob
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs retrieves jobs matching the filter
func (s *Store) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*models.ComputationJob, error) {
	query := `SELECT doc FROM conclave_jobs`
	var args []any
	if filter.Goal != nil {
		query += ` WHERE goal_key=$1`
		args = append(args, filter.Goal.String())
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.ComputationJob
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var job models.ComputationJob
		if err := json.Unmarshal(doc, &job); err != nil {
			return nil, err
		}
		if filter.Matches(&job) {
			result = append(result, &job)
		}
	}
	return result, rows.Err()
}

func scanBalance(row pgx.Row) (uint64, error) {
	var text string
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseUint(text, 10, 64)
}

// Balance returns an account's balance
func (s *Store) Balance(ctx context.Context, account common.Address) (uint64, error) {
	return scanBalance(s.DB.QueryRow(ctx, `SELECT balance::text FROM conclave_ledger WHERE account=$1`, account.Hex()))
}

// Credit adds amount to an account and returns the new balance
func (s *Store) Credit(ctx context.Context, account common.Address, amount uint64) (uint64, error) {
	balance, err := scanBalance(s.DB.QueryRow(ctx, `
INSERT INTO conclave_ledger(account,balance) VALUES($1,$2::numeric)
ON CONFLICT (account) DO UPDATE SET balance=conclave_ledger.balance+EXCLUDED.balance
RETURNING balance::text
`, account.Hex(), strconv.FormatUint(amount, 10)))
	if err != nil {
		return 0, fmt.Errorf("failed to credit %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// move debits from and credits to inside tx, holding the from row lock
func move(ctx context.Context, tx pgx.Tx, from, to common.Address, amount uint64) error {
	balance, err := scanBalance(tx.QueryRow(ctx, `SELECT balance::text FROM conclave_ledger WHERE account=$1 FOR UPDATE`, from.Hex()))
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", domain.ErrInsufficientVaultBalance, from.Hex(), balance, amount)
	}

	value := strconv.FormatUint(amount, 10)
	if _, err := tx.Exec(ctx, `UPDATE conclave_ledger SET balance=balance-$2::numeric WHERE account=$1`, from.Hex(), value); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO conclave_ledger(account,balance) VALUES($1,$2::numeric)
ON CONFLICT (account) DO UPDATE SET balance=conclave_ledger.balance+EXCLUDED.balance
`, to.Hex(), value)
	return err
}
