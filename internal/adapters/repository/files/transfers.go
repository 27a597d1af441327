package files

import (
	"context"
	"fmt"
	"time"

	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// GetTransferRequest retrieves the goal's transfer slot
func (r *FileRepository) GetTransferRequest(ctx context.Context, goal models.GoalKey) (*models.TransferRequest, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(TransfersFile); err != nil {
		return nil, err
	}
	t, ok := r.transfers[goal.String()]
	if !ok {
		return nil, fmt.Errorf("transfer request for %s: %w", goal, domain.ErrNotFound)
	}
	clone := *t
	return &clone, nil
}

// SaveTransferRequest creates or overwrites the goal's pending transfer slot.
// An approved slot is never overwritten.
func (r *FileRepository) SaveTransferRequest(ctx context.Context, request *models.TransferRequest) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := r.refresh(TransfersFile); err != nil {
		return err
	}
	key := request.Goal.String()
	if existing, ok := r.transfers[key]; ok && existing.Approved {
		return fmt.Errorf("transfer request for %s: %w", request.Goal, domain.ErrTransferAlreadyApproved)
	}
	previous := r.transfers[key]
	clone := *request
	r.transfers[key] = &clone
	if err := r.saveFile(TransfersFile, r.transfers); err != nil {
		r.restoreTransfer(key, previous)
		return err
	}
	return nil
}

// ApproveTransferRequest flips the goal's pending request to approved and
// moves its amount from the goal vault to the recipient under one lock.
// The approval is written before the ledger and rolled back if the ledger
// write fails, so a crash in between leaves the slot approved but unpaid
// rather than payable twice.
func (r *FileRepository) ApproveTransferRequest(ctx context.Context, goal models.GoalKey, at time.Time) (*models.TransferRequest, error) {
	unlock, err := r.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.refresh(TransfersFile); err != nil {
		return nil, err
	}
	if err := r.refresh(LedgerFile); err != nil {
		return nil, err
	}

	key := goal.String()
	stored, ok := r.transfers[key]
	if !ok {
		return nil, fmt.Errorf("transfer request for %s: %w", goal, domain.ErrNotFound)
	}
	if stored.Approved {
		return nil, fmt.Errorf("transfer request for %s: %w", goal, domain.ErrTransferAlreadyApproved)
	}

	vault := goal.VaultAccount()
	fromBefore, toBefore := r.balances[vault], r.balances[stored.Recipient]
	if fromBefore < stored.Amount {
		return nil, fmt.Errorf("%w: vault holds %d, transfer needs %d", domain.ErrInsufficientVaultBalance, fromBefore, stored.Amount)
	}
	if vault != stored.Recipient && toBefore+stored.Amount < toBefore {
		return nil, domain.BadArgumentsf("transfer of %d overflows balance of %s", stored.Amount, stored.Recipient.Hex())
	}

	approved := *stored
	approved.Approved = true
	approved.ApprovedAt = &at
	r.transfers[key] = &approved
	if err := r.saveFile(TransfersFile, r.transfers); err != nil {
		r.transfers[key] = stored
		return nil, err
	}

	if vault != stored.Recipient {
		r.balances[vault] = fromBefore - stored.Amount
		r.balances[stored.Recipient] = toBefore + stored.Amount
		if err := r.saveFile(LedgerFile, r.balances); err != nil {
			r.balances[vault], r.balances[stored.Recipient] = fromBefore, toBefore
			r.transfers[key] = stored
			if rollbackErr := r.saveFile(TransfersFile, r.transfers); rollbackErr != nil {
				r.transfers[key] = &approved
				return nil, fmt.Errorf("transfer approved but funds not moved: %w", err)
			}
			return nil, err
		}
	}

	result := approved
	return &result, nil
}

func (r *FileRepository) restoreTransfer(key string, previous *models.TransferRequest) {
	if previous == nil {
		delete(r.transfers, key)
		return
	}
	r.transfers[key] = previous
}
