package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransferRequest is the single pending payout slot of a goal
type TransferRequest struct {
	Goal        GoalKey        `json:"goal"`
	Recipient   common.Address `json:"recipient"`
	Amount      uint64         `json:"amount"`
	RequestedAt time.Time      `json:"requestedAt"`
	Approved    bool           `json:"approved"`
	ApprovedAt  *time.Time     `json:"approvedAt,omitempty"`
}
