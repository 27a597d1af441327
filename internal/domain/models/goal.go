package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/lo"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
)

const (
	// MaxGoalNameLength is the longest allowed goal name
	MaxGoalNameLength = 50
	// MaxMembers bounds the member list, owner included
	MaxMembers = 10
)

// GoalStatus represents the lifecycle state of a goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "ACTIVE"
	GoalStatusFinalized GoalStatus = "FINALIZED"
)

// GoalKey identifies a goal: the owner plus an owner-chosen id
type GoalKey struct {
	Owner common.Address `json:"owner"`
	ID    uint64         `json:"id"`
}

// String renders the key as "<owner>/<id>"
func (k GoalKey) String() string {
	return fmt.Sprintf("%s/%d", k.Owner.Hex(), k.ID)
}

// VaultAccount is the ledger account holding the goal's funds
func (k GoalKey) VaultAccount() common.Address {
	id := make([]byte, 8)
	for i := 0; i < 8; i++ {
		id[i] = byte(k.ID >> (8 * i))
	}
	hash := crypto.Keccak256([]byte("vault"), k.Owner.Bytes(), id)
	return common.BytesToAddress(hash[12:])
}

// ParseGoalKey parses "<owner>/<id>"
func ParseGoalKey(s string) (GoalKey, error) {
	owner, id, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return GoalKey{}, fmt.Errorf("invalid goal reference %q: expected <owner>/<id>", s)
	}
	if !common.IsHexAddress(owner) {
		return GoalKey{}, fmt.Errorf("invalid goal owner %q", owner)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return GoalKey{}, fmt.Errorf("invalid goal id %q: %w", id, err)
	}
	return GoalKey{Owner: common.HexToAddress(owner), ID: n}, nil
}

// Goal is a shared savings target with confidential contributions
type Goal struct {
	Key          GoalKey          `json:"key"`
	Name         string           `json:"name"`
	TargetAmount uint64           `json:"targetAmount"`
	CurrentTotal uint64           `json:"currentTotal"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Members      []common.Address `json:"members"`
	Status       GoalStatus       `json:"status"`

	// AudienceKey addresses running totals and reveal output to the owner
	AudienceKey circuit.PublicKey `json:"audienceKey"`
	// Aggregated lists contributors already folded into CurrentTotal, in fold order
	Aggregated []common.Address `json:"aggregated"`

	CreatedAt   time.Time  `json:"createdAt"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
}

// IsOwner reports whether addr owns the goal
func (g *Goal) IsOwner(addr common.Address) bool {
	return g.Key.Owner == addr
}

// IsMember reports whether addr is in the member list
func (g *Goal) IsMember(addr common.Address) bool {
	return lo.Contains(g.Members, addr)
}

// IsAggregated reports whether addr's contribution is already in CurrentTotal
func (g *Goal) IsAggregated(addr common.Address) bool {
	return lo.Contains(g.Aggregated, addr)
}

// IsActive reports whether the goal still accepts contributions
func (g *Goal) IsActive() bool {
	return g.Status == GoalStatusActive
}

// IsFinalized reports whether the goal has been finalized
func (g *Goal) IsFinalized() bool {
	return g.Status == GoalStatusFinalized
}

// TargetReached is the amount-based finalization condition
func (g *Goal) TargetReached() bool {
	return g.CurrentTotal >= g.TargetAmount
}

// DeadlinePassed is the time-based finalization condition
func (g *Goal) DeadlinePassed(now time.Time) bool {
	return g.Deadline != nil && !now.Before(*g.Deadline)
}

// Clone returns a deep copy
func (g *Goal) Clone() *Goal {
	clone := *g
	clone.Members = append([]common.Address(nil), g.Members...)
	clone.Aggregated = append([]common.Address(nil), g.Aggregated...)
	if g.Deadline != nil {
		d := *g.Deadline
		clone.Deadline = &d
	}
	if g.FinalizedAt != nil {
		f := *g.FinalizedAt
		clone.FinalizedAt = &f
	}
	return &clone
}
