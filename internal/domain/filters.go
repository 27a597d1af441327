package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// GoalFilter defines filtering options for goals
type GoalFilter struct {
	Owner  common.Address
	Member common.Address
	Status models.GoalStatus
}

// Matches reports whether a goal passes the filter
func (f GoalFilter) Matches(g *models.Goal) bool {
	if f.Owner != (common.Address{}) && g.Key.Owner != f.Owner {
		return false
	}
	if f.Member != (common.Address{}) && !g.IsMember(f.Member) {
		return false
	}
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	return true
}

// JobFilter defines filtering options for computation jobs
type JobFilter struct {
	Goal    *models.GoalKey
	Status  models.JobStatus
	Purpose models.JobPurpose
}

// Matches reports whether a job passes the filter
func (f JobFilter) Matches(j *models.ComputationJob) bool {
	if f.Goal != nil && (j.Goal == nil || *j.Goal != *f.Goal) {
		return false
	}
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Purpose != "" && j.Purpose != f.Purpose {
		return false
	}
	return true
}
