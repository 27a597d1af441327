package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/attestation"
	"github.com/trebuchet-org/conclave/internal/adapters/circuits"
	"github.com/trebuchet-org/conclave/internal/adapters/events"
	"github.com/trebuchet-org/conclave/internal/adapters/keystore"
	"github.com/trebuchet-org/conclave/internal/adapters/network"
	"github.com/trebuchet-org/conclave/internal/adapters/repository/files"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

var (
	owner = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob   = common.HexToAddress("0x3000000000000000000000000000000000000003")
	carol = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

// fakeClock ticks forward a millisecond on every read so timestamps order
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingOffsets hands out sequential offsets
type countingOffsets struct {
	mu   sync.Mutex
	next uint64
}

func (o *countingOffsets) NextOffset() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	return 1000 + o.next, nil
}

// harness wires the use cases to the file store and an in-process network
type harness struct {
	t       *testing.T
	ctx     context.Context
	dir     string
	repo    *files.FileRepository
	keys    *keystore.FileKeyStore
	cluster *network.Cluster
	net     *network.LocalNetwork
	events  *events.Recorder
	clock   *fakeClock
	offsets *countingOffsets

	handler    *usecase.HandleCallback
	dispatcher *usecase.DispatchComputation
	create     *usecase.CreateGoal
	invite     *usecase.InviteMember
	contribute *usecase.AddContribution
	aggregate  *usecase.AggregateGoal
	check      *usecase.CheckGoal
	reveal     *usecase.RevealContributions
	finalize   *usecase.FinalizeGoal
	request    *usecase.RequestTransfer
	approve    *usecase.ApproveTransfer
	deposit    *usecase.DepositToVault
	vault      *usecase.ShowVaultBalance
	show       *usecase.ShowGoal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := files.NewFileRepository(dir)
	require.NoError(t, err)
	keys, err := keystore.NewFileKeyStore(dir)
	require.NoError(t, err)

	encryption, err := sealedbox.GenerateKey(nil)
	require.NoError(t, err)
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	cluster := network.NewCluster(encryption, signer)

	h := &harness{
		t:       t,
		ctx:     context.Background(),
		dir:     dir,
		repo:    repo,
		keys:    keys,
		cluster: cluster,
		events:  &events.Recorder{},
		clock:   newFakeClock(),
		offsets: &countingOffsets{},
	}

	registry := circuits.MustDefault()
	h.handler, err = usecase.NewHandleCallback(registry, repo, repo, attestation.NewVerifier(cluster.Address()), h.events, h.clock, log)
	require.NoError(t, err)
	h.net = network.NewLocalNetwork(cluster, h.handler, 0, log)
	t.Cleanup(h.net.Drain)

	progress := usecase.NopProgress{}
	await := usecase.NewAwaitJob(repo, progress).WithInterval(5 * time.Millisecond)
	h.dispatcher = usecase.NewDispatchComputation(registry, repo, h.net, h.clock, log)

	h.create = usecase.NewCreateGoal(repo, keys, h.events, h.clock, progress)
	h.invite = usecase.NewInviteMember(repo, h.events)
	h.contribute = usecase.NewAddContribution(repo, repo, h.events, h.clock)
	h.aggregate = usecase.NewAggregateGoal(repo, repo, keys, h.net, h.dispatcher, await, h.offsets, progress)
	h.check = usecase.NewCheckGoal(repo, keys, h.net, h.dispatcher, await, h.offsets)
	h.reveal = usecase.NewRevealContributions(repo, repo, keys, registry, h.net, h.dispatcher, await, repo, h.offsets)
	h.finalize = usecase.NewFinalizeGoal(repo, h.events, h.clock)
	h.request = usecase.NewRequestTransfer(repo, repo, h.events, h.clock)
	h.approve = usecase.NewApproveTransfer(repo, repo, h.events, h.clock)
	h.deposit = usecase.NewDepositToVault(repo, repo, h.events)
	h.vault = usecase.NewShowVaultBalance(repo, repo)
	h.show = usecase.NewShowGoal(repo, repo, repo, repo, repo, progress)
	return h
}

func (h *harness) newGoal(target uint64, deadline *time.Time, members ...common.Address) models.GoalKey {
	h.t.Helper()
	goal, err := h.create.Execute(h.ctx, usecase.CreateGoalParams{
		Owner:        owner,
		Name:         "Trip",
		TargetAmount: target,
		Deadline:     deadline,
	})
	require.NoError(h.t, err)
	for _, m := range members {
		_, err := h.invite.Execute(h.ctx, usecase.InviteMemberParams{Goal: goal.Key, Caller: owner, Member: m})
		require.NoError(h.t, err)
	}
	return goal.Key
}

func (h *harness) add(goal models.GoalKey, who common.Address, amount uint64) {
	h.t.Helper()
	sealed, err := usecase.SealAmount(h.ctx, h.net, amount)
	require.NoError(h.t, err)
	_, err = h.contribute.Execute(h.ctx, usecase.AddContributionParams{Goal: goal, Contributor: who, Sealed: sealed})
	require.NoError(h.t, err)
}

func (h *harness) aggregateAll(goal models.GoalKey) *usecase.AggregateGoalResult {
	h.t.Helper()
	result, err := h.aggregate.Execute(h.ctx, usecase.AggregateGoalParams{Goal: goal, Caller: owner, All: true})
	require.NoError(h.t, err)
	return result
}

func (h *harness) goal(key models.GoalKey) *models.Goal {
	h.t.Helper()
	g, err := h.repo.GetGoal(h.ctx, key)
	require.NoError(h.t, err)
	return g
}

func (h *harness) finalizeReached(goal models.GoalKey) {
	h.t.Helper()
	h.aggregateAll(goal)
	res, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	require.NoError(h.t, err)
	require.True(h.t, res.GoalReached)
}

func TestScenarioGoalReached(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(1000, nil, alice, bob)

	h.add(goal, owner, 400)
	h.add(goal, alice, 400)
	h.add(goal, bob, 300)

	result := h.aggregateAll(goal)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, []common.Address{owner, alice}, result.Steps[0].Folds)
	require.NotNil(t, result.Steps[0].Total)
	assert.Equal(t, uint64(800), *result.Steps[0].Total)
	assert.Equal(t, []common.Address{bob}, result.Steps[1].Folds)
	assert.Equal(t, uint64(1100), result.Goal.CurrentTotal)
	assert.Equal(t, []common.Address{owner, alice, bob}, result.Goal.Aggregated)

	checked, err := h.check.Execute(h.ctx, usecase.CheckGoalParams{Goal: goal, Caller: owner, Wait: true})
	require.NoError(t, err)
	require.NotNil(t, checked.Reached)
	assert.True(t, *checked.Reached)

	finalized, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	require.NoError(t, err)
	assert.True(t, finalized.GoalReached)
	assert.Equal(t, models.GoalStatusFinalized, finalized.Goal.Status)

	assert.Equal(t, []string{
		"GoalCreated",
		"MemberInvited",
		"MemberInvited",
		"ContributionAdded",
		"ContributionAdded",
		"ContributionAdded",
		"AggregationTotal",
		"AggregationTotal",
		"GoalCheckResult",
		"GoalFinalized",
	}, h.events.Names())
}

func TestScenarioThresholdNotReached(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(1000, nil, alice)
	h.add(goal, owner, 300)
	h.add(goal, alice, 200)
	h.aggregateAll(goal)

	checked, err := h.check.Execute(h.ctx, usecase.CheckGoalParams{Goal: goal, Caller: owner, Wait: true})
	require.NoError(t, err)
	require.NotNil(t, checked.Reached)
	assert.False(t, *checked.Reached)

	_, err = h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	assert.ErrorIs(t, err, domain.ErrCannotFinalizeYet)
	assert.Equal(t, models.GoalStatusActive, h.goal(goal).Status)
}

func TestScenarioDeadlinePassed(t *testing.T) {
	h := newHarness(t)
	deadline := h.clock.Now().Add(24 * time.Hour)
	goal := h.newGoal(5000, &deadline, alice)
	h.add(goal, owner, 100)
	h.add(goal, alice, 200)
	h.aggregateAll(goal)

	_, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	require.ErrorIs(t, err, domain.ErrCannotFinalizeYet)

	h.clock.Advance(25 * time.Hour)
	finalized, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	require.NoError(t, err)
	assert.False(t, finalized.GoalReached)
	assert.Equal(t, uint64(300), finalized.Goal.CurrentTotal)
}

func TestScenarioDeadlinePassedWithoutContributions(t *testing.T) {
	h := newHarness(t)
	deadline := h.clock.Now().Add(time.Hour)
	goal := h.newGoal(1000, &deadline, alice)

	_, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	require.ErrorIs(t, err, domain.ErrCannotFinalizeYet)

	h.clock.Advance(2 * time.Hour)
	finalized, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	require.NoError(t, err)
	assert.False(t, finalized.GoalReached)
	assert.Zero(t, finalized.Goal.CurrentTotal)
	assert.Equal(t, models.GoalStatusFinalized, h.goal(goal).Status)
	assert.Contains(t, h.events.Names(), "GoalFinalized")
}

func TestScenarioFinalizeIsOneShot(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 60)
	h.add(goal, alice, 40)
	h.finalizeReached(goal)
	before := h.goal(goal)

	_, err := h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: owner})
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.Equal(t, before, h.goal(goal))

	sealed, err := usecase.SealAmount(h.ctx, h.net, 1)
	require.NoError(t, err)
	_, err = h.contribute.Execute(h.ctx, usecase.AddContributionParams{Goal: goal, Contributor: alice, Sealed: sealed})
	assert.ErrorIs(t, err, domain.ErrGoalNotActive)
}

func TestScenarioOwnerOnlyOperations(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 50)
	h.add(goal, alice, 50)

	_, err := h.invite.Execute(h.ctx, usecase.InviteMemberParams{Goal: goal, Caller: alice, Member: bob})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.aggregate.Execute(h.ctx, usecase.AggregateGoalParams{Goal: goal, Caller: alice})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.check.Execute(h.ctx, usecase.CheckGoalParams{Goal: goal, Caller: alice})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.finalize.Execute(h.ctx, usecase.FinalizeGoalParams{Goal: goal, Caller: alice})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	sealed, err := usecase.SealAmount(h.ctx, h.net, 10)
	require.NoError(t, err)
	_, err = h.contribute.Execute(h.ctx, usecase.AddContributionParams{Goal: goal, Contributor: carol, Sealed: sealed})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.contribute.Execute(h.ctx, usecase.AddContributionParams{Goal: goal, Contributor: alice, Sealed: sealed})
	assert.ErrorIs(t, err, domain.ErrContributionExists)
}

func TestScenarioDuplicateOffset(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	g := h.goal(goal)

	audience, err := h.keys.AudienceKey(h.ctx, goal)
	require.NoError(t, err)
	sealer, err := sealedbox.NewSealer(audience, h.cluster.PublicKey())
	require.NoError(t, err)
	submit := func(offset uint64) error {
		total, err := sealer.Seal(7)
		require.NoError(t, err)
		_, err = h.dispatcher.Submit(h.ctx, usecase.SubmitParams{
			Opcode:      circuit.OpcodeThresholdCheck,
			Inputs:      []circuit.Argument{circuit.Encrypted(total), circuit.Plaintext(5)},
			AudienceKey: g.AudienceKey,
			Nonce:       total.Nonce,
			Offset:      offset,
			Goal:        &goal,
			Purpose:     models.JobPurposeCheck,
		})
		return err
	}

	t.Run("reuse after success", func(t *testing.T) {
		h.net.InjectFault(network.FaultDrop)
		require.NoError(t, submit(42))
		h.net.Drain()

		assert.ErrorIs(t, submit(42), domain.ErrDuplicateJobOffset)

		// resolve the dropped job by hand, freeing the offset
		job, err := h.repo.GetJob(h.ctx, 42)
		require.NoError(t, err)
		first := h.cluster.Execute(job)
		_, err = h.handler.Execute(h.ctx, first)
		require.NoError(t, err)

		require.NoError(t, submit(42))
		h.net.Drain()
		job, err = h.repo.GetJob(h.ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		assert.True(t, job.Output.Bool)

		// a late copy of the first result finds the reused offset resolved
		_, err = h.handler.Execute(h.ctx, first)
		assert.ErrorIs(t, err, domain.ErrStaleJob)
	})

	t.Run("reuse after abort", func(t *testing.T) {
		h.net.InjectFault(network.FaultAbort)
		require.NoError(t, submit(43))
		h.net.Drain()

		job, err := h.repo.GetJob(h.ctx, 43)
		require.NoError(t, err)
		require.Equal(t, models.JobStatusAborted, job.Status)
		aborted := h.cluster.Execute(job)

		require.NoError(t, submit(43))
		h.net.Drain()
		job, err = h.repo.GetJob(h.ctx, 43)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		assert.True(t, job.Output.Bool)

		_, err = h.handler.Execute(h.ctx, aborted)
		assert.ErrorIs(t, err, domain.ErrStaleJob)
		job, err = h.repo.GetJob(h.ctx, 43)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
	})
}

func TestScenarioSingleFoldInFlight(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice, bob)
	h.add(goal, owner, 10)
	h.add(goal, alice, 20)
	h.add(goal, bob, 30)

	h.net.InjectFault(network.FaultDrop)
	_, err := h.aggregate.Execute(h.ctx, usecase.AggregateGoalParams{Goal: goal, Caller: owner})
	require.NoError(t, err)
	h.net.Drain()

	_, err = h.aggregate.Execute(h.ctx, usecase.AggregateGoalParams{Goal: goal, Caller: owner})
	assert.ErrorIs(t, err, domain.ErrAggregationInFlight)
}

func TestScenarioDuplicateDeliveryAppliedOnce(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 10)
	h.add(goal, alice, 20)

	h.net.InjectFault(network.FaultDuplicate)
	result := h.aggregateAll(goal)
	h.net.Drain()

	assert.Equal(t, uint64(30), result.Goal.CurrentTotal)
	assert.Equal(t, uint64(30), h.goal(goal).CurrentTotal)
	assert.Equal(t, []common.Address{owner, alice}, h.goal(goal).Aggregated)

	var totals int
	for _, name := range h.events.Names() {
		if name == "AggregationTotal" {
			totals++
		}
	}
	assert.Equal(t, 1, totals)
}

func TestScenarioAbortedComputation(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 10)
	h.add(goal, alice, 20)

	h.net.InjectFault(network.FaultAbort)
	result, err := h.aggregate.Execute(h.ctx, usecase.AggregateGoalParams{Goal: goal, Caller: owner, Wait: true})
	require.ErrorIs(t, err, domain.ErrAbortedComputation)
	require.Len(t, result.Steps, 1)

	job, err := h.repo.GetJob(h.ctx, result.Steps[0].Job.Offset)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAborted, job.Status)
	assert.Equal(t, "injected abort", job.Reason)

	g := h.goal(goal)
	assert.Zero(t, g.CurrentTotal)
	assert.Empty(t, g.Aggregated)
	assert.Contains(t, h.events.Names(), "ComputationAborted")

	// the goal is free to aggregate again
	assert.Equal(t, uint64(30), h.aggregateAll(goal).Goal.CurrentTotal)
}

func TestScenarioForgedAttestation(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 10)
	h.add(goal, alice, 20)

	h.net.InjectFault(network.FaultForgeAttestation)
	result, err := h.check.Execute(h.ctx, usecase.CheckGoalParams{Goal: goal, Caller: owner, Wait: true})
	require.ErrorIs(t, err, domain.ErrAbortedComputation)
	assert.Nil(t, result.Reached)

	job, err := h.repo.GetJob(h.ctx, result.Job.Offset)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAborted, job.Status)
	assert.Contains(t, job.Reason, "attestation rejected")
	assert.NotContains(t, h.events.Names(), "GoalCheckResult")
}

func TestScenarioRevealOrder(t *testing.T) {
	for _, tc := range []struct {
		name    string
		amounts []uint64
		circuit string
	}{
		{name: "fits five", amounts: []uint64{5, 4, 3, 2, 1}, circuit: "reveal_contributions_5"},
		{name: "padded to ten", amounts: []uint64{70, 10, 60, 20, 50, 30, 40}, circuit: "reveal_contributions_10"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			contributors := []common.Address{owner}
			var target uint64
			for i := range tc.amounts {
				if i > 0 {
					contributors = append(contributors, common.BigToAddress(big.NewInt(int64(0x100+i))))
				}
				target += tc.amounts[i]
			}
			goal := h.newGoal(target, nil, contributors[1:]...)
			for i, who := range contributors {
				h.add(goal, who, tc.amounts[i])
			}

			_, err := h.reveal.Execute(h.ctx, usecase.RevealContributionsParams{Goal: goal, Caller: owner, Wait: true})
			require.ErrorIs(t, err, domain.ErrGoalNotFinalized)

			h.finalizeReached(goal)

			_, err = h.reveal.Execute(h.ctx, usecase.RevealContributionsParams{Goal: goal, Caller: contributors[1], Wait: true})
			require.ErrorIs(t, err, domain.ErrUnauthorized)

			result, err := h.reveal.Execute(h.ctx, usecase.RevealContributionsParams{Goal: goal, Caller: owner, Wait: true})
			require.NoError(t, err)
			assert.Equal(t, tc.circuit, result.Job.Circuit)
			require.Len(t, result.Amounts, len(tc.amounts))
			for i, a := range result.Amounts {
				assert.Equal(t, contributors[i], a.Contributor)
				assert.Equal(t, tc.amounts[i], a.Amount)
			}

			reopened, err := h.reveal.OpenOffset(h.ctx, result.Job.Offset)
			require.NoError(t, err)
			assert.Equal(t, result.Amounts, reopened)
		})
	}
}

func TestScenarioTransferApprovedOnce(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 60)
	h.add(goal, alice, 40)

	_, err := h.request.Execute(h.ctx, usecase.RequestTransferParams{Goal: goal, Caller: owner, Recipient: carol, Amount: 90})
	assert.ErrorIs(t, err, domain.ErrGoalNotFinalized)

	h.finalizeReached(goal)

	_, err = h.request.Execute(h.ctx, usecase.RequestTransferParams{Goal: goal, Caller: alice, Recipient: carol, Amount: 90})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.request.Execute(h.ctx, usecase.RequestTransferParams{Goal: goal, Caller: owner, Recipient: carol, Amount: 90})
	require.NoError(t, err)

	_, err = h.approve.Execute(h.ctx, usecase.ApproveTransferParams{Goal: goal, Caller: owner})
	assert.ErrorIs(t, err, domain.ErrInsufficientVaultBalance)

	balance, err := h.deposit.Execute(h.ctx, usecase.DepositToVaultParams{Goal: goal, Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance.Balance)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.approve.Execute(h.ctx, usecase.ApproveTransferParams{Goal: goal, Caller: owner})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, domain.ErrTransferAlreadyApproved) {
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, rejected)

	vault, err := h.vault.Run(h.ctx, goal)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), vault.Balance)
	recipient, err := h.repo.Balance(h.ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), recipient)

	_, err = h.request.Execute(h.ctx, usecase.RequestTransferParams{Goal: goal, Caller: owner, Recipient: bob, Amount: 5})
	assert.ErrorIs(t, err, domain.ErrTransferAlreadyApproved)
}

func TestScenarioTransferApprovedOnceAcrossProcesses(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 60)
	h.add(goal, alice, 40)
	h.finalizeReached(goal)

	_, err := h.request.Execute(h.ctx, usecase.RequestTransferParams{Goal: goal, Caller: owner, Recipient: carol, Amount: 40})
	require.NoError(t, err)
	_, err = h.deposit.Execute(h.ctx, usecase.DepositToVaultParams{Goal: goal, Amount: 1000})
	require.NoError(t, err)

	// each approver has its own store handle, as separate CLI processes would
	const approvers = 8
	var wg sync.WaitGroup
	results := make(chan error, approvers)
	for i := 0; i < approvers; i++ {
		repo, err := files.NewFileRepository(h.dir)
		require.NoError(t, err)
		approve := usecase.NewApproveTransfer(repo, repo, &events.Recorder{}, h.clock)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := approve.Execute(h.ctx, usecase.ApproveTransferParams{Goal: goal, Caller: owner})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrTransferAlreadyApproved)
	}
	assert.Equal(t, 1, succeeded)

	recipient, err := h.repo.Balance(h.ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), recipient)
	vault, err := h.vault.Run(h.ctx, goal)
	require.NoError(t, err)
	assert.Equal(t, uint64(960), vault.Balance)
}

func TestScenarioShowGoal(t *testing.T) {
	h := newHarness(t)
	goal := h.newGoal(100, nil, alice)
	h.add(goal, owner, 60)
	h.add(goal, alice, 40)
	h.finalizeReached(goal)

	details, err := h.show.Run(h.ctx, goal)
	require.NoError(t, err)
	assert.Equal(t, goal, details.Goal.Key)
	assert.Len(t, details.Contributions, 2)
	assert.Nil(t, details.Transfer)
	require.NotNil(t, details.Vault)
	assert.Equal(t, goal.VaultAccount(), details.Vault.Vault)
	require.Len(t, details.Jobs, 1)
	assert.Equal(t, models.JobPurposeFold, details.Jobs[0].Purpose)
}
