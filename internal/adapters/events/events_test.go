package events_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/events"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

func TestJSONLSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sink, err := events.NewJSONLSink(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	goal := models.GoalKey{Owner: common.HexToAddress("0x01"), ID: 1}
	require.NoError(t, sink.Emit(ctx, &domain.GoalCreatedEvent{GoalID: goal, Name: "trip", TargetAmount: 1000}))
	require.NoError(t, sink.Emit(ctx, &domain.GoalFinalizedEvent{GoalID: goal, GoalReached: true}))

	records, err := events.ReadFile(filepath.Join(dir, events.EventsFile))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, string(domain.EventTypeGoalCreated), records[0].Type)
	assert.Equal(t, string(domain.EventTypeGoalFinalized), records[1].Type)
	assert.NotEqual(t, records[0].ID, records[1].ID)

	var created domain.GoalCreatedEvent
	require.NoError(t, json.Unmarshal(records[0].Payload, &created))
	assert.Equal(t, "trip", created.Name)
	assert.Equal(t, uint64(1000), created.TargetAmount)

	all, err := sink.ReadAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReadFileMissing(t *testing.T) {
	records, err := events.ReadFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMultiAndBus(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	var seen []string
	bus.Subscribe(func(e domain.Event) { seen = append(seen, e.EventName()) })

	rec := &events.Recorder{}
	sink := events.Multi{bus, rec}
	require.NoError(t, sink.Emit(ctx, &domain.VaultDepositedEvent{Amount: 5}))

	assert.Equal(t, []string{string(domain.EventTypeVaultDeposited)}, seen)
	assert.Equal(t, []string{string(domain.EventTypeVaultDeposited)}, rec.Names())
}
