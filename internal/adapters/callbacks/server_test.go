package callbacks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/attestation"
	"github.com/trebuchet-org/conclave/internal/adapters/callbacks"
	"github.com/trebuchet-org/conclave/internal/adapters/circuits"
	"github.com/trebuchet-org/conclave/internal/adapters/events"
	"github.com/trebuchet-org/conclave/internal/adapters/repository/files"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

func newTestServer(t *testing.T) (*httptest.Server, *files.FileRepository, func(*circuit.Result)) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := files.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	handler, err := usecase.NewHandleCallback(
		circuits.MustDefault(),
		repo,
		repo,
		attestation.NewVerifier(crypto.PubkeyToAddress(key.PublicKey)),
		&events.Recorder{},
		usecase.SystemClock{},
		log,
	)
	require.NoError(t, err)

	srv := httptest.NewServer(callbacks.NewServer(handler, repo, log).Routes())
	t.Cleanup(srv.Close)

	sign := func(r *circuit.Result) {
		require.NoError(t, attestation.Sign(r, key))
	}
	return srv, repo, sign
}

func reserveCheck(t *testing.T, repo *files.FileRepository, offset uint64) {
	t.Helper()
	require.NoError(t, repo.ReserveJob(context.Background(), &models.ComputationJob{
		Offset:   offset,
		Opcode:   circuit.OpcodeThresholdCheck,
		Circuit:  "check_goal_reached",
		Version:  4,
		Status:   models.JobStatusQueued,
		QueuedAt: time.Now().UTC(),
	}))
}

func checkResult(offset uint64) *circuit.Result {
	return &circuit.Result{
		Offset:  offset,
		Circuit: "check_goal_reached",
		Version: 4,
		Outcome: circuit.OutcomeSuccess,
		Output:  &circuit.Output{Kind: circuit.OutputPlaintextBool, Bool: true},
	}
}

func post(t *testing.T, srv *httptest.Server, body any) (*http.Response, callbacks.CallbackResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/v1/callbacks", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out callbacks.CallbackResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestCallbackServer(t *testing.T) {
	srv, repo, sign := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown offset is a conflict", func(t *testing.T) {
		result := checkResult(404)
		sign(result)
		resp, _ := post(t, srv, result)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("signed result completes the job once", func(t *testing.T) {
		reserveCheck(t, repo, 7)
		result := checkResult(7)
		sign(result)

		resp, out := post(t, srv, result)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "COMPLETED", out.Status)
		assert.Equal(t, []string{"GoalCheckResult"}, out.Events)
		assert.Empty(t, out.Error)

		resp, _ = post(t, srv, result)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unsigned result aborts the job", func(t *testing.T) {
		reserveCheck(t, repo, 8)

		resp, out := post(t, srv, checkResult(8))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ABORTED", out.Status)
		assert.Equal(t, []string{"ComputationAborted"}, out.Events)
		assert.Contains(t, out.Error, "attestation rejected")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/callbacks", "application/json", bytes.NewReader([]byte(`{"offset":"x"}`)))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("job lookup", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/jobs/7")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var job models.ComputationJob
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		require.NotNil(t, job.Output)
		assert.True(t, job.Output.Bool)

		for path, status := range map[string]int{
			"/v1/jobs/999": http.StatusNotFound,
			"/v1/jobs/abc": http.StatusBadRequest,
		} {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, status, resp.StatusCode, path)
		}
	})
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- callbacks.ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
