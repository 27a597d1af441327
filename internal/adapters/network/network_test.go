package network_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/attestation"
	"github.com/trebuchet-org/conclave/internal/adapters/network"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

type fixture struct {
	cluster *network.Cluster
	client  *sealedbox.Sealer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, err := sealedbox.GenerateKey(nil)
	require.NoError(t, err)
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	cluster := network.NewCluster(keys, signer)

	clientKeys, err := sealedbox.GenerateKey(nil)
	require.NoError(t, err)
	client, err := sealedbox.NewSealer(clientKeys, cluster.PublicKey())
	require.NoError(t, err)
	return &fixture{cluster: cluster, client: client}
}

func (f *fixture) seal(t *testing.T, v uint64) circuit.Argument {
	t.Helper()
	s, err := f.client.Seal(v)
	require.NoError(t, err)
	return circuit.Encrypted(s)
}

func (f *fixture) addJob(t *testing.T, offset, a, b uint64) *models.ComputationJob {
	return &models.ComputationJob{
		Offset:  offset,
		Opcode:  circuit.OpcodeAddTwo,
		Circuit: "add_two_contributions",
		Version: 4,
		Inputs:  []circuit.Argument{f.seal(t, a), f.seal(t, b)},
		Status:  models.JobStatusQueued,
	}
}

func TestClusterExecute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	verifier := attestation.NewVerifier(f.cluster.Address())

	t.Run("add reveals the exact sum", func(t *testing.T) {
		result := f.cluster.Execute(f.addJob(t, 1, 400, 700))
		require.Equal(t, circuit.OutcomeSuccess, result.Outcome, result.Reason)
		assert.Equal(t, uint64(1100), result.Output.U64)
		assert.Equal(t, circuit.OutputPlaintextU64, result.Output.Kind)
		assert.NoError(t, verifier.Verify(ctx, result))
	})

	t.Run("overflowing add aborts", func(t *testing.T) {
		result := f.cluster.Execute(f.addJob(t, 2, math.MaxUint64, 1))
		assert.Equal(t, circuit.OutcomeAborted, result.Outcome)
		assert.Contains(t, result.Reason, "overflows")
		assert.Nil(t, result.Output)
		assert.NoError(t, verifier.Verify(ctx, result), "aborts are attested too")
	})

	t.Run("threshold check reveals only the comparison", func(t *testing.T) {
		for _, tt := range []struct {
			total, target uint64
			want          bool
		}{
			{1100, 1100, true},
			{1099, 1100, false},
			{0, 0, true},
		} {
			result := f.cluster.Execute(&models.ComputationJob{
				Offset:  3,
				Opcode:  circuit.OpcodeThresholdCheck,
				Circuit: "check_goal_reached",
				Version: 4,
				Inputs:  []circuit.Argument{f.seal(t, tt.total), circuit.Plaintext(tt.target)},
			})
			require.Equal(t, circuit.OutcomeSuccess, result.Outcome, result.Reason)
			assert.Equal(t, tt.want, result.Output.Bool, "%d >= %d", tt.total, tt.target)
			assert.Zero(t, result.Output.U64)
		}
	})

	t.Run("reveal re-encrypts in order to the audience", func(t *testing.T) {
		audienceKeys, err := sealedbox.GenerateKey(nil)
		require.NoError(t, err)
		audience, err := sealedbox.NewSealer(audienceKeys, f.cluster.PublicKey())
		require.NoError(t, err)
		nonce, err := sealedbox.RandomNonce()
		require.NoError(t, err)

		amounts := []uint64{5, 0, 300, 42, 7}
		inputs := make([]circuit.Argument, len(amounts))
		for i, a := range amounts {
			inputs[i] = f.seal(t, a)
		}
		result := f.cluster.Execute(&models.ComputationJob{
			Offset:      4,
			Opcode:      circuit.OpcodeRevealN,
			Circuit:     "reveal_contributions_5",
			Version:     4,
			Inputs:      inputs,
			AudienceKey: audienceKeys.Public,
			Nonce:       nonce,
		})
		require.Equal(t, circuit.OutcomeSuccess, result.Outcome, result.Reason)
		require.Len(t, result.Output.Sealed, 5)

		opened, err := audience.OpenVector(nonce, result.Output.Sealed)
		require.NoError(t, err)
		assert.Equal(t, amounts, opened)
	})

	t.Run("reveal of unsupported arity aborts", func(t *testing.T) {
		result := f.cluster.Execute(&models.ComputationJob{
			Offset:  5,
			Opcode:  circuit.OpcodeRevealN,
			Inputs:  []circuit.Argument{f.seal(t, 1), f.seal(t, 2), f.seal(t, 3)},
			Nonce:   circuit.Nonce{1},
			Circuit: "reveal_contributions_3",
		})
		assert.Equal(t, circuit.OutcomeAborted, result.Outcome)
		assert.Contains(t, result.Reason, "unsupported arity")
	})

	t.Run("plaintext where a ciphertext is expected aborts", func(t *testing.T) {
		job := f.addJob(t, 6, 1, 2)
		job.Inputs[1] = circuit.Plaintext(2)
		result := f.cluster.Execute(job)
		assert.Equal(t, circuit.OutcomeAborted, result.Outcome)
	})
}

type recordingHandler struct {
	mu      sync.Mutex
	results []*circuit.Result
}

func (h *recordingHandler) HandleResult(ctx context.Context, result *circuit.Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
	return nil
}

func TestLocalNetworkFaults(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		fault      network.Fault
		deliveries int
		check      func(t *testing.T, r *circuit.Result, verifier *attestation.Verifier)
	}{
		{
			name:       "no fault",
			deliveries: 1,
			check: func(t *testing.T, r *circuit.Result, v *attestation.Verifier) {
				assert.Equal(t, uint64(3), r.Output.U64)
				assert.NoError(t, v.Verify(ctx, r))
			},
		},
		{
			name:       "abort",
			fault:      network.FaultAbort,
			deliveries: 1,
			check: func(t *testing.T, r *circuit.Result, v *attestation.Verifier) {
				assert.Equal(t, circuit.OutcomeAborted, r.Outcome)
				assert.Equal(t, "injected abort", r.Reason)
			},
		},
		{
			name:       "forged attestation",
			fault:      network.FaultForgeAttestation,
			deliveries: 1,
			check: func(t *testing.T, r *circuit.Result, v *attestation.Verifier) {
				assert.Error(t, v.Verify(ctx, r))
			},
		},
		{name: "duplicate", fault: network.FaultDuplicate, deliveries: 2},
		{name: "drop", fault: network.FaultDrop, deliveries: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			handler := &recordingHandler{}
			local := network.NewLocalNetwork(f.cluster, handler, 0, log)

			key, err := local.PublicKey(ctx)
			require.NoError(t, err)
			assert.Equal(t, f.cluster.PublicKey(), key)

			if tt.fault != "" {
				local.InjectFault(tt.fault)
			}
			require.NoError(t, local.Enqueue(ctx, f.addJob(t, 1, 1, 2)))
			local.Drain()

			require.Len(t, handler.results, tt.deliveries)
			if tt.check != nil {
				tt.check(t, handler.results[0], attestation.NewVerifier(f.cluster.Address()))
			}
		})
	}

	t.Run("faults apply to one job each", func(t *testing.T) {
		f := newFixture(t)
		handler := &recordingHandler{}
		local := network.NewLocalNetwork(f.cluster, handler, 0, log)

		local.InjectFault(network.FaultDrop)
		require.NoError(t, local.Enqueue(ctx, f.addJob(t, 1, 1, 2)))
		local.Drain()
		require.NoError(t, local.Enqueue(ctx, f.addJob(t, 2, 1, 2)))
		local.Drain()

		require.Len(t, handler.results, 1)
		assert.Equal(t, uint64(2), handler.results[0].Offset)
	})

	t.Run("cancelled context is refused", func(t *testing.T) {
		f := newFixture(t)
		local := network.NewLocalNetwork(f.cluster, &recordingHandler{}, 0, log)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, local.Enqueue(cancelled, f.addJob(t, 1, 1, 2)), context.Canceled)
	})
}

func TestRemoteNetwork(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := newFixture(t)

	delivered := make(chan *circuit.Result, 1)
	callbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result circuit.Result
		if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		delivered <- &result
		w.WriteHeader(http.StatusOK)
	}))
	defer callbackSrv.Close()

	server := network.NewClusterServer(f.cluster, nil, 0, log)
	clusterSrv := httptest.NewServer(server.Routes())
	defer clusterSrv.Close()

	remote, err := network.NewRemoteNetwork(clusterSrv.URL+"/", callbackSrv.URL, nil)
	require.NoError(t, err)

	t.Run("publishes the cluster keys", func(t *testing.T) {
		key, err := remote.PublicKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.cluster.PublicKey(), key)

		info, err := remote.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, f.cluster.Address(), info.Address)
		assert.Equal(t, server.Info(), *info)
	})

	t.Run("results come back through the callback url", func(t *testing.T) {
		require.NoError(t, remote.Enqueue(ctx, f.addJob(t, 77, 250, 750)))
		server.Drain()

		select {
		case result := <-delivered:
			assert.Equal(t, uint64(77), result.Offset)
			require.Equal(t, circuit.OutcomeSuccess, result.Outcome, result.Reason)
			assert.Equal(t, uint64(1000), result.Output.U64)
			assert.NoError(t, attestation.NewVerifier(f.cluster.Address()).Verify(ctx, result))
		case <-time.After(5 * time.Second):
			t.Fatal("result was not delivered")
		}
	})

	t.Run("rejects a job without a callback", func(t *testing.T) {
		resp, err := http.Post(clusterSrv.URL+"/v1/jobs", "application/json", strings.NewReader(`{"job":null}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("requires an endpoint and callback url", func(t *testing.T) {
		_, err := network.NewRemoteNetwork("", callbackSrv.URL, nil)
		assert.ErrorContains(t, err, "endpoint is required")
		_, err = network.NewRemoteNetwork(clusterSrv.URL, "", nil)
		assert.ErrorContains(t, err, "callback url is required")
	})

	t.Run("unreachable cluster surfaces on first use", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		r, err := network.NewRemoteNetwork(dead.URL, callbackSrv.URL, nil)
		require.NoError(t, err)
		_, err = r.PublicKey(ctx)
		assert.ErrorContains(t, err, "failed to fetch cluster info")
	})
}
