package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/wire"
	"github.com/trebuchet-org/conclave/internal/adapters/attestation"
	"github.com/trebuchet-org/conclave/internal/adapters/callbacks"
	"github.com/trebuchet-org/conclave/internal/adapters/circuits"
	"github.com/trebuchet-org/conclave/internal/adapters/events"
	"github.com/trebuchet-org/conclave/internal/adapters/interactive"
	"github.com/trebuchet-org/conclave/internal/adapters/keystore"
	"github.com/trebuchet-org/conclave/internal/adapters/network"
	"github.com/trebuchet-org/conclave/internal/adapters/progress"
	"github.com/trebuchet-org/conclave/internal/adapters/repository/files"
	"github.com/trebuchet-org/conclave/internal/adapters/repository/postgres"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/config"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// Store groups the persistence ports served by one backend
type Store struct {
	Goals         usecase.GoalRepository
	Contributions usecase.ContributionRepository
	Transfers     usecase.TransferRepository
	Jobs          usecase.JobTable
	Ledger        usecase.Ledger

	close func()
}

// Close releases the backend's resources
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// ProvideStore opens the configured state store
func ProvideStore(cfg *config.RuntimeConfig, log *slog.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		pool, err := postgres.Connect(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		log.Debug("using postgres store")
		return &Store{
			Goals:         store,
			Contributions: store,
			Transfers:     store,
			Jobs:          store,
			Ledger:        store,
			close:         store.Close,
		}, nil
	default:
		repo, err := files.NewFileRepository(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		log.Debug("using file store", "dir", cfg.DataDir)
		return &Store{
			Goals:         repo,
			Contributions: repo,
			Transfers:     repo,
			Jobs:          repo,
			Ledger:        repo,
		}, nil
	}
}

// StoreSet provides the persistence ports
var StoreSet = wire.NewSet(
	ProvideStore,
	wire.FieldsOf(new(*Store), "Goals", "Contributions", "Transfers", "Jobs", "Ledger"),
)

// ProvideRegistry loads the circuit registry
func ProvideRegistry(cfg *config.RuntimeConfig) (*circuit.Registry, error) {
	return circuits.Load(cfg.Circuits.Manifest, cfg.Circuits.Version)
}

// ProvideKeyStore opens the key store in the data directory
func ProvideKeyStore(cfg *config.RuntimeConfig) (*keystore.FileKeyStore, error) {
	return keystore.NewFileKeyStore(cfg.DataDir)
}

// ProvideJSONLSink opens the event log in the data directory
func ProvideJSONLSink(cfg *config.RuntimeConfig, log *slog.Logger) (*events.JSONLSink, error) {
	return events.NewJSONLSink(cfg.DataDir, log)
}

// ProvideEventSink writes every event to the log and then to subscribers
func ProvideEventSink(jsonl *events.JSONLSink, bus *events.Bus) usecase.EventSink {
	return events.Multi{jsonl, bus}
}

// ProvideClock provides the wall clock
func ProvideClock() usecase.Clock {
	return usecase.SystemClock{}
}

// ProvideOffsets provides random job offsets
func ProvideOffsets() usecase.OffsetSource {
	return usecase.RandomOffsets{}
}

// LocalSet provides keys, events and the circuit registry
var LocalSet = wire.NewSet(
	ProvideRegistry,
	ProvideKeyStore,
	wire.Bind(new(usecase.KeyStore), new(*keystore.FileKeyStore)),
	ProvideJSONLSink,
	events.NewBus,
	ProvideEventSink,
	ProvideClock,
	ProvideOffsets,
	progress.NewProgressSink,
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.GoalSelector), new(*interactive.SelectorAdapter)),
)

// ProvideCluster loads the reference cluster identity from the data
// directory, creating it on first use
func ProvideCluster(cfg *config.RuntimeConfig) (*network.Cluster, error) {
	keys, err := keystore.LoadOrCreateClusterKeys(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster keys: %w", err)
	}
	return network.NewCluster(keys.Encryption, keys.Signer), nil
}

// ProvideVerifier accepts attestations from the configured cluster address.
// Without one, local mode trusts the local cluster and remote mode asks the
// remote cluster for its signer.
func ProvideVerifier(cfg *config.RuntimeConfig, cluster *network.Cluster) usecase.ExecutionContextVerifier {
	if cfg.Network.ClusterAddress != (common.Address{}) {
		return attestation.NewVerifier(cfg.Network.ClusterAddress)
	}
	if cfg.Network.Mode == config.NetworkModeRemote {
		endpoint := cfg.Network.Endpoint
		client := &http.Client{Timeout: 30 * time.Second}
		return attestation.NewLazyVerifier(func(ctx context.Context) (common.Address, error) {
			info, err := network.FetchClusterInfo(ctx, client, endpoint)
			if err != nil {
				return common.Address{}, err
			}
			return info.Address, nil
		})
	}
	return attestation.NewVerifier(cluster.Address())
}

// Network is the configured computation network. Local is set in local
// mode so callers can wait for in-flight deliveries.
type Network struct {
	Network usecase.ComputationNetwork
	Local   *network.LocalNetwork
	Remote  *network.RemoteNetwork
}

// Drain waits for in-process deliveries
func (n *Network) Drain() {
	if n.Local != nil {
		n.Local.Drain()
	}
}

// ProvideNetwork builds the local or remote computation network
func ProvideNetwork(cfg *config.RuntimeConfig, cluster *network.Cluster, handler *usecase.HandleCallback, log *slog.Logger) (*Network, error) {
	if cfg.Network.Mode == config.NetworkModeRemote {
		remote, err := network.NewRemoteNetwork(cfg.Network.Endpoint, cfg.Network.CallbackURL, nil)
		if err != nil {
			return nil, err
		}
		return &Network{Network: remote, Remote: remote}, nil
	}
	local := network.NewLocalNetwork(cluster, handler, cfg.Network.Latency, log)
	return &Network{Network: local, Local: local}, nil
}

// ProvideClusterServer serves the local cluster over HTTP
func ProvideClusterServer(cfg *config.RuntimeConfig, cluster *network.Cluster, log *slog.Logger) *network.ClusterServer {
	return network.NewClusterServer(cluster, nil, cfg.Network.Latency, log)
}

// NetworkSet provides the computation network and its HTTP surfaces
var NetworkSet = wire.NewSet(
	ProvideCluster,
	ProvideVerifier,
	ProvideNetwork,
	wire.FieldsOf(new(*Network), "Network"),
	ProvideClusterServer,
	callbacks.NewServer,
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StoreSet,
	LocalSet,
	InteractiveSet,
	NetworkSet,
)
