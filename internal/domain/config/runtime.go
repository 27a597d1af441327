package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// StoreDriver selects the state store backend
type StoreDriver string

const (
	StoreDriverFile     StoreDriver = "file"
	StoreDriverPostgres StoreDriver = "postgres"
)

// NetworkMode selects how jobs reach the computation network
type NetworkMode string

const (
	// NetworkModeLocal runs the reference cluster in-process
	NetworkModeLocal NetworkMode = "local"
	// NetworkModeRemote posts jobs to a cluster endpoint and receives
	// results on the callback server
	NetworkModeRemote NetworkMode = "remote"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Principal is the address the CLI acts as
	Principal common.Address

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	Store    StoreConfig
	Network  NetworkConfig
	Circuits CircuitsConfig
	Server   ServerConfig
}

// StoreConfig configures persistence
type StoreConfig struct {
	Driver StoreDriver
	DSN    string // postgres only
}

// NetworkConfig configures the computation network
type NetworkConfig struct {
	Mode        NetworkMode
	Endpoint    string // remote only
	CallbackURL string // remote only, where the cluster posts results
	// ClusterAddress is the signer whose attestations are accepted. When
	// empty in local mode, the local cluster's own address is used.
	ClusterAddress common.Address
	// Latency delays local result delivery
	Latency time.Duration
}

// CircuitsConfig configures the circuit registry
type CircuitsConfig struct {
	Version  uint32
	Manifest string // optional path overriding the embedded manifest
}

// ServerConfig configures the HTTP surfaces
type ServerConfig struct {
	Addr string
}
