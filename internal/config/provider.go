package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/conclave/internal/domain/config"
)

const (
	// DataDirName is the per-project state directory
	DataDirName = ".conclave"
	EnvPrefix   = "CONCLAVE"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	dataDir := v.GetString("data_dir")
	if dataDir == "" {
		dataDir = filepath.Join(projectRoot, DataDirName)
	} else if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(projectRoot, dataDir)
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        dataDir,
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		Store: config.StoreConfig{
			Driver: config.StoreDriver(strings.ToLower(v.GetString("store.driver"))),
			DSN:    v.GetString("store.dsn"),
		},
		Network: config.NetworkConfig{
			Mode:        config.NetworkMode(strings.ToLower(v.GetString("network.mode"))),
			Endpoint:    v.GetString("network.endpoint"),
			CallbackURL: v.GetString("network.callback_url"),
			Latency:     v.GetDuration("network.latency"),
		},
		Circuits: config.CircuitsConfig{
			Version:  v.GetUint32("circuits.version"),
			Manifest: v.GetString("circuits.manifest"),
		},
		Server: config.ServerConfig{
			Addr: v.GetString("server.addr"),
		},
	}

	if p := v.GetString("principal"); p != "" {
		addr, err := parseAddress("principal", p)
		if err != nil {
			return nil, err
		}
		cfg.Principal = addr
	}
	if a := v.GetString("network.cluster_address"); a != "" {
		addr, err := parseAddress("network.cluster_address", a)
		if err != nil {
			return nil, err
		}
		cfg.Network.ClusterAddress = addr
	}
	if m := cfg.Circuits.Manifest; m != "" && !filepath.IsAbs(m) {
		cfg.Circuits.Manifest = filepath.Join(projectRoot, m)
	}

	switch cfg.Store.Driver {
	case config.StoreDriverFile:
	case config.StoreDriverPostgres:
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q (expected file or postgres)", cfg.Store.Driver)
	}

	switch cfg.Network.Mode {
	case config.NetworkModeLocal:
	case config.NetworkModeRemote:
		if cfg.Network.Endpoint == "" {
			return nil, fmt.Errorf("network.endpoint is required in remote mode")
		}
		if cfg.Network.CallbackURL == "" {
			return nil, fmt.Errorf("network.callback_url is required in remote mode")
		}
	default:
		return nil, fmt.Errorf("unknown network mode %q (expected local or remote)", cfg.Network.Mode)
	}

	return cfg, nil
}

func parseAddress(key, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", key, value)
	}
	return common.HexToAddress(value), nil
}

// FindProjectRoot walks up from the current directory to the nearest
// directory holding a .conclave directory, falling back to the current
// directory
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if info, err := os.Stat(filepath.Join(dir, DataDirName)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// .env values are visible to AutomaticEnv; existing env vars win
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))

	// Set up config file
	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	// Set up environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("project_root", projectRoot)
	v.SetDefault("data_dir", "")
	v.SetDefault("principal", "")
	v.SetDefault("timeout", "2m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("json", false)
	v.SetDefault("store.driver", string(config.StoreDriverFile))
	v.SetDefault("store.dsn", "")
	v.SetDefault("network.mode", string(config.NetworkModeLocal))
	v.SetDefault("network.endpoint", "")
	v.SetDefault("network.callback_url", "")
	v.SetDefault("network.cluster_address", "")
	v.SetDefault("network.latency", "0s")
	v.SetDefault("circuits.version", 0)
	v.SetDefault("circuits.manifest", "")
	v.SetDefault("server.addr", ":8780")

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	if cmd != nil {
		bind := func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				panic(err)
			}
		}
		cmd.Flags().VisitAll(bind)
		cmd.InheritedFlags().VisitAll(bind)
	}

	return v
}
