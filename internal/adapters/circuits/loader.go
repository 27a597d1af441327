// Package circuits loads the circuit registry from a YAML manifest.
package circuits

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

// Manifest is the on-disk shape of a circuit manifest
type Manifest struct {
	Version  uint32               `yaml:"version"`
	Circuits []circuit.Definition `yaml:"circuits"`
}

// DefaultManifest returns the embedded manifest bytes
func DefaultManifest() []byte {
	return append([]byte(nil), defaultManifest...)
}

// Load builds a registry from the manifest at path, or from the embedded
// manifest when path is empty. A non-zero version overrides the manifest's
// default version.
func Load(path string, version uint32) (*circuit.Registry, error) {
	data := defaultManifest
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read circuit manifest: %w", err)
		}
	}
	return Parse(data, version)
}

// Parse builds a registry from manifest bytes
func Parse(data []byte, version uint32) (*circuit.Registry, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse circuit manifest: %w", err)
	}
	if len(m.Circuits) == 0 {
		return nil, fmt.Errorf("circuit manifest declares no circuits")
	}

	if version == 0 {
		version = m.Version
	}
	if version == 0 {
		return nil, fmt.Errorf("circuit manifest has no default version")
	}

	registry, err := circuit.NewRegistry(version, m.Circuits)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit manifest: %w", err)
	}
	for _, op := range []circuit.Opcode{circuit.OpcodeAddTwo, circuit.OpcodeThresholdCheck, circuit.OpcodeRevealN} {
		if len(registry.Arities(op, version)) == 0 {
			return nil, fmt.Errorf("circuit manifest has no %s circuit at version %d", op, version)
		}
	}
	return registry, nil
}

// MustDefault returns the registry built from the embedded manifest
func MustDefault() *circuit.Registry {
	r, err := Load("", 0)
	if err != nil {
		panic(err)
	}
	return r
}
