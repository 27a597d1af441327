package circuits_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/circuits"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
)

func TestLoadDefault(t *testing.T) {
	registry, err := circuits.Load("", 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), registry.DefaultVersion())
	assert.Equal(t, []int{2}, registry.Arities(circuit.OpcodeAddTwo, 0))
	assert.Equal(t, []int{2}, registry.Arities(circuit.OpcodeThresholdCheck, 0))
	assert.Equal(t, []int{5, 10}, registry.Arities(circuit.OpcodeRevealN, 0))

	def, err := registry.Resolve(circuit.OpcodeThresholdCheck, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, "check_goal_reached@4", def.ID())
	assert.Equal(t, []circuit.ArgKind{circuit.ArgEncryptedU64, circuit.ArgPlaintextU64}, def.Params)
	assert.Equal(t, circuit.OutputPlaintextBool, def.Output)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		version uint32
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "version: 1\ncircuits:\n  - name: a\n    opcode: ADD_TWO\n    version: 1\n    params: [ENCRYPTED_U64, ENCRYPTED_U64]\n    output: PLAINTEXT_U64\n    extra: true\n",
			wantErr: "failed to parse",
		},
		{
			name:    "empty",
			yaml:    "version: 1\ncircuits: []\n",
			wantErr: "no circuits",
		},
		{
			name:    "missing opcode at version",
			yaml:    "version: 1\ncircuits:\n  - name: a\n    opcode: ADD_TWO\n    version: 1\n    params: [ENCRYPTED_U64, ENCRYPTED_U64]\n    output: PLAINTEXT_U64\n",
			wantErr: "no THRESHOLD_CHECK circuit",
		},
		{
			name:    "bad output kind",
			yaml:    "version: 1\ncircuits:\n  - name: a\n    opcode: ADD_TWO\n    version: 1\n    params: [ENCRYPTED_U64, ENCRYPTED_U64]\n    output: STRING\n",
			wantErr: "unknown output kind",
		},
		{
			name:    "version override with nothing registered",
			yaml:    string(circuits.DefaultManifest()),
			version: 9,
			wantErr: "no ADD_TWO circuit at version 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := circuits.Parse([]byte(tt.yaml), tt.version)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "circuits.yaml")
	require.NoError(t, os.WriteFile(path, circuits.DefaultManifest(), 0644))

	registry, err := circuits.Load(path, 4)
	require.NoError(t, err)
	assert.Len(t, registry.Definitions(), 4)

	_, err = circuits.Load(filepath.Join(t.TempDir(), "missing.yaml"), 0)
	assert.Error(t, err)
}
