package circuit

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownCircuit is returned when no definition matches a lookup
	ErrUnknownCircuit = errors.New("unknown circuit")

	// ErrArgumentMismatch is returned when inputs don't match a definition
	ErrArgumentMismatch = errors.New("argument mismatch")
)

// Definition describes one registered circuit: what it is called, which
// opcode it implements, the arguments it takes and what it returns.
type Definition struct {
	Name    string     `yaml:"name" json:"name"`
	Opcode  Opcode     `yaml:"opcode" json:"opcode"`
	Version uint32     `yaml:"version" json:"version"`
	Params  []ArgKind  `yaml:"params" json:"params"`
	Output  OutputKind `yaml:"output" json:"output"`
}

// Arity is the number of inputs the circuit takes
func (d Definition) Arity() int {
	return len(d.Params)
}

// ID returns the versioned identifier, e.g. "add_two_contributions@4"
func (d Definition) ID() string {
	return fmt.Sprintf("%s@%d", d.Name, d.Version)
}

// CheckInputs validates arity and argument kinds
func (d Definition) CheckInputs(inputs []Argument) error {
	if len(inputs) != len(d.Params) {
		return fmt.Errorf("%w: %s takes %d inputs, got %d", ErrArgumentMismatch, d.ID(), len(d.Params), len(inputs))
	}
	for i, kind := range d.Params {
		if err := inputs[i].Validate(kind); err != nil {
			return fmt.Errorf("%w: input %d of %s: %v", ErrArgumentMismatch, i, d.ID(), err)
		}
	}
	return nil
}

func (d Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("circuit definition has no name")
	}
	if !d.Opcode.Valid() {
		return fmt.Errorf("circuit %s: unknown opcode %q", d.Name, d.Opcode)
	}
	if len(d.Params) == 0 {
		return fmt.Errorf("circuit %s: no params", d.Name)
	}
	for _, p := range d.Params {
		if p != ArgEncryptedU64 && p != ArgPlaintextU64 {
			return fmt.Errorf("circuit %s: unknown param kind %q", d.Name, p)
		}
	}
	switch d.Output {
	case OutputPlaintextU64, OutputPlaintextBool, OutputSealedU64Vector:
	default:
		return fmt.Errorf("circuit %s: unknown output kind %q", d.Name, d.Output)
	}
	return nil
}

type registryKey struct {
	opcode  Opcode
	version uint32
	arity   int
}

// Registry resolves (opcode, version, arity) to a circuit definition.
// It is immutable once built.
type Registry struct {
	defaultVersion uint32
	byKey          map[registryKey]Definition
	byName         map[string]Definition
}

// NewRegistry builds a registry from definitions. defaultVersion is used
// when a lookup passes version 0.
func NewRegistry(defaultVersion uint32, defs []Definition) (*Registry, error) {
	r := &Registry{
		defaultVersion: defaultVersion,
		byKey:          make(map[registryKey]Definition),
		byName:         make(map[string]Definition),
	}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		key := registryKey{opcode: d.Opcode, version: d.Version, arity: d.Arity()}
		if existing, ok := r.byKey[key]; ok {
			return nil, fmt.Errorf("circuits %s and %s collide on %s/v%d/%d", existing.ID(), d.ID(), d.Opcode, d.Version, d.Arity())
		}
		if _, ok := r.byName[d.ID()]; ok {
			return nil, fmt.Errorf("duplicate circuit %s", d.ID())
		}
		r.byKey[key] = d
		r.byName[d.ID()] = d
	}
	return r, nil
}

// DefaultVersion returns the version used when callers don't pin one
func (r *Registry) DefaultVersion() uint32 {
	return r.defaultVersion
}

// Resolve finds the definition for an opcode at the given version and arity
func (r *Registry) Resolve(opcode Opcode, version uint32, arity int) (Definition, error) {
	if version == 0 {
		version = r.defaultVersion
	}
	d, ok := r.byKey[registryKey{opcode: opcode, version: version, arity: arity}]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s v%d with %d inputs", ErrUnknownCircuit, opcode, version, arity)
	}
	return d, nil
}

// Lookup finds a definition by name and version
func (r *Registry) Lookup(name string, version uint32) (Definition, error) {
	d, ok := r.byName[fmt.Sprintf("%s@%d", name, version)]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s@%d", ErrUnknownCircuit, name, version)
	}
	return d, nil
}

// Arities lists the registered input counts for an opcode at a version, ascending
func (r *Registry) Arities(opcode Opcode, version uint32) []int {
	if version == 0 {
		version = r.defaultVersion
	}
	var out []int
	for k := range r.byKey {
		if k.opcode == opcode && k.version == version {
			out = append(out, k.arity)
		}
	}
	sort.Ints(out)
	return out
}

// Opcodes returns every opcode with at least one registered definition
func (r *Registry) Opcodes() []Opcode {
	seen := make(map[Opcode]bool)
	var out []Opcode
	for k := range r.byKey {
		if !seen[k.opcode] {
			seen[k.opcode] = true
			out = append(out, k.opcode)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Definitions returns all definitions sorted by ID
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
