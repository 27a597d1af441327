package network

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/conclave/internal/adapters/attestation"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

var (
	// ErrOverflow is returned when a sum doesn't fit in a u64
	ErrOverflow = errors.New("sum overflows u64")
	// ErrArity is returned for unsupported input counts
	ErrArity = errors.New("unsupported arity")
)

// RevealArities are the vector sizes the reveal circuit supports
var RevealArities = []int{5, 10}

// Cluster is the reference computation network. It decrypts sealed inputs
// with its x25519 key, evaluates the circuit and signs the result with its
// secp256k1 key.
type Cluster struct {
	keys   *sealedbox.KeyPair
	signer *ecdsa.PrivateKey
}

var _ circuit.Contract = (*Cluster)(nil)

// NewCluster creates a cluster from its key material
func NewCluster(keys *sealedbox.KeyPair, signer *ecdsa.PrivateKey) *Cluster {
	return &Cluster{keys: keys, signer: signer}
}

// PublicKey is the key clients seal inputs to
func (c *Cluster) PublicKey() circuit.PublicKey {
	return c.keys.Public
}

// Address is the attestation signer
func (c *Cluster) Address() common.Address {
	return crypto.PubkeyToAddress(c.signer.PublicKey)
}

func (c *Cluster) open(s circuit.Sealed) (uint64, error) {
	shared, err := c.keys.Shared(s.PublicKey)
	if err != nil {
		return 0, err
	}
	return sealedbox.Open(shared, s.Nonce, s.Ciphertext)
}

// PairwiseAdd reveals a+b
func (c *Cluster) PairwiseAdd(a, b circuit.Sealed) (uint64, error) {
	x, err := c.open(a)
	if err != nil {
		return 0, fmt.Errorf("first operand: %w", err)
	}
	y, err := c.open(b)
	if err != nil {
		return 0, fmt.Errorf("second operand: %w", err)
	}
	if x > math.MaxUint64-y {
		return 0, ErrOverflow
	}
	return x + y, nil
}

// ThresholdCheck reveals only total >= target
func (c *Cluster) ThresholdCheck(total circuit.Sealed, target uint64) (bool, error) {
	x, err := c.open(total)
	if err != nil {
		return false, err
	}
	return x >= target, nil
}

// RevealN re-encrypts values in order to audience under nonce
func (c *Cluster) RevealN(values []circuit.Sealed, audience circuit.PublicKey, nonce circuit.Nonce) ([]circuit.Ciphertext, error) {
	supported := false
	for _, n := range RevealArities {
		if len(values) == n {
			supported = true
		}
	}
	if !supported {
		return nil, fmt.Errorf("%w: reveal of %d values", ErrArity, len(values))
	}

	shared, err := c.keys.Shared(audience)
	if err != nil {
		return nil, err
	}
	out := make([]circuit.Ciphertext, len(values))
	for i, s := range values {
		v, err := c.open(s)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i], err = sealedbox.SealAt(shared, nonce, uint32(i), v)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Execute evaluates a job and returns its signed result. Every failure
// produces an aborted result.
func (c *Cluster) Execute(job *models.ComputationJob) *circuit.Result {
	result := &circuit.Result{
		Offset:  job.Offset,
		Circuit: job.Circuit,
		Version: job.Version,
	}

	output, err := c.evaluate(job)
	if err != nil {
		result.Outcome = circuit.OutcomeAborted
		result.Reason = err.Error()
	} else {
		result.Outcome = circuit.OutcomeSuccess
		result.Output = output
	}

	if err := attestation.Sign(result, c.signer); err != nil {
		result.Outcome = circuit.OutcomeAborted
		result.Output = nil
		result.Reason = err.Error()
	}
	return result
}

func (c *Cluster) evaluate(job *models.ComputationJob) (*circuit.Output, error) {
	sealed := func(i int) (circuit.Sealed, error) {
		if i >= len(job.Inputs) || job.Inputs[i].Kind != circuit.ArgEncryptedU64 || job.Inputs[i].Sealed == nil {
			return circuit.Sealed{}, fmt.Errorf("input %d is not an encrypted value", i)
		}
		return *job.Inputs[i].Sealed, nil
	}

	switch job.Opcode {
	case circuit.OpcodeAddTwo:
		if len(job.Inputs) != 2 {
			return nil, fmt.Errorf("%w: add of %d values", ErrArity, len(job.Inputs))
		}
		a, err := sealed(0)
		if err != nil {
			return nil, err
		}
		b, err := sealed(1)
		if err != nil {
			return nil, err
		}
		sum, err := c.PairwiseAdd(a, b)
		if err != nil {
			return nil, err
		}
		return &circuit.Output{Kind: circuit.OutputPlaintextU64, U64: sum}, nil

	case circuit.OpcodeThresholdCheck:
		if len(job.Inputs) != 2 || job.Inputs[1].Kind != circuit.ArgPlaintextU64 {
			return nil, fmt.Errorf("threshold check takes an encrypted total and a plaintext target")
		}
		total, err := sealed(0)
		if err != nil {
			return nil, err
		}
		reached, err := c.ThresholdCheck(total, job.Inputs[1].Value)
		if err != nil {
			return nil, err
		}
		return &circuit.Output{Kind: circuit.OutputPlaintextBool, Bool: reached}, nil

	case circuit.OpcodeRevealN:
		values := make([]circuit.Sealed, len(job.Inputs))
		for i := range job.Inputs {
			s, err := sealed(i)
			if err != nil {
				return nil, err
			}
			values[i] = s
		}
		out, err := c.RevealN(values, job.AudienceKey, job.Nonce)
		if err != nil {
			return nil, err
		}
		return &circuit.Output{Kind: circuit.OutputSealedU64Vector, Sealed: out}, nil
	}
	return nil, fmt.Errorf("unknown opcode %q", job.Opcode)
}
