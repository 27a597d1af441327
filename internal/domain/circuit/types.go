package circuit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Sizes of the opaque values exchanged with the computation network.
const (
	CiphertextSize = 32
	NonceSize      = 16
	PublicKeySize  = 32
)

// Ciphertext is an encrypted u64 as produced by the client scheme.
type Ciphertext [CiphertextSize]byte

// Nonce is the per-message nonce used by the client scheme.
type Nonce [NonceSize]byte

// PublicKey is an x25519 public key used to address ciphertexts.
type PublicKey [PublicKeySize]byte

func (c Ciphertext) String() string { return "0x" + hex.EncodeToString(c[:]) }
func (n Nonce) String() string      { return "0x" + hex.EncodeToString(n[:]) }
func (k PublicKey) String() string  { return "0x" + hex.EncodeToString(k[:]) }

// IsZero reports whether the key is all zeroes
func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// IsZero reports whether the nonce is all zeroes
func (n Nonce) IsZero() bool { return n == Nonce{} }

func (c Ciphertext) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (n Nonce) MarshalText() ([]byte, error)      { return []byte(n.String()), nil }
func (k PublicKey) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }

func (c *Ciphertext) UnmarshalText(text []byte) error { return decodeFixed(text, c[:], "ciphertext") }
func (n *Nonce) UnmarshalText(text []byte) error      { return decodeFixed(text, n[:], "nonce") }
func (k *PublicKey) UnmarshalText(text []byte) error  { return decodeFixed(text, k[:], "public key") }

// ParseCiphertext decodes a 0x-prefixed hex ciphertext
func ParseCiphertext(s string) (Ciphertext, error) {
	var c Ciphertext
	err := c.UnmarshalText([]byte(s))
	return c, err
}

// ParseNonce decodes a 0x-prefixed hex nonce
func ParseNonce(s string) (Nonce, error) {
	var n Nonce
	err := n.UnmarshalText([]byte(s))
	return n, err
}

// ParsePublicKey decodes a 0x-prefixed hex public key
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	err := k.UnmarshalText([]byte(s))
	return k, err
}

func decodeFixed(text []byte, dst []byte, what string) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("invalid %s: expected %d bytes, got %d", what, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// Opcode identifies one of the confidential operations
type Opcode string

const (
	OpcodeAddTwo         Opcode = "ADD_TWO"
	OpcodeThresholdCheck Opcode = "THRESHOLD_CHECK"
	OpcodeRevealN        Opcode = "REVEAL_N"
)

// Valid reports whether the opcode is known
func (o Opcode) Valid() bool {
	switch o {
	case OpcodeAddTwo, OpcodeThresholdCheck, OpcodeRevealN:
		return true
	}
	return false
}

// ArgKind is the type of a single circuit argument
type ArgKind string

const (
	ArgEncryptedU64 ArgKind = "ENCRYPTED_U64"
	ArgPlaintextU64 ArgKind = "PLAINTEXT_U64"
)

// OutputKind is the type of value a circuit returns
type OutputKind string

const (
	OutputPlaintextU64    OutputKind = "PLAINTEXT_U64"
	OutputPlaintextBool   OutputKind = "PLAINTEXT_BOOL"
	OutputSealedU64Vector OutputKind = "SEALED_U64_VECTOR"
)

// Sealed is an encrypted value together with what is needed to address it:
// the sender's public key and the nonce it was sealed under.
type Sealed struct {
	Ciphertext Ciphertext `json:"ciphertext"`
	Nonce      Nonce      `json:"nonce"`
	PublicKey  PublicKey  `json:"publicKey"`
}

// Argument is one ordered input to a circuit
type Argument struct {
	Kind   ArgKind `json:"kind"`
	Sealed *Sealed `json:"sealed,omitempty"`
	Value  uint64  `json:"value,omitempty"`
}

// Encrypted builds an encrypted argument
func Encrypted(s Sealed) Argument {
	return Argument{Kind: ArgEncryptedU64, Sealed: &s}
}

// Plaintext builds a plaintext argument
func Plaintext(v uint64) Argument {
	return Argument{Kind: ArgPlaintextU64, Value: v}
}

// Validate checks the argument against the expected kind
func (a Argument) Validate(expected ArgKind) error {
	if a.Kind != expected {
		return fmt.Errorf("expected %s argument, got %s", expected, a.Kind)
	}
	if a.Kind == ArgEncryptedU64 {
		if a.Sealed == nil {
			return fmt.Errorf("encrypted argument has no ciphertext")
		}
		if a.Sealed.PublicKey.IsZero() {
			return fmt.Errorf("encrypted argument has empty public key")
		}
	}
	return nil
}

// Outcome is the terminal result class of a job
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeAborted Outcome = "ABORTED"
)

// Output carries the opcode-specific result value
type Output struct {
	Kind   OutputKind   `json:"kind"`
	U64    uint64       `json:"u64,omitempty"`
	Bool   bool         `json:"bool,omitempty"`
	Sealed []Ciphertext `json:"sealed,omitempty"`
}

// Result is what the computation network hands back for one job
type Result struct {
	Offset      uint64  `json:"offset"`
	Circuit     string  `json:"circuit"`
	Version     uint32  `json:"version"`
	Outcome     Outcome `json:"outcome"`
	Output      *Output `json:"output,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Attestation []byte  `json:"attestation,omitempty"`
}

// Digest returns the canonical bytes a result attestation signs over.
// The attestation itself is excluded.
func (r *Result) Digest() []byte {
	clone := *r
	clone.Attestation = nil
	data, _ := json.Marshal(&clone)
	return data
}
