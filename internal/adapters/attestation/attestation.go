// Package attestation signs and verifies computation results with secp256k1
// keys. A result's attestation is a recoverable signature over the keccak256
// hash of its digest; the recovered address identifies the execution context.
package attestation

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
)

var (
	// ErrMissing is returned for results that carry no attestation
	ErrMissing = errors.New("missing attestation")
	// ErrUnauthorizedSigner is returned when the signer is not the configured cluster
	ErrUnauthorizedSigner = errors.New("attestation signed by unauthorized key")
)

// Hash returns the message an attestation signs
func Hash(result *circuit.Result) []byte {
	return crypto.Keccak256(result.Digest())
}

// Sign attaches an attestation made with key to result
func Sign(result *circuit.Result, key *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(Hash(result), key)
	if err != nil {
		return fmt.Errorf("failed to sign result: %w", err)
	}
	result.Attestation = sig
	return nil
}

// Signer recovers the address that produced the result's attestation
func Signer(result *circuit.Result) (common.Address, error) {
	if len(result.Attestation) == 0 {
		return common.Address{}, ErrMissing
	}
	if len(result.Attestation) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("attestation must be %d bytes, got %d", crypto.SignatureLength, len(result.Attestation))
	}
	pub, err := crypto.SigToPub(Hash(result), result.Attestation)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid attestation: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verifier accepts results attested by one authorized cluster address
type Verifier struct {
	authorized common.Address
}

// NewVerifier creates a verifier for the given cluster address
func NewVerifier(authorized common.Address) *Verifier {
	return &Verifier{authorized: authorized}
}

// Authorized returns the accepted signer
func (v *Verifier) Authorized() common.Address {
	return v.authorized
}

// Verify implements usecase.ExecutionContextVerifier
func (v *Verifier) Verify(ctx context.Context, result *circuit.Result) error {
	if v.authorized == (common.Address{}) {
		return fmt.Errorf("%w: no cluster address configured", ErrUnauthorizedSigner)
	}
	signer, err := Signer(result)
	if err != nil {
		return err
	}
	if signer != v.authorized {
		return fmt.Errorf("%w: %s", ErrUnauthorizedSigner, signer.Hex())
	}
	return nil
}

// AddressSource resolves the authorized signer address
type AddressSource func(ctx context.Context) (common.Address, error)

// LazyVerifier resolves the authorized address on first use and verifies
// like Verifier from then on
type LazyVerifier struct {
	mu       sync.Mutex
	source   AddressSource
	verifier *Verifier
}

// NewLazyVerifier creates a verifier whose address comes from source
func NewLazyVerifier(source AddressSource) *LazyVerifier {
	return &LazyVerifier{source: source}
}

// Verify implements usecase.ExecutionContextVerifier
func (v *LazyVerifier) Verify(ctx context.Context, result *circuit.Result) error {
	v.mu.Lock()
	if v.verifier == nil {
		addr, err := v.source(ctx)
		if err != nil {
			v.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrUnauthorizedSigner, err)
		}
		v.verifier = NewVerifier(addr)
	}
	verifier := v.verifier
	v.mu.Unlock()
	return verifier.Verify(ctx, result)
}
