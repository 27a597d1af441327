// Package sealedbox implements the client encryption scheme for confidential
// u64 amounts: an x25519 shared secret between the sender key and the
// computation network key, expanded per (nonce, index) with HKDF-SHA256 into
// a ChaCha20 keystream over a fixed 32-byte block.
//
// The block carries the value little-endian in its first 8 bytes; the rest
// must decrypt to zero, which is how a wrong key or corrupted ciphertext is
// detected.
package sealedbox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const info = "conclave/sealedbox/v1"

// ErrMalformed is returned when a ciphertext doesn't open to a valid block
var ErrMalformed = errors.New("malformed ciphertext")

// Secret is an x25519 private scalar
type Secret [32]byte

// KeyPair is an x25519 key pair
type KeyPair struct {
	Secret Secret
	Public circuit.PublicKey
}

// GenerateKey creates a random key pair. A nil reader uses crypto/rand.
func GenerateKey(r io.Reader) (*KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	var s Secret
	if _, err := io.ReadFull(r, s[:]); err != nil {
		return nil, fmt.Errorf("failed to read key material: %w", err)
	}
	return KeyPairFromSecret(s)
}

// KeyPairFromSecret derives the public half of a secret
func KeyPairFromSecret(s Secret) (*KeyPair, error) {
	pub, err := curve25519.X25519(s[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	kp := &KeyPair{Secret: s}
	copy(kp.Public[:], pub)
	return kp, nil
}

// Shared computes the x25519 shared secret with a peer
func (kp *KeyPair) Shared(peer circuit.PublicKey) ([32]byte, error) {
	var out [32]byte
	raw, err := curve25519.X25519(kp.Secret[:], peer[:])
	if err != nil {
		return out, fmt.Errorf("key agreement failed: %w", err)
	}
	copy(out[:], raw)
	return out, nil
}

// RandomNonce draws a fresh nonce from crypto/rand
func RandomNonce() (circuit.Nonce, error) {
	var n circuit.Nonce
	_, err := io.ReadFull(rand.Reader, n[:])
	return n, err
}

// Seal encrypts value under shared secret and nonce
func Seal(shared [32]byte, nonce circuit.Nonce, value uint64) (circuit.Ciphertext, error) {
	return SealAt(shared, nonce, 0, value)
}

// Open decrypts a ciphertext produced by Seal
func Open(shared [32]byte, nonce circuit.Nonce, ct circuit.Ciphertext) (uint64, error) {
	return OpenAt(shared, nonce, 0, ct)
}

// SealAt encrypts the index-th value of a vector sealed under one nonce
func SealAt(shared [32]byte, nonce circuit.Nonce, index uint32, value uint64) (circuit.Ciphertext, error) {
	var block circuit.Ciphertext
	binary.LittleEndian.PutUint64(block[:8], value)
	if err := xorKeystream(shared, nonce, index, block[:]); err != nil {
		return circuit.Ciphertext{}, err
	}
	return block, nil
}

// OpenAt decrypts the index-th value of a vector sealed under one nonce
func OpenAt(shared [32]byte, nonce circuit.Nonce, index uint32, ct circuit.Ciphertext) (uint64, error) {
	block := ct
	if err := xorKeystream(shared, nonce, index, block[:]); err != nil {
		return 0, err
	}
	for _, b := range block[8:] {
		if b != 0 {
			return 0, ErrMalformed
		}
	}
	return binary.LittleEndian.Uint64(block[:8]), nil
}

func xorKeystream(shared [32]byte, nonce circuit.Nonce, index uint32, buf []byte) error {
	label := make([]byte, len(info)+4)
	copy(label, info)
	binary.BigEndian.PutUint32(label[len(info):], index)

	key := make([]byte, chacha20.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared[:], nonce[:], label), key); err != nil {
		return fmt.Errorf("key derivation failed: %w", err)
	}
	stream, err := chacha20.NewUnauthenticatedCipher(key, make([]byte, chacha20.NonceSize))
	if err != nil {
		return err
	}
	stream.XORKeyStream(buf, buf)
	return nil
}

// Sealer encrypts and decrypts values between one local key pair and one
// peer (usually the computation network).
type Sealer struct {
	keys   *KeyPair
	shared [32]byte
}

// NewSealer binds a key pair to a peer public key
func NewSealer(keys *KeyPair, peer circuit.PublicKey) (*Sealer, error) {
	shared, err := keys.Shared(peer)
	if err != nil {
		return nil, err
	}
	return &Sealer{keys: keys, shared: shared}, nil
}

// PublicKey is the local public key ciphertexts are addressed from
func (s *Sealer) PublicKey() circuit.PublicKey {
	return s.keys.Public
}

// Seal encrypts value under a fresh random nonce
func (s *Sealer) Seal(value uint64) (circuit.Sealed, error) {
	nonce, err := RandomNonce()
	if err != nil {
		return circuit.Sealed{}, err
	}
	ct, err := Seal(s.shared, nonce, value)
	if err != nil {
		return circuit.Sealed{}, err
	}
	return circuit.Sealed{Ciphertext: ct, Nonce: nonce, PublicKey: s.keys.Public}, nil
}

// Open decrypts a single sealed value
func (s *Sealer) Open(nonce circuit.Nonce, ct circuit.Ciphertext) (uint64, error) {
	return Open(s.shared, nonce, ct)
}

// OpenVector decrypts values sealed in order under one nonce
func (s *Sealer) OpenVector(nonce circuit.Nonce, cts []circuit.Ciphertext) ([]uint64, error) {
	out := make([]uint64, len(cts))
	for i, ct := range cts {
		v, err := OpenAt(s.shared, nonce, uint32(i), ct)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
