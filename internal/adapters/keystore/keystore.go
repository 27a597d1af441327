// Package keystore keeps secret key material under the data directory.
// Files are written 0600 and hold hex-encoded keys.
package keystore

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

const (
	KeysDir         = "keys"
	ClusterKeysFile = "cluster.json"
)

// FileKeyStore stores goal audience secrets, one file per goal
type FileKeyStore struct {
	dir string
}

// NewFileKeyStore creates a key store under dataDir
func NewFileKeyStore(dataDir string) (*FileKeyStore, error) {
	dir := filepath.Join(dataDir, KeysDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}
	return &FileKeyStore{dir: dir}, nil
}

func (s *FileKeyStore) path(goal models.GoalKey) string {
	name := fmt.Sprintf("%s-%d.key", strings.ToLower(goal.Owner.Hex()), goal.ID)
	return filepath.Join(s.dir, name)
}

// SaveAudienceKey implements usecase.KeyStore
func (s *FileKeyStore) SaveAudienceKey(ctx context.Context, goal models.GoalKey, keys *sealedbox.KeyPair) error {
	return writeSecret(s.path(goal), hexutil.Encode(keys.Secret[:]))
}

// AudienceKey implements usecase.KeyStore
func (s *FileKeyStore) AudienceKey(ctx context.Context, goal models.GoalKey) (*sealedbox.KeyPair, error) {
	data, err := os.ReadFile(s.path(goal))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no audience key for goal %s on this machine: %w", goal, domain.ErrNotFound)
		}
		return nil, err
	}
	raw, err := hexutil.Decode(strings.TrimSpace(string(data)))
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("corrupt audience key for goal %s", goal)
	}
	var secret sealedbox.Secret
	copy(secret[:], raw)
	return sealedbox.KeyPairFromSecret(secret)
}

func writeSecret(path, contents string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(contents), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ClusterKeys is the key material of the reference cluster
type ClusterKeys struct {
	Encryption *sealedbox.KeyPair
	Signer     *ecdsa.PrivateKey
}

type clusterKeysFile struct {
	Encryption string `json:"encryption"`
	Signer     string `json:"signer"`
}

// LoadOrCreateClusterKeys reads the cluster keys from dataDir, generating
// and saving a fresh set on first use.
func LoadOrCreateClusterKeys(dataDir string) (*ClusterKeys, error) {
	dir := filepath.Join(dataDir, KeysDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}
	path := filepath.Join(dir, ClusterKeysFile)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return decodeClusterKeys(data)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	enc, err := sealedbox.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signer key: %w", err)
	}
	out, err := json.MarshalIndent(clusterKeysFile{
		Encryption: hexutil.Encode(enc.Secret[:]),
		Signer:     hexutil.Encode(crypto.FromECDSA(signer)),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeSecret(path, string(out)); err != nil {
		return nil, fmt.Errorf("failed to save cluster keys: %w", err)
	}
	return &ClusterKeys{Encryption: enc, Signer: signer}, nil
}

func decodeClusterKeys(data []byte) (*ClusterKeys, error) {
	var f clusterKeysFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corrupt cluster keys: %w", err)
	}
	rawEnc, err := hexutil.Decode(f.Encryption)
	if err != nil || len(rawEnc) != 32 {
		return nil, fmt.Errorf("corrupt cluster encryption key")
	}
	var secret sealedbox.Secret
	copy(secret[:], rawEnc)
	enc, err := sealedbox.KeyPairFromSecret(secret)
	if err != nil {
		return nil, err
	}

	rawSigner, err := hexutil.Decode(f.Signer)
	if err != nil {
		return nil, fmt.Errorf("corrupt cluster signer key: %w", err)
	}
	signer, err := crypto.ToECDSA(rawSigner)
	if err != nil {
		return nil, fmt.Errorf("corrupt cluster signer key: %w", err)
	}
	return &ClusterKeys{Encryption: enc, Signer: signer}, nil
}
