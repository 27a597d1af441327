package keystore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/adapters/keystore"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

func TestFileKeyStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := keystore.NewFileKeyStore(dir)
	require.NoError(t, err)
	goal := models.GoalKey{Owner: common.HexToAddress("0x1111111111111111111111111111111111111111"), ID: 3}

	t.Run("missing key", func(t *testing.T) {
		_, err := store.AudienceKey(ctx, goal)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		kp, err := sealedbox.GenerateKey(nil)
		require.NoError(t, err)
		require.NoError(t, store.SaveAudienceKey(ctx, goal, kp))

		got, err := store.AudienceKey(ctx, goal)
		require.NoError(t, err)
		assert.Equal(t, kp.Public, got.Public)

		matches, err := filepath.Glob(filepath.Join(dir, keystore.KeysDir, "*.key"))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		info, err := os.Stat(matches[0])
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
}

func TestClusterKeys(t *testing.T) {
	dir := t.TempDir()

	first, err := keystore.LoadOrCreateClusterKeys(dir)
	require.NoError(t, err)
	second, err := keystore.LoadOrCreateClusterKeys(dir)
	require.NoError(t, err)

	assert.Equal(t, first.Encryption.Public, second.Encryption.Public)
	assert.Equal(t, crypto.PubkeyToAddress(first.Signer.PublicKey), crypto.PubkeyToAddress(second.Signer.PublicKey))
}
