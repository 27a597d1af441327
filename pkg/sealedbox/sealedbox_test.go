package sealedbox_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/conclave/internal/domain/circuit"
	"github.com/trebuchet-org/conclave/pkg/sealedbox"
)

func TestSealedBox(t *testing.T) {
	client, err := sealedbox.GenerateKey(nil)
	require.NoError(t, err)
	network, err := sealedbox.GenerateKey(nil)
	require.NoError(t, err)

	t.Run("shared secret is symmetric", func(t *testing.T) {
		a, err := client.Shared(network.Public)
		require.NoError(t, err)
		b, err := network.Shared(client.Public)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("network opens what the client sealed", func(t *testing.T) {
		sealer, err := sealedbox.NewSealer(client, network.Public)
		require.NoError(t, err)

		sealed, err := sealer.Seal(400)
		require.NoError(t, err)
		assert.Equal(t, client.Public, sealed.PublicKey)

		shared, err := network.Shared(sealed.PublicKey)
		require.NoError(t, err)
		v, err := sealedbox.Open(shared, sealed.Nonce, sealed.Ciphertext)
		require.NoError(t, err)
		assert.Equal(t, uint64(400), v)
	})

	t.Run("wrong key is detected", func(t *testing.T) {
		sealer, err := sealedbox.NewSealer(client, network.Public)
		require.NoError(t, err)
		sealed, err := sealer.Seal(7)
		require.NoError(t, err)

		other, err := sealedbox.GenerateKey(nil)
		require.NoError(t, err)
		shared, err := other.Shared(sealed.PublicKey)
		require.NoError(t, err)
		_, err = sealedbox.Open(shared, sealed.Nonce, sealed.Ciphertext)
		assert.ErrorIs(t, err, sealedbox.ErrMalformed)
	})

	t.Run("vector values open in order", func(t *testing.T) {
		shared, err := network.Shared(client.Public)
		require.NoError(t, err)
		nonce, err := sealedbox.RandomNonce()
		require.NoError(t, err)

		values := []uint64{5, 0, 42, 1 << 40, 9}
		cts := make([]circuit.Ciphertext, len(values))
		for i, v := range values {
			cts[i], err = sealedbox.SealAt(shared, nonce, uint32(i), v)
			require.NoError(t, err)
		}

		sealer, err := sealedbox.NewSealer(client, network.Public)
		require.NoError(t, err)
		got, err := sealer.OpenVector(nonce, cts)
		require.NoError(t, err)
		assert.Equal(t, values, got)
	})
}
