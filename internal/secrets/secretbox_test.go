package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSecretBox_RoundTrip(t *testing.T) {
	box, err := NewSecretBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Encrypt("tiger42")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "tiger42")

	plain, err := box.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "tiger42", plain)
}

func TestSecretBox_Decrypt_Rejects(t *testing.T) {
	box, err := NewSecretBox(testKey)
	require.NoError(t, err)
	sealed, err := box.Encrypt("tiger42")
	require.NoError(t, err)

	other, err := NewSecretBox(strings.Repeat("ff", 32))
	require.NoError(t, err)

	testCases := []struct {
		name       string
		box        *SecretBox
		ciphertext string
	}{
		{name: "not base64", box: box, ciphertext: "%%%"},
		{name: "too short", box: box, ciphertext: "YWJj"},
		{name: "wrong key", box: other, ciphertext: sealed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.box.Decrypt(tc.ciphertext)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestNewSecretBox_InvalidKey(t *testing.T) {
	_, err := NewSecretBox("abcd")
	assert.Error(t, err)

	_, err = NewSecretBox("not hex")
	assert.Error(t, err)
}
