package solana

import (
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptPrivateKey(t *testing.T) {
	account := types.NewAccount()

	encrypted, err := encryptPrivateKey(account.PrivateKey, "test-password")
	require.NoError(t, err)
	assert.NotEmpty(t, encrypted)

	decrypted, err := decryptPrivateKey(encrypted, "test-password")
	require.NoError(t, err)
	assert.Equal(t, []byte(account.PrivateKey), decrypted)

	restored, err := types.AccountFromBytes(decrypted)
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey.ToBase58(), restored.PublicKey.ToBase58())
}

func TestDecryptWithWrongPassword(t *testing.T) {
	account := types.NewAccount()

	encrypted, err := encryptPrivateKey(account.PrivateKey, "right-password")
	require.NoError(t, err)

	_, err = decryptPrivateKey(encrypted, "wrong-password")
	assert.Error(t, err)
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	_, err := decryptPrivateKey("not-base64!!!", "pw")
	assert.Error(t, err)

	_, err = decryptPrivateKey("aGVsbG8=", "pw") // too short for a nonce
	assert.Error(t, err)
}
