package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func TestLegacyToken_RoundTrip(t *testing.T) {
	tm := NewLegacyTokenManager(testSecret, 30*time.Minute)

	tokenString, err := tm.Mint("grace", 42)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := tm.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "grace", claims.Subject)
	assert.Equal(t, int64(42), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestLegacyToken_Expired(t *testing.T) {
	tm := NewLegacyTokenManager(testSecret, -1*time.Minute)

	tokenString, err := tm.Mint("grace", 42)
	require.NoError(t, err)

	_, err = tm.Verify(tokenString)
	assert.Error(t, err)
}

func TestLegacyToken_WrongSecret(t *testing.T) {
	tm := NewLegacyTokenManager(testSecret, 30*time.Minute)
	other := NewLegacyTokenManager("another-secret-32-characters-ok!", 30*time.Minute)

	tokenString, err := tm.Mint("grace", 42)
	require.NoError(t, err)

	_, err = other.Verify(tokenString)
	assert.Error(t, err)
}

func TestLegacyToken_Garbage(t *testing.T) {
	tm := NewLegacyTokenManager(testSecret, 30*time.Minute)

	_, err := tm.Verify("not-a-token")
	assert.Error(t, err)
}
