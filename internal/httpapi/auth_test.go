package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

func TestNewAuthManagerRequiresSecretAndCredentials(t *testing.T) {
	_, err := NewAuthManager("", time.Hour, "owner", "pw")
	assert.Error(t, err)
	_, err = NewAuthManager(testSecret, time.Hour, " ", "pw")
	assert.Error(t, err)
	_, err = NewAuthManager(testSecret, time.Hour, "owner", "")
	assert.Error(t, err)
}

func TestLoginHashesPlainPassword(t *testing.T) {
	manager, err := NewAuthManager(testSecret, time.Hour, "Owner", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, isPasswordHash(manager.password), "plain password must not be kept")

	resp, err := manager.Login(LoginRequest{Username: "owner", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "owner", resp.Username)
	assert.NotEmpty(t, resp.AccessToken)

	actor, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "owner", actor.Username)
}

func TestLoginAcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	manager, err := NewAuthManager(testSecret, time.Hour, "owner", string(hash))
	require.NoError(t, err)
	assert.Equal(t, string(hash), manager.password)

	_, err = manager.Login(LoginRequest{Username: "owner", Password: "hashed-pass"})
	assert.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	manager, err := NewAuthManager(testSecret, time.Hour, "owner", "s3cret-pass")
	require.NoError(t, err)

	_, err = manager.Login(LoginRequest{Username: "owner", Password: "wrong"})
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, err = manager.Login(LoginRequest{Username: "intruder", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, errInvalidCredentials)
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	manager, err := NewAuthManager(testSecret, time.Hour, "owner", "s3cret-pass")
	require.NoError(t, err)
	other, err := NewAuthManager("another-secret-key-that-is-long-enough", time.Hour, "owner", "s3cret-pass")
	require.NoError(t, err)

	foreign, err := other.Login(LoginRequest{Username: "owner", Password: "s3cret-pass"})
	require.NoError(t, err)
	_, err = manager.ParseToken(foreign.AccessToken)
	assert.Error(t, err)

	manager.now = func() time.Time { return time.Now().UTC().Add(-3 * time.Hour) }
	stale, err := manager.Login(LoginRequest{Username: "owner", Password: "s3cret-pass"})
	require.NoError(t, err)
	_, err = manager.ParseToken(stale.AccessToken)
	assert.Error(t, err)

	_, err = manager.ParseToken("not-a-token")
	assert.Error(t, err)
}
