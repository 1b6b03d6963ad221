// internal/transport/auth_test.go
package transport

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken("test-secret", userID)
	require.NoError(t, err)

	got, err := VerifyToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken("right-secret", uuid.New())
	require.NoError(t, err)

	_, err = VerifyToken("wrong-secret", token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	_, err := VerifyToken("secret", "not.a.token")
	assert.Error(t, err)
}
