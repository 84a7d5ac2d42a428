package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("u1", "ada", "secret")
	require.NoError(t, err)

	userID, err := UserIDFromToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("u1", "ada", "secret")
	require.NoError(t, err)

	_, err = UserIDFromToken(token, "other")
	require.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := UserIDFromToken("not-a-token", "secret")
	require.Error(t, err)
}

func TestUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "u1")
	userID, err := UserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = UserIDFromContext(context.Background())
	require.Error(t, err)
}
