package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOperatorJWT(t *testing.T) {
	key := []byte("secret")

	token, err := GenerateOperatorJWT("alice", time.Hour, key)
	require.NoError(t, err)

	claims, err := ValidateOperatorJWT(token, key)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Name)

	_, err = ValidateOperatorJWT(token, []byte("another"))
	require.Error(t, err)
}

func TestOperatorJWTExpired(t *testing.T) {
	key := []byte("secret")
	token, err := GenerateOperatorJWT("alice", -time.Minute, key)
	require.NoError(t, err)

	_, err = ValidateOperatorJWT(token, key)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestOperatorJWTWithoutName(t *testing.T) {
	key := []byte("secret")
	token, err := GenerateOperatorJWT("", time.Hour, key)
	require.NoError(t, err)

	_, err = ValidateOperatorJWT(token, key)
	require.ErrorIs(t, err, ErrInvalidClaims)
}
