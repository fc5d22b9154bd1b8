package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("s3cret")
	token, err := GenerateToken("ops", ScopeIngest, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "ops", claims.Subject)
	require.Equal(t, ScopeIngest, claims.Scope)

	_, err = ParseToken(token, []byte("other"))
	require.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("s3cret")
	token, err := GenerateToken("ops", ScopeIngest, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, secret)
	require.Error(t, err)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	_, err := GenerateToken("ops", ScopeIngest, nil, time.Hour)
	require.Error(t, err)
}
