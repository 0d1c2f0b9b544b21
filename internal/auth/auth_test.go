package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateRoundTrip(t *testing.T) {
	v := NewJWTValidator("test-secret", "ybook")

	token, err := v.IssueToken(42, "alice", time.Minute)
	require.NoError(t, err)

	identity, err := v.ValidateCredential(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, int64(42), identity.UserID)
	require.Equal(t, "alice", identity.Username)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	v := NewJWTValidator("test-secret", "ybook")

	token, err := v.IssueToken(42, "alice", -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateCredential(context.Background(), token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTValidator("secret-a", "ybook")
	v := NewJWTValidator("secret-b", "ybook")

	token, err := issuer.IssueToken(42, "alice", time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateCredential(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuer := NewJWTValidator("test-secret", "someone-else")
	v := NewJWTValidator("test-secret", "ybook")

	token, err := issuer.IssueToken(42, "alice", time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateCredential(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	v := NewJWTValidator("test-secret", "ybook")

	_, err := v.ValidateCredential(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
