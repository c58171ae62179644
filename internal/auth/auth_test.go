package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finagent-go/internal/apperr"
	"finagent-go/internal/database/dbtest"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	tok, err := tokens.Issue(42)
	require.NoError(t, err)

	id, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = NewTokens("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := tokens.Issue(1)
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_RegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(dbtest.New(t), NewTokens("s3cret", time.Hour))

	age := 30
	user, tok, err := svc.Register(ctx, Registration{Username: "minji", Password: "password1", Email: "minji@example.com", Age: &age})
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.NotEqual(t, "password1", user.PasswordHash)

	_, _, err = svc.Register(ctx, Registration{Username: "minji", Password: "password2"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, _, err = svc.Register(ctx, Registration{Username: "short", Password: "123"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = svc.Login(ctx, "minji", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, _, err = svc.Login(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, tok, err = svc.Login(ctx, "minji", "password1")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, 30, *got.Age)

	_, err = svc.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
