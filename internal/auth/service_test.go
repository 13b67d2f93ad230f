package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admission-portal/admission_portal/internal/config"
	"github.com/admission-portal/admission_portal/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		AppName:         "AdmissionPortal",
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func seededUser(t *testing.T, repo identity.Repository) identity.User {
	t.Helper()
	user := identity.User{ID: "5b0c8f8e-6a43-4d8c-9a43-7d1f7d2b1a11", Email: "alice@example.com", Verified: true}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestLoginVerifyAndRefresh(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := seededUser(t, repo)
	svc := NewService(testConfig(), repo)
	ctx := context.Background()

	pair, err := svc.Login(user)
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Email, claims.Email)

	_, err = svc.Verify(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh tokens are signed with a different secret")

	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(900), exp)
	_, err = svc.Verify(ctx, access)
	require.NoError(t, err)
}

func TestLogoutInvalidatesTokens(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := seededUser(t, repo)
	svc := NewService(testConfig(), repo)
	ctx := context.Background()

	pair, err := svc.Login(user)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalidated)
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalidated)
}

func TestPasswordChangeInvalidatesTokens(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := seededUser(t, repo)
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(user)
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePassword(context.Background(), user.ID, []byte("new-hash")))

	_, err = svc.Verify(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalidated)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user := seededUser(t, repo)
	svc := NewService(testConfig(), repo)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := svc.Login(user)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, expired.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID, Issuer: "AdmissionPortal", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := signHS256(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "00000000-0000-0000-0000-000000000000", Issuer: "AdmissionPortal", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, "access-secret")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, foreign)
	assert.ErrorIs(t, err, ErrInvalidToken, "unknown subject")
}
