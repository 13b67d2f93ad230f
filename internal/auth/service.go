package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/admission-portal/admission_portal/internal/config"
	"github.com/admission-portal/admission_portal/internal/identity"
)

// Service issues and validates session tokens.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
	now    func() time.Time
}

// NewService creates an auth service over the identity store.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo, now: time.Now}
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Login issues tokens for an already authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, err := s.sign(user.ID, user.Email, user.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user.ID, "", user.TokenVersion, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) sign(subject, email string, version int, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	return signHS256(Claims{
		Email:   email,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.AppName,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}, secret)
}

// Verify checks an access token and that its version still matches the user.
func (s *Service) Verify(ctx context.Context, accessToken string) (Claims, error) {
	claims, err := parseHS256(accessToken, s.cfg.JWTSecret, s.cfg.AppName)
	if err != nil {
		return Claims{}, err
	}
	if err := s.checkVersion(ctx, claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// Refresh verifies the refresh token and returns a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := parseHS256(refreshToken, s.cfg.RefreshSecret, s.cfg.AppName)
	if err != nil {
		return "", 0, err
	}
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return "", 0, ErrTokenInvalidated
	}
	access, err := s.sign(user.ID, user.Email, user.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments the token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

func (s *Service) checkVersion(ctx context.Context, claims Claims) error {
	user, err := s.idRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return ErrInvalidToken
	}
	if user.TokenVersion != claims.Version {
		return ErrTokenInvalidated
	}
	return nil
}
