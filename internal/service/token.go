package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/utils"
)

// TokenConfig holds the signing secret and token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// TokenPair is returned by login and registration.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshToken string    `json:"refresh_token"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
	TokenType    string    `json:"token_type"`
}

// TokenService issues, refreshes and revokes tokens.  Access tokens are
// stateless JWTs; refresh tokens are opaque and tracked by hash.
type TokenService struct {
	accounts AccountStore
	tokens   TokenStore
	cfg      TokenConfig
}

func NewTokenService(accounts AccountStore, tokens TokenStore, cfg TokenConfig) *TokenService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenService{accounts: accounts, tokens: tokens, cfg: cfg}
}

// Issue mints an access token and a fresh refresh token for acct.
func (s *TokenService) Issue(ctx context.Context, acct model.Account) (TokenPair, error) {
	now := s.cfg.Now()
	at, err := utils.NewAccessToken(s.cfg.Secret, acct.ID, string(acct.Role), s.cfg.AccessTTL, now)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	rt, err := utils.NewRefreshToken(s.cfg.RefreshTTL, now)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	if err := s.tokens.StoreRefresh(ctx, acct.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	return TokenPair{
		AccessToken:  at.Token,
		AccessExp:    at.Exp,
		RefreshToken: rt.Raw,
		RefreshExp:   rt.Exp,
		TokenType:    "Bearer",
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.  The
// refresh token itself is not rotated.
func (s *TokenService) Refresh(ctx context.Context, raw string) (utils.AccessToken, error) {
	if raw == "" {
		return utils.AccessToken{}, apperr.ErrTokenInvalid
	}
	now := s.cfg.Now()
	rt, err := s.tokens.FindRefresh(ctx, utils.HashRefreshRaw(raw))
	if err != nil {
		return utils.AccessToken{}, tokenLookupErr(err)
	}
	if rt.Revoked() || rt.Expired(now) {
		return utils.AccessToken{}, apperr.ErrTokenInvalid
	}
	acct, err := s.accounts.GetByID(ctx, rt.AccountID)
	if err != nil {
		return utils.AccessToken{}, tokenLookupErr(err)
	}
	if !acct.IsActive {
		return utils.AccessToken{}, apperr.ErrTokenInvalid
	}
	at, err := utils.NewAccessToken(s.cfg.Secret, acct.ID, string(acct.Role), s.cfg.AccessTTL, now)
	if err != nil {
		return utils.AccessToken{}, apperr.Internal(err)
	}
	return at, nil
}

// Revoke marks a refresh token revoked.  Revoking twice is fine; a token
// that was never issued is TokenInvalid.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return apperr.ErrTokenInvalid
	}
	hash := utils.HashRefreshRaw(raw)
	rt, err := s.tokens.FindRefresh(ctx, hash)
	if err != nil {
		return tokenLookupErr(err)
	}
	if rt.Revoked() {
		return nil
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// RevokeAll revokes every refresh token the account holds, ending all of
// its sessions once their access tokens expire.
func (s *TokenService) RevokeAll(ctx context.Context, accountID uint64) error {
	if err := s.tokens.RevokeAllForAccount(ctx, accountID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ParseAccess verifies an access token and returns its claims.
func (s *TokenService) ParseAccess(raw string) (*utils.AccessClaims, error) {
	claims, err := utils.ParseAccessToken(s.cfg.Secret, raw, s.cfg.Now())
	if err != nil {
		return nil, apperr.ErrTokenInvalid
	}
	return claims, nil
}

func tokenLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrTokenInvalid
	}
	return apperr.Internal(err)
}
