// internal/service/auth/auth_service.go
package auth

import (
	"context"
	"fmt"
	"time"

	"subpass-service/internal/domain/auth"
	"subpass-service/internal/domain/wallet"
	xerrors "subpass-service/internal/pkg/errors"
	"subpass-service/internal/pkg/jwt"
	"subpass-service/internal/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// adminLockout is how long admin login stays locked once the attempt limit
// trips.
const adminLockout = 15 * time.Minute

// AuthService hands out sessions for wallet addresses. The address is taken
// at face value and every balance-moving operation is keyed to it, so a
// session is access to the custodial account, not proof of key ownership.
type AuthService struct {
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	adminAddress   string
	adminHash      string
	logger         *zap.Logger
}

func NewAuthService(
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter *session.RateLimiter,
	adminAddress string,
	adminHash string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		adminAddress:   adminAddress,
		adminHash:      adminHash,
		logger:         logger,
	}
}

// CreateSession issues an access token for a wallet address.
func (s *AuthService) CreateSession(ctx context.Context, req *auth.SessionRequest, ip, userAgent string) (*auth.LoginResponse, error) {
	address, err := wallet.NormalizeAddress(req.Address)
	if err != nil {
		return nil, err
	}

	allowed, _, err := s.rateLimiter.CheckLoginAttempt(ctx, ip, address)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, xerrors.Wrap(xerrors.ErrRateLimited, "too many session attempts")
	}

	return s.issue(ctx, address, nil, ip, userAgent)
}

// AdminLogin issues an admin session after checking the configured password.
func (s *AuthService) AdminLogin(ctx context.Context, req *auth.AdminLoginRequest, ip, userAgent string) (*auth.LoginResponse, error) {
	address, err := wallet.NormalizeAddress(req.Address)
	if err != nil {
		return nil, err
	}

	locked, retryIn, err := s.rateLimiter.IsLocked(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to check lockout: %w", err)
	}
	if locked {
		return nil, xerrors.Wrapf(xerrors.ErrRateLimited, "account locked, retry in %s", retryIn.Round(time.Second))
	}

	allowed, _, err := s.rateLimiter.CheckLoginAttempt(ctx, ip, address)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		if err := s.rateLimiter.Lock(ctx, address, adminLockout); err != nil {
			s.logger.Warn("failed to lock account", zap.Error(err))
		}
		return nil, xerrors.Wrap(xerrors.ErrRateLimited, "too many login attempts")
	}

	if s.adminHash == "" || address != s.adminAddress {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid admin credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(req.Password)); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid admin credentials")
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, ip, address); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	return s.issue(ctx, address, []string{"admin"}, ip, userAgent)
}

// Refresh exchanges a refresh token for a new session. The old access token
// keeps working until its session record expires.
func (s *AuthService) Refresh(ctx context.Context, req *auth.RefreshRequest, ip, userAgent string) (*auth.LoginResponse, error) {
	claims, err := s.jwtManager.Verifier.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid refresh token")
	}
	return s.issue(ctx, claims.Address, claims.Roles, ip, userAgent)
}

func (s *AuthService) issue(ctx context.Context, address string, roles []string, ip, userAgent string) (*auth.LoginResponse, error) {
	token, jti, err := s.jwtManager.Generator.GenerateAccessToken(address, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, _, err := s.jwtManager.Generator.GenerateRefreshToken(address, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(s.jwtManager.Generator.TTL)

	err = s.sessionManager.CreateSession(ctx, &session.SessionData{
		JTI:            jti,
		Address:        address,
		Roles:          roles,
		IPAddress:      ip,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("address", address),
		zap.Strings("roles", roles),
	)

	return &auth.LoginResponse{
		Token:        token,
		RefreshToken: refresh,
		Address:      address,
		Roles:        roles,
		ExpiresAt:    expiresAt,
	}, nil
}

// ValidateToken verifies a token and checks the backing session still exists.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid token")
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.Address, claims.ID); err != nil {
		return nil, err
	}

	return claims, nil
}

// Logout revokes one session.
func (s *AuthService) Logout(ctx context.Context, address, jti string) error {
	return s.sessionManager.InvalidateSession(ctx, address, jti)
}

// LogoutAll revokes every session held by the address.
func (s *AuthService) LogoutAll(ctx context.Context, address string) error {
	return s.sessionManager.InvalidateAllSessions(ctx, address)
}

// Sessions lists the caller's live sessions.
func (s *AuthService) Sessions(ctx context.Context, address string) ([]*session.SessionData, error) {
	return s.sessionManager.ActiveSessions(ctx, address)
}
