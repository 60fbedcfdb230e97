package service

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	"github.com/noah-isme/schedule-browser/pkg/config"
)

// CredentialService hands the bearer credential written by the external
// login flow to outgoing requests. A token file wins over a static token and
// is re-read on every call so a refreshed login is picked up.
type CredentialService struct {
	token     string
	tokenFile string
	clock     clock.Clock
	logger    *zap.Logger
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(cfg config.AuthConfig, clk clock.Clock, logger *zap.Logger) *CredentialService {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{token: cfg.Token, tokenFile: cfg.TokenFile, clock: clk, logger: logger}
}

// Token returns the current bearer credential, if any.
func (s *CredentialService) Token(_ context.Context) (string, bool) {
	if s.tokenFile != "" {
		raw, err := os.ReadFile(s.tokenFile)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn("read token file failed", zap.String("path", s.tokenFile), zap.Error(err))
			}
		} else if token := strings.TrimSpace(string(raw)); token != "" {
			return token, true
		}
	}
	if s.token != "" {
		return s.token, true
	}
	return "", false
}

// Session describes the credential without exposing it. Non-JWT tokens are
// reported as opaque; expiry is only known for JWTs.
func (s *CredentialService) Session(ctx context.Context) models.SessionInfo {
	token, ok := s.Token(ctx)
	if !ok {
		return models.SessionInfo{}
	}

	info := models.SessionInfo{HasCredential: true}
	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		info.Opaque = true
		return info
	}

	info.Subject = claims.Subject
	info.Name = claims.Name
	info.Email = claims.Email
	if claims.Role != nil {
		info.Role = claims.Role.String()
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC()
		info.ExpiresAt = &exp
		info.Expired = !s.clock.Now().Before(exp)
	}
	return info
}

// ExpiresWithin reports whether a known expiry falls inside d from now.
func (s *CredentialService) ExpiresWithin(ctx context.Context, d time.Duration) bool {
	info := s.Session(ctx)
	if info.ExpiresAt == nil {
		return false
	}
	return s.clock.Now().Add(d).After(*info.ExpiresAt)
}
