// Package auth owns the credential lifecycle. A credential is created at
// login, sealed at rest, resolved per request, and torn down at logout; no
// handler ever sees ambient token state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quickconnect/internal/upstream"
)

// ErrNoCredentials means the credential session expired or was logged out.
var ErrNoCredentials = errors.New("auth: no credentials for session")

// Credentials is what the middleware hands to request handlers.
type Credentials struct {
	UserID        int64
	SessionID     string
	UpstreamToken string
}

// UpstreamAuth is the backend subset the credential lifecycle needs.
type UpstreamAuth interface {
	Login(ctx context.Context, email, password string) (*upstream.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Service manages login, refresh, per-request resolution and logout.
type Service struct {
	upstream UpstreamAuth
	tokens   *TokenService
	sealer   *Sealer
	redis    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewService builds the credential service.
func NewService(up UpstreamAuth, tokens *TokenService, sealer *Sealer, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		upstream: up,
		tokens:   tokens,
		sealer:   sealer,
		redis:    redisClient,
		ttl:      ttl,
		logger:   logger,
	}
}

func credentialKey(sessionID string) string {
	return fmt.Sprintf("quickconnect:credentials:%s", sessionID)
}

// LoginResult carries the gateway token and the upstream account.
type LoginResult struct {
	Token string            `json:"token"`
	User  *upstream.Profile `json:"user"`
}

// Login authenticates upstream, seals the upstream token into redis and
// issues a gateway JWT referencing it.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result, err := s.upstream.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	sealed, err := s.sealer.Seal(result.Token)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, credentialKey(sessionID), sealed, s.ttl).Err(); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(result.User.ID, sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.Int64("user_id", result.User.ID))
	return &LoginResult{Token: token, User: result.User}, nil
}

// Resolve turns validated claims into usable credentials.
func (s *Service) Resolve(ctx context.Context, claims *Claims) (*Credentials, error) {
	sealed, err := s.redis.Get(ctx, credentialKey(claims.SessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}

	token, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		UserID:        claims.UserID,
		SessionID:     claims.SessionID,
		UpstreamToken: token,
	}, nil
}

// Refresh re-issues the gateway JWT for a still-live credential session and
// extends the sealed credential's TTL.
func (s *Service) Refresh(ctx context.Context, userID int64, sessionID string) (string, error) {
	exists, err := s.redis.Expire(ctx, credentialKey(sessionID), s.ttl).Result()
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrNoCredentials
	}
	return s.tokens.Generate(userID, sessionID)
}

// Logout tears the credential session down. The upstream notification is
// best-effort; local teardown always happens.
func (s *Service) Logout(ctx context.Context, creds *Credentials) error {
	if err := s.upstream.Logout(ctx, creds.UpstreamToken); err != nil {
		s.logger.Warn("upstream logout failed", zap.Int64("user_id", creds.UserID), zap.Error(err))
	}
	if err := s.redis.Del(ctx, credentialKey(creds.SessionID)).Err(); err != nil {
		return err
	}
	s.logger.Info("user logged out", zap.Int64("user_id", creds.UserID))
	return nil
}
