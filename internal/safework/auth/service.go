// Package auth verifies credentials, issues signed session tokens and
// checks them on every protected request. Authorization is stateless: the
// token alone proves the caller's identity until it expires.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/safework/internal/safework/cache"
	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/metrics"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const resetKeyPrefix = "pwreset:"

// UserStore is the part of the persistence gateway the service needs.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error
}

// ResetNotifier delivers a password reset token to its owner.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, u *models.User, token string, expiresAt time.Time) error
}

// LoginResult is returned by a successful Authenticate.
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	User      models.UserProjection `json:"user"`
}

type Service struct {
	users     UserStore
	tokens    *TokenIssuer
	hasher    *Hasher
	cache     cache.Cache
	notifier  ResetNotifier
	resetTTL  time.Duration
	dummyHash string
	logger    *zap.Logger
}

// NewService wires the authentication service. The cache holds password
// reset tokens for resetTTL.
func NewService(
	users UserStore,
	tokens *TokenIssuer,
	hasher *Hasher,
	c cache.Cache,
	notifier ResetNotifier,
	resetTTL time.Duration,
	logger *zap.Logger,
) (*Service, error) {
	// Unknown emails are checked against this hash so they cost as much as
	// a wrong password.
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		cache:     c,
		notifier:  notifier,
		resetTTL:  resetTTL,
		dummyHash: dummy,
		logger:    logger.Named("auth_service"),
	}, nil
}

// Authenticate verifies email and secret and issues a session token. Every
// rejection is ErrInvalidCredentials, whatever the reason.
func (s *Service) Authenticate(ctx context.Context, email, secret string) (*LoginResult, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		_ = s.hasher.Verify(secret, s.dummyHash)
		return nil, s.reject(email, "unknown email")
	}

	if err := s.hasher.Verify(secret, u.PasswordHash); err != nil {
		if !errors.Is(err, e.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, s.reject(email, "wrong secret")
	}
	if !u.Active {
		return nil, s.reject(email, "inactive user")
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Info("User authenticated",
		zap.String("user_id", u.ID.String()),
		zap.String("role", u.ProfileName()),
	)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: u.Projection()}, nil
}

func (s *Service) reject(email, reason string) error {
	metrics.AuthAttempts.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
	s.logger.Info("Authentication rejected", zap.String("email", email), zap.String("reason", reason))
	return e.ErrInvalidCredentials
}

// Authorize validates a session token and returns the caller's identity.
func (s *Service) Authorize(token string) (*Identity, error) {
	id, err := s.tokens.Parse(token)
	switch {
	case err == nil:
		metrics.TokenValidations.WithLabelValues(metrics.OutcomeValid).Inc()
	case errors.Is(err, e.ErrTokenExpired):
		metrics.TokenValidations.WithLabelValues(metrics.OutcomeExpired).Inc()
	default:
		metrics.TokenValidations.WithLabelValues(metrics.OutcomeInvalid).Inc()
	}
	return id, err
}

// RequestPasswordReset stores a one-time reset token for the user owning
// email and hands it to the notifier. Unknown or inactive emails succeed
// silently so the endpoint cannot be used to discover accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !u.Active {
		return nil
	}

	token, err := generateToken()
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, resetKeyPrefix+token, u.ID.String(), s.resetTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if err := s.notifier.NotifyPasswordReset(ctx, u, token, time.Now().Add(s.resetTTL)); err != nil {
		_ = s.cache.Delete(ctx, resetKeyPrefix+token)
		return fmt.Errorf("failed to deliver reset token: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the owner's password.
func (s *Service) ResetPassword(ctx context.Context, token, newSecret string) error {
	if err := models.ValidatePassword(newSecret); err != nil {
		return err
	}

	raw, err := s.cache.Take(ctx, resetKeyPrefix+token)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return e.ErrInvalidToken
		}
		return fmt.Errorf("failed to read reset token: %w", err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return e.ErrInvalidToken
	}
	return s.setPassword(ctx, userID, newSecret)
}

// CheckResetToken reports whether token is a live reset token. Unlike
// ResetPassword it leaves the token in place.
func (s *Service) CheckResetToken(ctx context.Context, token string) error {
	raw, err := s.cache.Get(ctx, resetKeyPrefix+token)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return e.ErrInvalidToken
		}
		return fmt.Errorf("failed to read reset token: %w", err)
	}
	if _, err := uuid.Parse(raw); err != nil {
		return e.ErrInvalidToken
	}
	return nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, current, newSecret string) error {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return e.ErrInvalidToken
	}
	if err := models.ValidatePassword(newSecret); err != nil {
		return err
	}

	u, err := s.users.GetUser(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return e.ErrInvalidToken
		}
		return err
	}
	if err := s.hasher.Verify(current, u.PasswordHash); err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, newSecret)
}

// Me returns the projection of the calling user.
func (s *Service) Me(ctx context.Context) (*models.UserProjection, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, e.ErrInvalidToken
	}
	u, err := s.users.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	p := u.Projection()
	return &p, nil
}

func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, secret string) error {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// LogNotifier writes reset tokens to the log. It stands in for a mail
// gateway in development deployments.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("reset_notifier")}
}

func (n *LogNotifier) NotifyPasswordReset(_ context.Context, u *models.User, token string, expiresAt time.Time) error {
	n.logger.Info("Password reset requested",
		zap.String("user_id", u.ID.String()),
		zap.Time("expires_at", expiresAt),
	)
	n.logger.Debug("Password reset token", zap.String("email", u.Email), zap.String("token", token))
	return nil
}
