package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// ErrSessionInvalid is returned for unknown, expired or revoked sessions.
var ErrSessionInvalid = errors.New("session invalid")

// Session is a validated login session.
type Session struct {
	UserID    uint
	ExpiresAt time.Time
}

// SessionStore issues and validates opaque session tokens. Only a peppered
// SHA-256 of the token is persisted, so a database dump alone cannot be
// replayed as a cookie.
type SessionStore interface {
	Create(ctx context.Context, userID uint, ip, userAgent string) (string, error)
	Validate(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

type sessionStore struct {
	db     *gorm.DB
	cfg    *config.SessionConfig
	logger logger.Interface
}

func NewSessionStore(db *gorm.DB, cfg *config.SessionConfig, logger logger.Interface) SessionStore {
	return &sessionStore{db: db, cfg: cfg, logger: logger}
}

func (s *sessionStore) Create(ctx context.Context, userID uint, ip, userAgent string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now().UTC()
	model := &models.SessionModel{
		SessionIDHash: s.hash(token),
		UserID:        userID,
		IP:            ip,
		UserAgent:     userAgent,
		ExpiresAt:     now.AddDate(0, 0, s.cfg.ExpDays),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		s.logger.Errorw("failed to create session", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Infow("session created", "user_id", userID)
	return token, nil
}

func (s *sessionStore) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	var model models.SessionModel
	err := s.db.WithContext(ctx).
		Where("session_id_hash = ?", s.hash(token)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	now := time.Now().UTC()
	if model.RevokedAt != nil || !model.ExpiresAt.After(now) {
		return nil, ErrSessionInvalid
	}

	// Sliding last-seen update; failures here never invalidate the session.
	if err := s.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("id = ?", model.ID).
		Update("last_seen_at", now).Error; err != nil {
		s.logger.Warnw("failed to refresh session last seen", "error", err)
	}

	return &Session{UserID: model.UserID, ExpiresAt: model.ExpiresAt}, nil
}

func (s *sessionStore) Revoke(ctx context.Context, token string) error {
	now := time.Now().UTC()

	result := s.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Where("session_id_hash = ? AND revoked_at IS NULL", s.hash(token)).
		Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke session: %w", result.Error)
	}
	return nil
}

func (s *sessionStore) hash(token string) string {
	sum := sha256.Sum256([]byte(s.cfg.Pepper + token))
	return hex.EncodeToString(sum[:])
}
