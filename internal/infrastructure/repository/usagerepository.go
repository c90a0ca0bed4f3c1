package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/usage"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type UsageEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageEventRepository(db *gorm.DB, logger logger.Interface) usage.EventRepository {
	return &UsageEventRepositoryImpl{db: db, logger: logger}
}

func (r *UsageEventRepositoryImpl) Append(ctx context.Context, ev *usage.UsageEvent) error {
	model := &models.UsageEventModel{
		SID:            ev.SID,
		VisitorID:      ev.VisitorID,
		UserID:         ev.UserID,
		Profile:        ev.Profile.String(),
		PlanCode:       ev.PlanCode,
		ModelUsed:      ev.ModelUsed,
		Endpoint:       ev.Endpoint,
		Allowed:        ev.Allowed,
		Reason:         ev.Reason,
		EntitlementSID: ev.EntitlementSID,
		IPHash:         ev.IPHash,
		CreatedAt:      ev.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to append usage event", "visitor_id", ev.VisitorID, "error", err)
		return fmt.Errorf("failed to append usage event: %w", err)
	}
	return nil
}

func (r *UsageEventRepositoryImpl) CountAllowedByVisitor(ctx context.Context, visitorID string, from, to time.Time) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("visitor_id = ? AND allowed = ? AND created_at >= ? AND created_at < ?",
			visitorID, true, from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count visitor usage: %w", err)
	}
	return int(count), nil
}

func (r *UsageEventRepositoryImpl) CountAllowedByUser(ctx context.Context, userID uint, from, to time.Time) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&models.UsageEventModel{}).
		Where("user_id = ? AND allowed = ? AND created_at >= ? AND created_at < ?",
			userID, true, from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count user usage: %w", err)
	}
	return int(count), nil
}

type VisitorRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewVisitorRepository(db *gorm.DB, logger logger.Interface) usage.VisitorRepository {
	return &VisitorRepositoryImpl{db: db, logger: logger}
}

func (r *VisitorRepositoryImpl) Upsert(ctx context.Context, visitorID string, userID *uint) error {
	entity, err := usage.NewVisitor(visitorID, userID)
	if err != nil {
		return err
	}

	// COALESCE keeps an existing user link when this interaction is
	// anonymous; a non-nil userID always wins.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "visitor_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"user_id":      gorm.Expr("COALESCE(?, user_id)", userID),
				"last_seen_at": entity.LastSeenAt,
			}),
		}).
		Create(&models.VisitorModel{
			VisitorID:  entity.VisitorID,
			UserID:     entity.UserID,
			CreatedAt:  entity.FirstSeen,
			LastSeenAt: entity.LastSeenAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to upsert visitor", "visitor_id", visitorID, "error", result.Error)
		return fmt.Errorf("failed to upsert visitor: %w", result.Error)
	}
	return nil
}

func (r *VisitorRepositoryImpl) Get(ctx context.Context, visitorID string) (*usage.Visitor, error) {
	var model models.VisitorModel

	if err := r.db.WithContext(ctx).Where("visitor_id = ?", visitorID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get visitor: %w", err)
	}

	return &usage.Visitor{
		VisitorID:  model.VisitorID,
		UserID:     model.UserID,
		FirstSeen:  model.CreatedAt,
		LastSeenAt: model.LastSeenAt,
	}, nil
}
