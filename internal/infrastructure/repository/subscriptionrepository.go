package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/subscription"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/mappers"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Upsert(ctx context.Context, p subscription.UpsertParams) (*subscription.Subscription, error) {
	var upserted *subscription.Subscription

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Demote competing actives first, then write the target row. Both
		// steps share the transaction so no reader ever observes two active
		// subscriptions for the same owner.
		if p.Status == subscription.StatusActive {
			demote := tx.Model(&models.SubscriptionModel{}).
				Where("user_id = ? AND status = ? AND provider_sub_id <> ?",
					p.UserID, subscription.StatusActive.String(), p.ProviderSubID).
				Updates(map[string]interface{}{
					"status":     subscription.StatusReplaced.String(),
					"updated_at": time.Now().UTC(),
				})
			if demote.Error != nil {
				return fmt.Errorf("failed to demote prior subscriptions: %w", demote.Error)
			}
			if demote.RowsAffected > 0 {
				r.logger.Infow("demoted prior active subscriptions",
					"user_id", p.UserID, "count", demote.RowsAffected)
			}
		}

		var model models.SubscriptionModel
		query := tx.Where("provider_sub_id = ?", p.ProviderSubID)
		if supportsRowLocks(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := query.First(&model).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entity, err := subscription.NewSubscription(
				p.UserID, p.PlanCode, p.Status, p.ProviderSubID, p.PeriodStart, p.PeriodEnd)
			if err != nil {
				return err
			}
			if err := entity.Merge(subscription.MergeParams{
				CustomerID: p.CustomerID,
				PriceID:    p.PriceID,
			}); err != nil {
				return err
			}

			newModel, err := r.mapper.ToModel(entity)
			if err != nil {
				return err
			}
			if err := tx.Create(newModel).Error; err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
			if err := entity.SetID(newModel.ID); err != nil {
				return err
			}
			upserted = entity

			r.logger.Infow("subscription created",
				"user_id", p.UserID, "provider_sub_id", p.ProviderSubID, "status", p.Status)
			return nil

		case err != nil:
			return fmt.Errorf("failed to look up subscription: %w", err)
		}

		entity, err := r.mapper.ToEntity(&model)
		if err != nil {
			return err
		}
		if err := entity.Merge(subscription.MergeParams{
			PlanCode:    p.PlanCode,
			Status:      p.Status,
			CustomerID:  p.CustomerID,
			PriceID:     p.PriceID,
			PeriodStart: p.PeriodStart,
			PeriodEnd:   p.PeriodEnd,
		}); err != nil {
			return err
		}

		merged, err := r.mapper.ToModel(entity)
		if err != nil {
			return err
		}
		result := tx.Model(&models.SubscriptionModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Updates(map[string]interface{}{
				"plan_code":            merged.PlanCode,
				"status":               merged.Status,
				"customer_id":          merged.CustomerID,
				"price_id":             merged.PriceID,
				"current_period_start": merged.CurrentPeriodStart,
				"current_period_end":   merged.CurrentPeriodEnd,
				"canceled_at":          merged.CanceledAt,
				"version":              merged.Version,
				"updated_at":           merged.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to merge subscription: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return subscription.ErrConcurrencyConflict
		}
		upserted = entity

		r.logger.Infow("subscription merged",
			"user_id", entity.UserID(), "provider_sub_id", p.ProviderSubID, "status", entity.Status())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return upserted, nil
}

func (r *SubscriptionRepositoryImpl) GetByProviderSubID(ctx context.Context, providerSubID string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	err := r.db.WithContext(ctx).Where("provider_sub_id = ?", providerSubID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetActiveByUserID(ctx context.Context, userID uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, subscription.StatusActive.String()).
		Order("current_period_end DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get active subscription", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) ListByUserID(ctx context.Context, userID uint) ([]*subscription.Subscription, error) {
	var ms []*models.SubscriptionModel

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return r.mapper.ToEntities(ms)
}
