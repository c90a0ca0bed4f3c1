package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/mappers"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// consumeRetries bounds the internal retry loop on serialization conflicts.
// Conflicts are never surfaced to callers as a distinct error type.
const consumeRetries = 3

// consumableStatuses are the stored statuses a consume candidate may carry.
// Status is re-derived before use, so a stale quota_exhausted row with
// refunded quota is still a candidate; the remaining > 0 filter does the
// actual gating.
var consumableStatuses = []string{
	entitlement.StatusActive.String(),
	entitlement.StatusQuotaExhausted.String(),
}

type EntitlementRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.EntitlementMapper
	logger logger.Interface
}

func NewEntitlementRepository(db *gorm.DB, logger logger.Interface) entitlement.Repository {
	return &EntitlementRepositoryImpl{
		db:     db,
		mapper: mappers.NewEntitlementMapper(),
		logger: logger,
	}
}

func (r *EntitlementRepositoryImpl) Create(ctx context.Context, e *entitlement.Entitlement) error {
	model, err := r.mapper.ToModel(e)
	if err != nil {
		r.logger.Errorw("failed to map entitlement entity to model", "error", err)
		return fmt.Errorf("failed to map entitlement entity: %w", err)
	}

	// Insert-or-no-op on the unique checkout session ID. Idempotency under
	// duplicate webhook delivery lives in this constraint, not in
	// application-level locking.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checkout_session_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create entitlement in database", "error", result.Error)
		return fmt.Errorf("failed to create entitlement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entitlement.ErrDuplicateEntitlement
	}

	if err := e.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set entitlement ID: %w", err)
	}

	r.logger.Infow("entitlement created",
		"sid", model.SID, "user_id", model.UserID, "plan_code", model.PlanCode, "quota_total", model.QuotaTotal)
	return nil
}

func (r *EntitlementRepositoryImpl) Update(ctx context.Context, e *entitlement.Entitlement) error {
	model, err := r.mapper.ToModel(e)
	if err != nil {
		return fmt.Errorf("failed to map entitlement entity: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&models.EntitlementModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"remaining":         model.Remaining,
			"status":            model.Status,
			"payment_intent_id": model.PaymentIntentID,
			"customer_id":       model.CustomerID,
			"price_id":          model.PriceID,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update entitlement", "sid", model.SID, "error", result.Error)
		return fmt.Errorf("failed to update entitlement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entitlement.ErrConcurrencyConflict
	}

	return nil
}

func (r *EntitlementRepositoryImpl) GetBySID(ctx context.Context, sid string) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel

	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlement.ErrEntitlementNotFound
		}
		r.logger.Errorw("failed to get entitlement by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *EntitlementRepositoryImpl) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel

	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlement.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *EntitlementRepositoryImpl) GetActiveByUserID(ctx context.Context, userID uint) (*entitlement.Entitlement, error) {
	now := time.Now().UTC()

	// Lazy expiry sweep before selection: once valid_until passed, the row
	// must never be returned again regardless of its stored status.
	if _, err := r.expireDue(r.db.WithContext(ctx), now); err != nil {
		return nil, err
	}

	var model models.EntitlementModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND valid_until > ? AND remaining > 0",
			userID, consumableStatuses, now).
		Order("valid_until ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get active entitlement", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get active entitlement: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *EntitlementRepositoryImpl) ConsumeOne(ctx context.Context, userID uint) (*entitlement.ConsumeResult, error) {
	var lastErr error
	for attempt := 0; attempt < consumeRetries; attempt++ {
		result, err := r.consumeOnce(ctx, userID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, entitlement.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		r.logger.Debugw("consume conflict, retrying", "user_id", userID, "attempt", attempt+1)
	}

	// Retries exhausted: the quota was contended away, report no capacity
	// rather than leaking the conflict to the caller.
	r.logger.Warnw("consume retries exhausted", "user_id", userID, "error", lastErr)
	return nil, entitlement.ErrNoCapacity
}

// consumeOnce runs the whole select-decrement-write sequence inside one
// transaction with a row-level lock on the single candidate row. The lock
// scope is one row so unrelated owners never serialize on each other.
func (r *EntitlementRepositoryImpl) consumeOnce(ctx context.Context, userID uint) (*entitlement.ConsumeResult, error) {
	var consumed *entitlement.ConsumeResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var model models.EntitlementModel
		query := tx.Where("user_id = ? AND status IN ? AND valid_until > ? AND remaining > 0",
			userID, consumableStatuses, now).
			Order("valid_until ASC")
		if supportsRowLocks(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return entitlement.ErrNoCapacity
			}
			return fmt.Errorf("failed to select consume candidate: %w", err)
		}

		entity, err := r.mapper.ToEntity(&model)
		if err != nil {
			return err
		}
		if err := entity.Consume(now); err != nil {
			return err
		}

		update := tx.Model(&models.EntitlementModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Updates(map[string]interface{}{
				"remaining":  entity.Remaining(),
				"status":     entity.Status().String(),
				"version":    entity.Version(),
				"updated_at": entity.UpdatedAt(),
			})
		if update.Error != nil {
			return fmt.Errorf("failed to decrement entitlement: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return entitlement.ErrConcurrencyConflict
		}

		consumed = &entitlement.ConsumeResult{
			EntitlementSID: entity.SID(),
			PlanCode:       entity.PlanCode(),
			RemainingAfter: entity.Remaining(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Infow("quota consumed",
		"user_id", userID, "entitlement_sid", consumed.EntitlementSID, "remaining", consumed.RemainingAfter)
	return consumed, nil
}

func (r *EntitlementRepositoryImpl) Refund(ctx context.Context, sid string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var model models.EntitlementModel
		query := tx.Where("sid = ?", sid)
		if supportsRowLocks(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return entitlement.ErrEntitlementNotFound
			}
			return fmt.Errorf("failed to select entitlement for refund: %w", err)
		}

		entity, err := r.mapper.ToEntity(&model)
		if err != nil {
			return err
		}
		if !entity.Refund(now) {
			// Outside the validity window or already at full quota; the
			// pre-committed unit is simply forfeited.
			r.logger.Infow("refund skipped", "entitlement_sid", sid, "status", entity.Status())
			return nil
		}

		result := tx.Model(&models.EntitlementModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Updates(map[string]interface{}{
				"remaining":  entity.Remaining(),
				"status":     entity.Status().String(),
				"version":    entity.Version(),
				"updated_at": entity.UpdatedAt(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to refund entitlement: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return entitlement.ErrConcurrencyConflict
		}

		r.logger.Infow("quota refunded", "entitlement_sid", sid, "remaining", entity.Remaining())
		return nil
	})
}

func (r *EntitlementRepositoryImpl) MarkReplaced(ctx context.Context, sid string) error {
	result := r.db.WithContext(ctx).
		Model(&models.EntitlementModel{}).
		Where("sid = ?", sid).
		Updates(map[string]interface{}{
			"status":     entitlement.StatusReplaced.String(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to mark entitlement replaced", "sid", sid, "error", result.Error)
		return fmt.Errorf("failed to mark entitlement replaced: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entitlement.ErrEntitlementNotFound
	}

	r.logger.Infow("entitlement replaced after upgrade", "sid", sid)
	return nil
}

func (r *EntitlementRepositoryImpl) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	return r.expireDue(r.db.WithContext(ctx), now)
}

func (r *EntitlementRepositoryImpl) expireDue(db *gorm.DB, now time.Time) (int64, error) {
	result := db.
		Model(&models.EntitlementModel{}).
		Where("valid_until <= ? AND status IN ?", now, consumableStatuses).
		Updates(map[string]interface{}{
			"status":     entitlement.StatusExpired.String(),
			"updated_at": now,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to expire due entitlements", "error", result.Error)
		return 0, fmt.Errorf("failed to expire entitlements: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// supportsRowLocks reports whether the dialect honors SELECT ... FOR UPDATE.
// sqlite (used by the test suite) serializes writers at the database level
// instead and rejects the clause.
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() != "sqlite"
}
