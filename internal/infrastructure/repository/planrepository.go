package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/plan"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) plan.Repository {
	return &PlanRepositoryImpl{db: db, logger: logger}
}

func (r *PlanRepositoryImpl) GetByCode(ctx context.Context, code string) (*plan.Plan, error) {
	var model models.PlanModel

	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return planToEntity(&model)
}

func (r *PlanRepositoryImpl) GetByProviderPrice(ctx context.Context, providerPrice string) (*plan.Plan, error) {
	var model models.PlanModel

	if err := r.db.WithContext(ctx).Where("provider_price = ?", providerPrice).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, plan.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan by price: %w", err)
	}

	return planToEntity(&model)
}

func (r *PlanRepositoryImpl) ListActive(ctx context.Context) ([]*plan.Plan, error) {
	var ms []*models.PlanModel

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("price_cents ASC").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := make([]*plan.Plan, 0, len(ms))
	for _, m := range ms {
		p, err := planToEntity(m)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r *PlanRepositoryImpl) Save(ctx context.Context, p *plan.Plan) error {
	features, err := json.Marshal(p.Features())
	if err != nil {
		return fmt.Errorf("failed to encode plan features: %w", err)
	}

	model := &models.PlanModel{
		ID:             p.ID(),
		Code:           p.Code(),
		Name:           p.Name(),
		QuotaTotal:     p.QuotaTotal(),
		PriceCents:     p.PriceCents(),
		Currency:       p.Currency(),
		ProviderPrice:  p.ProviderPrice(),
		ValidityMonths: p.ValidityMonths(),
		Features:       datatypes.JSON(features),
		Active:         p.IsActive(),
	}

	// Seed-friendly upsert keyed by plan code.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "quota_total", "price_cents", "currency", "provider_price", "validity_months", "features", "active", "updated_at"}),
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to save plan", "code", p.Code(), "error", result.Error)
		return fmt.Errorf("failed to save plan: %w", result.Error)
	}

	if p.ID() == 0 {
		if err := p.SetID(model.ID); err != nil {
			return err
		}
	}
	return nil
}

func planToEntity(m *models.PlanModel) (*plan.Plan, error) {
	var features []string
	if len(m.Features) > 0 {
		if err := json.Unmarshal(m.Features, &features); err != nil {
			return nil, fmt.Errorf("failed to decode plan features: %w", err)
		}
	}

	return plan.Reconstruct(
		m.ID, m.Code, m.Name, m.QuotaTotal, m.PriceCents,
		m.Currency, m.ProviderPrice, m.ValidityMonths, features, m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}
