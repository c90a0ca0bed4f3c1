package mappers

import (
	"fmt"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/entitlement"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
)

type EntitlementMapper interface {
	ToEntity(model *models.EntitlementModel) (*entitlement.Entitlement, error)
	ToModel(entity *entitlement.Entitlement) (*models.EntitlementModel, error)
	ToEntities(ms []*models.EntitlementModel) ([]*entitlement.Entitlement, error)
}

type EntitlementMapperImpl struct{}

func NewEntitlementMapper() EntitlementMapper {
	return &EntitlementMapperImpl{}
}

func (m *EntitlementMapperImpl) ToEntity(model *models.EntitlementModel) (*entitlement.Entitlement, error) {
	if model == nil {
		return nil, nil
	}

	status := entitlement.Status(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid entitlement status: %s", model.Status)
	}

	entity, err := entitlement.Reconstruct(entitlement.ReconstructParams{
		ID:                model.ID,
		SID:               model.SID,
		UserID:            model.UserID,
		PlanCode:          model.PlanCode,
		QuotaTotal:        model.QuotaTotal,
		Remaining:         model.Remaining,
		ValidUntil:        model.ValidUntil,
		Status:            status,
		CheckoutSessionID: model.CheckoutSessionID,
		PaymentIntentID:   model.PaymentIntentID,
		CustomerID:        model.CustomerID,
		PriceID:           model.PriceID,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
		Version:           model.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct entitlement: %w", err)
	}

	return entity, nil
}

func (m *EntitlementMapperImpl) ToModel(entity *entitlement.Entitlement) (*models.EntitlementModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.EntitlementModel{
		ID:                entity.ID(),
		SID:               entity.SID(),
		UserID:            entity.UserID(),
		PlanCode:          entity.PlanCode(),
		QuotaTotal:        entity.QuotaTotal(),
		Remaining:         entity.Remaining(),
		ValidUntil:        entity.ValidUntil(),
		Status:            entity.Status().String(),
		CheckoutSessionID: entity.CheckoutSessionID(),
		PaymentIntentID:   entity.PaymentIntentID(),
		CustomerID:        entity.CustomerID(),
		PriceID:           entity.PriceID(),
		Version:           entity.Version(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}, nil
}

func (m *EntitlementMapperImpl) ToEntities(ms []*models.EntitlementModel) ([]*entitlement.Entitlement, error) {
	entities := make([]*entitlement.Entitlement, 0, len(ms))
	for _, model := range ms {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
