package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamezxlan/ley-en-mano-backend/internal/domain/user"
	"github.com/gamezxlan/ley-en-mano-backend/internal/infrastructure/persistence/models"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserRepository(db *gorm.DB, logger logger.Interface) user.Repository {
	return &UserRepositoryImpl{db: db, logger: logger}
}

func (r *UserRepositoryImpl) UpsertByEmail(ctx context.Context, email string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	entity, err := user.NewUser(email)
	if err != nil {
		return nil, err
	}
	model := userToModel(entity)

	// Insert-or-no-op on the unique email, then read back whichever row won.
	// Two concurrent checkouts for the same email converge on one user.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to upsert user", "email", email, "error", result.Error)
		return nil, fmt.Errorf("failed to upsert user: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		if err := entity.SetID(model.ID); err != nil {
			return nil, err
		}
		r.logger.Infow("user created", "sid", entity.SID(), "email", email)
		return entity, nil
	}

	var existing models.UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load user after upsert: %w", err)
	}
	return userToEntity(&existing)
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uint) (*user.User, error) {
	var model models.UserModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return userToEntity(&model)
}

func (r *UserRepositoryImpl) GetBySID(ctx context.Context, sid string) (*user.User, error) {
	var model models.UserModel

	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return userToEntity(&model)
}

func (r *UserRepositoryImpl) GetByProviderCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	var model models.UserModel

	if err := r.db.WithContext(ctx).Where("provider_customer_id = ?", customerID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by customer: %w", err)
	}

	return userToEntity(&model)
}

func (r *UserRepositoryImpl) Update(ctx context.Context, u *user.User) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", u.ID()).
		Updates(map[string]interface{}{
			"provider_customer_id": u.ProviderCustomerID(),
			"updated_at":           u.UpdatedAt(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update user", "sid", u.SID(), "error", result.Error)
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

func userToModel(u *user.User) *models.UserModel {
	return &models.UserModel{
		ID:                 u.ID(),
		SID:                u.SID(),
		Email:              u.Email(),
		ProviderCustomerID: u.ProviderCustomerID(),
		CreatedAt:          u.CreatedAt(),
		UpdatedAt:          u.UpdatedAt(),
	}
}

func userToEntity(m *models.UserModel) (*user.User, error) {
	return user.Reconstruct(m.ID, m.SID, m.Email, m.ProviderCustomerID, m.CreatedAt, m.UpdatedAt)
}
