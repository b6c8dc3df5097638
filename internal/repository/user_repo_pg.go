package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"mastersrl/carnivalhub/internal/model"
)

type pgUserRepository struct {
	db *gorm.DB
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r *pgUserRepository) ListByClub(ctx context.Context, clubID uint) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND is_active = ?", clubID, true).
		Order("joined_club_at ASC NULLS LAST, id ASC").
		Find(&users).Error
	return users, translate(err)
}
