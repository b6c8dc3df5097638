package repository

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"mastersrl/carnivalhub/internal/model"
)

type pgSubscriptionRepository struct {
	db *gorm.DB
}

func (r *pgSubscriptionRepository) Create(ctx context.Context, sub *model.EmailSubscription) error {
	return translate(r.db.WithContext(ctx).Create(sub).Error)
}

func (r *pgSubscriptionRepository) GetByEmail(ctx context.Context, email string) (*model.EmailSubscription, error) {
	var sub model.EmailSubscription
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&sub).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *pgSubscriptionRepository) GetByUnsubscribeToken(ctx context.Context, token string) (*model.EmailSubscription, error) {
	var sub model.EmailSubscription
	if err := r.db.WithContext(ctx).Where("unsubscribe_token = ?", token).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *pgSubscriptionRepository) Update(ctx context.Context, sub *model.EmailSubscription) error {
	return translate(r.db.WithContext(ctx).Save(sub).Error)
}

func (r *pgSubscriptionRepository) ListActiveFor(
	ctx context.Context, state model.State, kind model.NotificationType,
) ([]model.EmailSubscription, error) {
	states, err := json.Marshal([]string{string(state)})
	if err != nil {
		return nil, err
	}
	kinds, err := json.Marshal([]string{string(kind)})
	if err != nil {
		return nil, err
	}

	var subs []model.EmailSubscription
	err = r.db.WithContext(ctx).
		Where("is_active = ? AND states @> ?::jsonb AND notification_types @> ?::jsonb", true, string(states), string(kinds)).
		Order("id ASC").
		Find(&subs).Error
	return subs, translate(err)
}
