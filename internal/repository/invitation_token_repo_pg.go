package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mastersrl/carnivalhub/internal/model"
)

type pgInvitationTokenRepository struct {
	db *gorm.DB
}

func (r *pgInvitationTokenRepository) Create(ctx context.Context, token *model.InvitationToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *pgInvitationTokenRepository) GetByValue(ctx context.Context, value string) (*model.InvitationToken, error) {
	var token model.InvitationToken
	if err := r.db.WithContext(ctx).Where("value = ?", value).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// Consume is the only race between honest clients; the WHERE clause makes it single-winner.
func (r *pgInvitationTokenRepository) Consume(ctx context.Context, value string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.InvitationToken{}).
		Where("value = ? AND consumed_at IS NULL AND expires_at > ?", value, now.Truncate(time.Second)).
		UpdateColumn("consumed_at", now)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected != 1 {
		return ErrStale
	}
	return nil
}

func (r *pgInvitationTokenRepository) PurgeSpent(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("consumed_at IS NOT NULL OR expires_at <= ?", now.Truncate(time.Second)).
		Delete(&model.InvitationToken{})
	return res.RowsAffected, translate(res.Error)
}
