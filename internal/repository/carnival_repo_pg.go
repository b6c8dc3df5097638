package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mastersrl/carnivalhub/internal/model"
)

type pgCarnivalRepository struct {
	db *gorm.DB
}

func (r *pgCarnivalRepository) Create(ctx context.Context, carnival *model.Carnival) error {
	return translate(r.db.WithContext(ctx).Create(carnival).Error)
}

func (r *pgCarnivalRepository) GetByID(ctx context.Context, id uint) (*model.Carnival, error) {
	var carnival model.Carnival
	if err := r.db.WithContext(ctx).First(&carnival, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &carnival, nil
}

func (r *pgCarnivalRepository) GetForUpdate(ctx context.Context, id uint) (*model.Carnival, error) {
	var carnival model.Carnival
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&carnival, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &carnival, nil
}

func (r *pgCarnivalRepository) GetActiveByExternalID(ctx context.Context, externalID string) (*model.Carnival, error) {
	var carnival model.Carnival
	err := r.db.WithContext(ctx).
		Where("external_event_id = ? AND is_active = ?", externalID, true).
		First(&carnival).Error
	if err != nil {
		return nil, translate(err)
	}
	return &carnival, nil
}

func (r *pgCarnivalRepository) Update(ctx context.Context, carnival *model.Carnival) error {
	return translate(r.db.WithContext(ctx).Save(carnival).Error)
}

func (r *pgCarnivalRepository) AssignOwner(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).
		Model(&model.Carnival{}).
		Where("id = ? AND is_active = ? AND created_by_user_id IS NULL", id, true).
		Update("created_by_user_id", userID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *pgCarnivalRepository) List(ctx context.Context, filter CarnivalFilter) ([]model.Carnival, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	if filter.UpcomingFrom != nil {
		q = q.Where("date >= ?", *filter.UpcomingFrom)
	}
	if filter.ExternalOnly {
		q = q.Where("external_event_id IS NOT NULL")
	}
	if strings.TrimSpace(filter.Text) != "" {
		like := containsPattern(filter.Text)
		q = q.Where("(title ILIKE ? OR location_address ILIKE ?)", like, like)
	}

	var carnivals []model.Carnival
	err := q.Order("date ASC, id ASC").Find(&carnivals).Error
	return carnivals, translate(err)
}
