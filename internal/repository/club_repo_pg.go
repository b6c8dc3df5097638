package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mastersrl/carnivalhub/internal/model"
)

type pgClubRepository struct {
	db *gorm.DB
}

func (r *pgClubRepository) Create(ctx context.Context, club *model.Club) error {
	return translate(r.db.WithContext(ctx).Create(club).Error)
}

func (r *pgClubRepository) GetByID(ctx context.Context, id uint) (*model.Club, error) {
	var club model.Club
	if err := r.db.WithContext(ctx).First(&club, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &club, nil
}

func (r *pgClubRepository) GetForUpdate(ctx context.Context, id uint) (*model.Club, error) {
	var club model.Club
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&club, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &club, nil
}

func (r *pgClubRepository) GetActiveByName(ctx context.Context, name string) (*model.Club, error) {
	var club model.Club
	err := r.db.WithContext(ctx).
		Where("lower(club_name) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(name)), true).
		First(&club).Error
	if err != nil {
		return nil, translate(err)
	}
	return &club, nil
}

func (r *pgClubRepository) Update(ctx context.Context, club *model.Club) error {
	return translate(r.db.WithContext(ctx).Save(club).Error)
}

func (r *pgClubRepository) List(ctx context.Context, filter ClubFilter) ([]model.Club, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if !filter.IncludeUnlisted {
		q = q.Where("is_publicly_listed = ?", true)
	}
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	if strings.TrimSpace(filter.Text) != "" {
		like := containsPattern(filter.Text)
		q = q.Where(
			"(club_name ILIKE ? OR location ILIKE ? OR EXISTS ("+
				"SELECT 1 FROM club_alternate_names a "+
				"WHERE a.club_id = clubs.id AND a.is_active AND a.alternate_name ILIKE ?))",
			like, like, like,
		)
	}

	var clubs []model.Club
	err := q.Order("club_name ASC, id ASC").Find(&clubs).Error
	return clubs, translate(err)
}

type pgAlternateNameRepository struct {
	db *gorm.DB
}

func (r *pgAlternateNameRepository) Create(ctx context.Context, name *model.ClubAlternateName) error {
	return translate(r.db.WithContext(ctx).Create(name).Error)
}

func (r *pgAlternateNameRepository) GetByID(ctx context.Context, id uint) (*model.ClubAlternateName, error) {
	var name model.ClubAlternateName
	if err := r.db.WithContext(ctx).First(&name, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &name, nil
}

func (r *pgAlternateNameRepository) ListByClub(ctx context.Context, clubID uint) ([]model.ClubAlternateName, error) {
	var names []model.ClubAlternateName
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND is_active = ?", clubID, true).
		Order("alternate_name ASC").
		Find(&names).Error
	return names, translate(err)
}

func (r *pgAlternateNameRepository) Update(ctx context.Context, name *model.ClubAlternateName) error {
	return translate(r.db.WithContext(ctx).Save(name).Error)
}
