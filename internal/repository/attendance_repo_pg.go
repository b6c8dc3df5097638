package repository

import (
	"context"

	"gorm.io/gorm"

	"mastersrl/carnivalhub/internal/model"
)

type pgAttendanceRepository struct {
	db *gorm.DB
}

func (r *pgAttendanceRepository) Create(ctx context.Context, reg *model.CarnivalClub) error {
	return translate(r.db.WithContext(ctx).Create(reg).Error)
}

func (r *pgAttendanceRepository) GetByID(ctx context.Context, id uint) (*model.CarnivalClub, error) {
	var reg model.CarnivalClub
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *pgAttendanceRepository) GetActive(ctx context.Context, carnivalID, clubID uint) (*model.CarnivalClub, error) {
	var reg model.CarnivalClub
	err := r.db.WithContext(ctx).
		Where("carnival_id = ? AND club_id = ? AND is_active = ?", carnivalID, clubID, true).
		First(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *pgAttendanceRepository) ListActiveByCarnival(ctx context.Context, carnivalID uint) ([]model.CarnivalClub, error) {
	var regs []model.CarnivalClub
	err := r.db.WithContext(ctx).
		Where("carnival_id = ? AND is_active = ?", carnivalID, true).
		Order("display_order ASC, registration_date ASC, id ASC").
		Find(&regs).Error
	return regs, translate(err)
}

func (r *pgAttendanceRepository) ListActiveByClub(ctx context.Context, clubID uint) ([]model.CarnivalClub, error) {
	var regs []model.CarnivalClub
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND is_active = ?", clubID, true).
		Order("registration_date ASC, id ASC").
		Find(&regs).Error
	return regs, translate(err)
}

func (r *pgAttendanceRepository) MaxDisplayOrder(ctx context.Context, carnivalID uint) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).
		Model(&model.CarnivalClub{}).
		Where("carnival_id = ? AND is_active = ?", carnivalID, true).
		Select("COALESCE(MAX(display_order), 0)").
		Scan(&highest).Error
	return highest, translate(err)
}

func (r *pgAttendanceRepository) Update(ctx context.Context, reg *model.CarnivalClub) error {
	return translate(r.db.WithContext(ctx).Save(reg).Error)
}
