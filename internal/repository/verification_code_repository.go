package repository

import (
	"time"

	"github.com/AlexX2727/backend/internal/models"
	"gorm.io/gorm"
)

// GormVerificationCodeRepository is a GORM implementation of VerificationCodeRepository
type GormVerificationCodeRepository struct {
	db *gorm.DB
}

// NewVerificationCodeRepository creates a new VerificationCodeRepository
func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &GormVerificationCodeRepository{db: db}
}

func (r *GormVerificationCodeRepository) Create(code *models.VerificationCode) error {
	return r.db.Create(code).Error
}

// FindActive finds an unused, non-expired code for the user
func (r *GormVerificationCodeRepository) FindActive(userID uint64, code string, now time.Time) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.
		Where("user_id = ? AND code = ? AND used = ? AND expires_at > ?", userID, code, false, now).
		First(&vc).Error
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

// DeleteUnusedByUser removes any prior unused codes for the user
func (r *GormVerificationCodeRepository) DeleteUnusedByUser(userID uint64) error {
	return r.db.Where("user_id = ? AND used = ?", userID, false).
		Delete(&models.VerificationCode{}).Error
}

// MarkUsed consumes a code
func (r *GormVerificationCodeRepository) MarkUsed(id uint64) error {
	return r.db.Model(&models.VerificationCode{}).
		Where("id = ?", id).
		Update("used", true).Error
}
