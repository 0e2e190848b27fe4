package repository

import (
	"github.com/reviewloop/reviewloop/app/models"
	"gorm.io/gorm"
)

// reviewLogRepository implements the ReviewLogRepository interface
type reviewLogRepository struct {
	db *gorm.DB
}

// NewReviewLogRepository creates a new review log repository instance
func NewReviewLogRepository(db *gorm.DB) ReviewLogRepository {
	return &reviewLogRepository{db: db}
}

// Create appends one audit row. Logs are never updated or deleted.
func (r *reviewLogRepository) Create(log *models.ReviewLog) error {
	return r.db.Create(log).Error
}

// GetByAccountID returns the most recent review logs for an account
func (r *reviewLogRepository) GetByAccountID(accountID uint, limit int) ([]models.ReviewLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.ReviewLog
	err := r.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountByAccountAndStatus counts audit rows per outcome
func (r *reviewLogRepository) CountByAccountAndStatus(accountID uint, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ReviewLog{}).
		Where("account_id = ? AND status = ?", accountID, status).
		Count(&count).Error
	return count, err
}
