package repository

import (
	"time"

	"github.com/reviewloop/reviewloop/app/models"
	"gorm.io/gorm"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account in the database
func (r *accountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByGithubUserID retrieves an account by its GitHub user id
func (r *accountRepository) GetByGithubUserID(githubUserID int64) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("github_user_id = ?", githubUserID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetWithPlan retrieves an account with its plan preloaded
func (r *accountRepository) GetWithPlan(id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.Preload("Plan").First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Update persists changed account fields
func (r *accountRepository) Update(account *models.Account) error {
	return r.db.Save(account).Error
}

// UsageForAccount returns the current usage counter and the plan limit
// (nil limit = unlimited) for the quota gate's check phase.
func (r *accountRepository) UsageForAccount(id uint) (int, *int, error) {
	account, err := r.GetWithPlan(id)
	if err != nil {
		return 0, nil, err
	}
	if account.Plan == nil {
		return account.ReviewsUsedThisPeriod, nil, gorm.ErrRecordNotFound
	}
	return account.ReviewsUsedThisPeriod, account.Plan.MonthlyReviewLimit, nil
}

// IncrementUsageWithinLimit increments the usage counter with a single
// conditional UPDATE so concurrent deliveries can never push an account past
// its plan limit. Returns false when the row was already at (or above) the
// limit and nothing was written.
func (r *accountRepository) IncrementUsageWithinLimit(id uint) (bool, error) {
	res := r.db.Exec(`
		UPDATE accounts a
		JOIN plans p ON p.id = a.plan_id
		SET a.reviews_used_this_period = a.reviews_used_this_period + 1
		WHERE a.id = ?
		  AND (p.monthly_review_limit IS NULL OR a.reviews_used_this_period < p.monthly_review_limit)`,
		id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RolloverExpiredPeriods resets the usage counter and advances the billing
// window for every account whose period has ended. Returns the number of
// accounts rolled over.
func (r *accountRepository) RolloverExpiredPeriods(now time.Time, periodLength time.Duration) (int64, error) {
	res := r.db.Model(&models.Account{}).
		Where("period_end IS NOT NULL AND period_end < ?", now).
		Updates(map[string]interface{}{
			"reviews_used_this_period": 0,
			"period_start":             now,
			"period_end":               now.Add(periodLength),
		})
	return res.RowsAffected, res.Error
}
