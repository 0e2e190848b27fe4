package repository

import (
	"time"

	"github.com/reviewloop/reviewloop/app/models"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for account-related database operations
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id uint) (*models.Account, error)
	GetByGithubUserID(githubUserID int64) (*models.Account, error)
	GetWithPlan(id uint) (*models.Account, error)
	Update(account *models.Account) error
	UsageForAccount(id uint) (used int, limit *int, err error)
	IncrementUsageWithinLimit(id uint) (bool, error)
	RolloverExpiredPeriods(now time.Time, periodLength time.Duration) (int64, error)
}

// PlanRepository defines the interface for plan-related database operations
type PlanRepository interface {
	GetByID(id uint) (*models.Plan, error)
	GetBySlug(slug string) (*models.Plan, error)
	ListActive() ([]models.Plan, error)
}

// InstallationRepository defines the interface for installation-related database operations
type InstallationRepository interface {
	GetByInstallationID(installationID int64) (*models.Installation, error)
	GetByAccountID(accountID uint) ([]models.Installation, error)
	Upsert(installationID int64, accountLogin, accountType string) (*models.Installation, error)
	LinkToAccount(installationID int64, accountID uint) (*models.Installation, error)
	Delete(installationID int64) error
}

// RepoRepository defines the interface for tracked-repository database operations
type RepoRepository interface {
	GetByName(installationID uint, repoFullName string) (*models.Repository, error)
	GetByInstallationID(installationID uint) ([]models.Repository, error)
	Upsert(installationID uint, repoFullName string, active bool) (*models.Repository, error)
	SetActive(installationID uint, repoFullName string, active bool) error
	DeleteByInstallationID(installationID uint) error
}

// ReviewLogRepository defines the interface for the append-only audit trail
type ReviewLogRepository interface {
	Create(log *models.ReviewLog) error
	GetByAccountID(accountID uint, limit int) ([]models.ReviewLog, error)
	CountByAccountAndStatus(accountID uint, status string) (int64, error)
}

// Repositories bundles all repository instances
type Repositories struct {
	Account      AccountRepository
	Plan         PlanRepository
	Installation InstallationRepository
	Repo         RepoRepository
	ReviewLog    ReviewLogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:      NewAccountRepository(db),
		Plan:         NewPlanRepository(db),
		Installation: NewInstallationRepository(db),
		Repo:         NewRepoRepository(db),
		ReviewLog:    NewReviewLogRepository(db),
	}
}
