package repository

import (
	"errors"

	"github.com/reviewloop/reviewloop/app/models"
	"gorm.io/gorm"
)

// repoRepository implements the RepoRepository interface
type repoRepository struct {
	db *gorm.DB
}

// NewRepoRepository creates a new tracked-repository repository instance
func NewRepoRepository(db *gorm.DB) RepoRepository {
	return &repoRepository{db: db}
}

// GetByName retrieves a tracked repository by installation and full name
func (r *repoRepository) GetByName(installationID uint, repoFullName string) (*models.Repository, error) {
	var repo models.Repository
	err := r.db.Where("installation_id = ? AND repo_full_name = ?", installationID, repoFullName).
		First(&repo).Error
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetByInstallationID returns all repositories tracked for an installation
func (r *repoRepository) GetByInstallationID(installationID uint) ([]models.Repository, error) {
	var repos []models.Repository
	err := r.db.Where("installation_id = ?", installationID).Find(&repos).Error
	return repos, err
}

// Upsert creates or updates the repository row keyed by
// (installation_id, repo_full_name); the active flag always reflects the
// latest call.
func (r *repoRepository) Upsert(installationID uint, repoFullName string, active bool) (*models.Repository, error) {
	repo, err := r.GetByName(installationID, repoFullName)
	if err == nil {
		repo.Active = active
		if err := r.db.Save(repo).Error; err != nil {
			return nil, err
		}
		return repo, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	repo = &models.Repository{
		InstallationID: installationID,
		RepoFullName:   repoFullName,
		Active:         active,
	}
	if err := r.db.Create(repo).Error; err != nil {
		return nil, err
	}
	return repo, nil
}

// SetActive flips the per-repo opt-out flag
func (r *repoRepository) SetActive(installationID uint, repoFullName string, active bool) error {
	return r.db.Model(&models.Repository{}).
		Where("installation_id = ? AND repo_full_name = ?", installationID, repoFullName).
		Update("active", active).Error
}

// DeleteByInstallationID removes every repository row tracked for an
// installation. Must run before the installation row itself is deleted.
func (r *repoRepository) DeleteByInstallationID(installationID uint) error {
	return r.db.Where("installation_id = ?", installationID).
		Delete(&models.Repository{}).Error
}
