package repository

import (
	"errors"

	"github.com/reviewloop/reviewloop/app/models"
	"gorm.io/gorm"
)

// installationRepository implements the InstallationRepository interface
type installationRepository struct {
	db *gorm.DB
}

// NewInstallationRepository creates a new installation repository instance
func NewInstallationRepository(db *gorm.DB) InstallationRepository {
	return &installationRepository{db: db}
}

// GetByInstallationID retrieves an installation by the provider-assigned id
func (r *installationRepository) GetByInstallationID(installationID int64) (*models.Installation, error) {
	var inst models.Installation
	err := r.db.Where("installation_id = ?", installationID).First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetByAccountID returns all installations linked to an account
func (r *installationRepository) GetByAccountID(accountID uint) ([]models.Installation, error) {
	var insts []models.Installation
	err := r.db.Where("account_id = ?", accountID).Find(&insts).Error
	return insts, err
}

// Upsert creates the installation on first sight or refreshes login and type
// on repeat events. The provider id and any existing account link are never
// touched here, so replaying an installation event is idempotent.
func (r *installationRepository) Upsert(installationID int64, accountLogin, accountType string) (*models.Installation, error) {
	inst, err := r.GetByInstallationID(installationID)
	if err == nil {
		inst.AccountLogin = accountLogin
		inst.AccountType = accountType
		if err := r.db.Save(inst).Error; err != nil {
			return nil, err
		}
		return inst, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	inst = &models.Installation{
		InstallationID: installationID,
		AccountLogin:   accountLogin,
		AccountType:    accountType,
	}
	if err := r.db.Create(inst).Error; err != nil {
		return nil, err
	}
	return inst, nil
}

// LinkToAccount binds a pending installation to an account. Linking an
// already linked installation to a different account is rejected; re-linking
// to the same account is a no-op.
func (r *installationRepository) LinkToAccount(installationID int64, accountID uint) (*models.Installation, error) {
	inst, err := r.GetByInstallationID(installationID)
	if err != nil {
		return nil, err
	}
	if linked, ok := inst.LinkedAccountID(); ok {
		if linked == accountID {
			return inst, nil
		}
		return nil, errors.New("installation is already linked to another account")
	}
	inst.AccountID = &accountID
	if err := r.db.Save(inst).Error; err != nil {
		return nil, err
	}
	return inst, nil
}

// Delete removes the installation record, e.g. when the app is uninstalled.
// Dependent rows are detached in the same transaction: tracked repositories
// go with the installation, audit entries are kept with the reference nulled.
func (r *installationRepository) Delete(installationID int64) error {
	inst, err := r.GetByInstallationID(installationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ReviewLog{}).
			Where("installation_id = ?", inst.ID).
			Update("installation_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("installation_id = ?", inst.ID).
			Delete(&models.Repository{}).Error; err != nil {
			return err
		}
		return tx.Delete(inst).Error
	})
}
