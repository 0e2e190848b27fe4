package models

import (
	"errors"

	"gorm.io/gorm"
)

// SeedDefaultPlans makes sure the free tier exists. At least one plan must be
// present before the first account is created, so this runs during database
// setup.
func SeedDefaultPlans(db *gorm.DB) error {
	var existing Plan
	err := db.Where("slug = ?", PLAN_FREE).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	reviewLimit := 5
	tokenLimit := 200000
	free := Plan{
		Name:               "Free",
		Slug:               PLAN_FREE,
		MonthlyReviewLimit: &reviewLimit,
		MonthlyTokenLimit:  &tokenLimit,
		Active:             true,
	}
	if err := free.Validate(); err != nil {
		return err
	}

	return db.Create(&free).Error
}
