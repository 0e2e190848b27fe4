package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Account is a GitHub user known to the service. The provider user id is
// unique and immutable; everything else may be refreshed on login.
// ReviewsUsedThisPeriod has a single writer: the quota gate.
type Account struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	GithubUserID          int64      `gorm:"uniqueIndex" json:"github_user_id" validate:"required"`
	Username              string     `gorm:"type:varchar(100);index" json:"username" validate:"required,max=100"`
	Email                 string     `gorm:"type:varchar(255);default:null" json:"email" validate:"omitempty,email,max=255"`
	AvatarURL             string     `gorm:"type:varchar(500);default:null" json:"avatar_url" validate:"max=500"`
	PlanID                *uint      `json:"plan_id"`
	Plan                  *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	ReviewsUsedThisPeriod int        `gorm:"not null;default:0" json:"reviews_used_this_period"`
	PeriodStart           *time.Time `gorm:"type:timestamp;default:null" json:"period_start"`
	PeriodEnd             *time.Time `gorm:"type:timestamp;default:null" json:"period_end"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// PeriodExpired reports whether the billing period has an end and it has
// passed. Rollover is an explicit maintenance operation, never a side effect
// of reading the account.
func (a *Account) PeriodExpired(now time.Time) bool {
	return a.PeriodEnd != nil && a.PeriodEnd.Before(now)
}
