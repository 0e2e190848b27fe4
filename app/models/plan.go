package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PLAN_FREE = "free"
	PLAN_PRO  = "pro"
	PLAN_TEAM = "team"
)

// Plan is a subscription tier. A nil MonthlyReviewLimit means unlimited
// reviews. Plans referenced by running billing cycles are only changed by
// administrative action.
type Plan struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"type:varchar(50)" json:"name" validate:"required,min=2,max=50"`
	Slug               string    `gorm:"uniqueIndex;type:varchar(50)" json:"slug" validate:"required,min=2,max=50,lowercase"`
	MonthlyReviewLimit *int      `gorm:"default:null" json:"monthly_review_limit"`
	MonthlyTokenLimit  *int      `gorm:"default:null" json:"monthly_token_limit"`
	StripePriceID      string    `gorm:"type:varchar(100);default:null" json:"-"`
	Active             bool      `gorm:"default:true" json:"active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Plan) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// Unlimited reports whether the plan has no monthly review ceiling.
func (p *Plan) Unlimited() bool {
	return p.MonthlyReviewLimit == nil
}
