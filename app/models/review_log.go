package models

import "time"

const (
	REVIEW_STATUS_SUCCESS       = "success"
	REVIEW_STATUS_SKIPPED       = "skipped"
	REVIEW_STATUS_ERROR         = "error"
	REVIEW_STATUS_LIMIT_REACHED = "limit_reached"
)

// ReviewLog is the append-only audit trail of review attempts. Rows are
// written exclusively by the webhook event router and never mutated.
type ReviewLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AccountID      uint      `gorm:"not null;index" json:"account_id"`
	InstallationID *uint     `gorm:"index" json:"installation_id"`
	RepoFullName   string    `gorm:"type:varchar(255);not null" json:"repo_full_name"`
	PRNumber       int       `gorm:"not null" json:"pr_number"`
	Status         string    `gorm:"type:varchar(20);not null;default:'success'" json:"status"`
	TokensUsed     *int      `gorm:"default:null" json:"tokens_used"`
	ErrorMessage   string    `gorm:"type:varchar(2000);default:null" json:"error_message"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
