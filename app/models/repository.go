package models

import "time"

// Repository is a repo covered by an installation. Active allows a per-repo
// opt-out from reviews. Upserts are idempotent on (installation_id, repo_full_name).
type Repository struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InstallationID uint      `gorm:"not null;uniqueIndex:idx_installation_repo" json:"installation_id"`
	RepoFullName   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_installation_repo" json:"repo_full_name"`
	Active         bool      `gorm:"default:true" json:"active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
