package models

import "time"

const (
	ACCOUNT_TYPE_USER = "User"
	ACCOUNT_TYPE_ORG  = "Organization"
)

// Installation mirrors a GitHub App installation. The installation id is
// immutable; login and type are refreshed on every installation event.
// AccountID is nil while the installation is pending, i.e. installed before
// the owner ever logged in. The link is established later through the setup
// callback.
type Installation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InstallationID int64     `gorm:"uniqueIndex" json:"installation_id"`
	AccountLogin   string    `gorm:"type:varchar(255);not null" json:"account_login"`
	AccountType    string    `gorm:"type:varchar(50)" json:"account_type"`
	AccountID      *uint     `json:"account_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LinkedAccountID returns the owning account id and true when the
// installation is linked, or zero and false while it is pending. Callers must
// handle both cases; there is no third state.
func (i *Installation) LinkedAccountID() (uint, bool) {
	if i.AccountID == nil {
		return 0, false
	}
	return *i.AccountID, true
}
