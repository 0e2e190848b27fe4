package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountValidate(t *testing.T) {
	account := &Account{
		GithubUserID: 583231,
		Username:     "octocat",
		Email:        "octocat@github.com",
	}
	assert.NoError(t, account.Validate())

	missing := &Account{Username: "octocat"}
	assert.Error(t, missing.Validate(), "github user id is required")

	badMail := &Account{GithubUserID: 583231, Username: "octocat", Email: "not-an-email"}
	assert.Error(t, badMail.Validate())
}

func TestAccountPeriodExpired(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	var account Account
	assert.False(t, account.PeriodExpired(now), "no period end means never expired")

	past := now.Add(-time.Hour)
	account.PeriodEnd = &past
	assert.True(t, account.PeriodExpired(now))

	future := now.Add(time.Hour)
	account.PeriodEnd = &future
	assert.False(t, account.PeriodExpired(now))
}

func TestPlanValidate(t *testing.T) {
	limit := 5
	plan := &Plan{Name: "Free", Slug: "free", MonthlyReviewLimit: &limit}
	assert.NoError(t, plan.Validate())

	upper := &Plan{Name: "Free", Slug: "FREE"}
	assert.Error(t, upper.Validate(), "slug must be lowercase")
}

func TestPlanUnlimited(t *testing.T) {
	limit := 5
	assert.False(t, (&Plan{MonthlyReviewLimit: &limit}).Unlimited())
	assert.True(t, (&Plan{}).Unlimited())
}

func TestInstallationLinkedAccountID(t *testing.T) {
	pending := &Installation{InstallationID: 1001}
	id, linked := pending.LinkedAccountID()
	assert.False(t, linked)
	assert.Zero(t, id)

	accountID := uint(7)
	linkedInst := &Installation{InstallationID: 1001, AccountID: &accountID}
	id, linked = linkedInst.LinkedAccountID()
	assert.True(t, linked)
	assert.Equal(t, uint(7), id)
}
