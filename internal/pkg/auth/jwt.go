package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reviewloop/reviewloop/internal/pkg/env"
)

const (
	loginTokenTTL = 7 * 24 * time.Hour
	linkStateTTL  = 15 * time.Minute

	purposeLogin     = "login"
	purposeInstallLk = "install_link"
)

var ErrInvalidToken = errors.New("invalid or expired token")

func secret() []byte {
	return []byte(env.GetEnv("JWT_SECRET", "super-secret-key-change-this"))
}

type claims struct {
	AccountID    uint   `json:"account_id"`
	GithubUserID int64  `json:"github_user_id,omitempty"`
	Purpose      string `json:"purpose"`
	jwt.RegisteredClaims
}

// IssueLoginToken creates the bearer credential returned after OAuth login.
func IssueLoginToken(accountID uint, githubUserID int64) (string, error) {
	now := time.Now()
	c := claims{
		AccountID:    accountID,
		GithubUserID: githubUserID,
		Purpose:      purposeLogin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(loginTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret())
}

// ParseLoginToken validates a bearer credential and returns the account id.
func ParseLoginToken(token string) (uint, error) {
	return parse(token, purposeLogin)
}

// IssueLinkState creates the short-lived opaque state value that binds an
// installation-setup callback to the requesting account.
func IssueLinkState(accountID uint) (string, error) {
	now := time.Now()
	c := claims{
		AccountID: accountID,
		Purpose:   purposeInstallLk,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(linkStateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret())
}

// ParseLinkState validates a setup-callback state value and returns the
// account it names.
func ParseLinkState(state string) (uint, error) {
	return parse(state, purposeInstallLk)
}

func parse(token, purpose string) (uint, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret(), nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	if c.Purpose != purpose || c.AccountID == 0 {
		return 0, ErrInvalidToken
	}
	return c.AccountID, nil
}
