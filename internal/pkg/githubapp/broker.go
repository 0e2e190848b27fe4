package githubapp

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gofiber/fiber/v2/log"

	"github.com/reviewloop/reviewloop/internal/pkg/cache"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second

	// Installation tokens live for one hour; cache strictly below that.
	tokenCacheTTL = 50 * time.Minute
)

// Broker exchanges the long-lived app credential for short-lived
// installation-scoped access tokens. Failures are surfaced as hard errors and
// never retried here: tokens are cheap to re-request and blind retries risk
// provider rate limiting.
type Broker struct {
	appID      int64
	privateKey *rsa.PrivateKey
	baseURL    string
	client     *http.Client
	useCache   bool
}

// BrokerConfig carries the GitHub App identity. The key may be supplied
// inline (PEM) or via a file path.
type BrokerConfig struct {
	AppID          int64
	PrivateKeyPEM  string
	PrivateKeyPath string
}

// NewBroker creates a credential broker from the app identity.
func NewBroker(cfg BrokerConfig) (*Broker, error) {
	pem := cfg.PrivateKeyPEM
	if pem == "" && cfg.PrivateKeyPath != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key file: %w", err)
		}
		pem = string(raw)
	}
	if cfg.AppID == 0 || pem == "" {
		return nil, fmt.Errorf("github app id and private key are required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Broker{
		appID:      cfg.AppID,
		privateKey: key,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

// SetBaseURL sets a custom API base URL (for testing).
func (b *Broker) SetBaseURL(url string) {
	b.baseURL = url
}

// EnableTokenCache turns on per-installation token caching in Redis with a
// TTL below the provider's stated expiry. Off by default.
func (b *Broker) EnableTokenCache() {
	b.useCache = true
}

// appJWT builds the short-lived signed assertion used only to request
// installation tokens. Issued-at is backdated 60s to absorb clock skew.
func (b *Broker) appJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(b.appID, 10),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(b.privateKey)
}

type accessTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InstallationToken exchanges the app assertion for an installation-scoped
// bearer token.
func (b *Broker) InstallationToken(ctx context.Context, installationID int64) (string, error) {
	cacheKey := fmt.Sprintf("ghapp:token:%d", installationID)
	if b.useCache {
		if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
			return cached, nil
		}
	}

	assertion, err := b.appJWT(time.Now())
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", b.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "create installation token", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		err := newAPIError("create installation token", resp.StatusCode, body)
		log.Errorf("[GitHubApp] token exchange failed for installation %d: %v", installationID, err)
		return "", err
	}

	var parsed accessTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.Token == "" {
		return "", newAPIError("create installation token", resp.StatusCode, body)
	}

	if b.useCache {
		if err := cache.Set(cacheKey, parsed.Token, tokenCacheTTL); err != nil {
			log.Warnf("[GitHubApp] token cache write failed: %v", err)
		}
	}

	return parsed.Token, nil
}
