package controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/reviewloop/reviewloop/app/repository"
	"github.com/reviewloop/reviewloop/internal/pkg/env"
	"github.com/reviewloop/reviewloop/internal/pkg/gitdiff"
	"github.com/reviewloop/reviewloop/internal/pkg/githubapp"
	"github.com/reviewloop/reviewloop/internal/pkg/quota"
	"github.com/reviewloop/reviewloop/internal/pkg/reviewengine"
	"github.com/reviewloop/reviewloop/internal/pkg/webhook"
)

// EventHandler is what the webhook endpoint needs from the event router.
type EventHandler interface {
	HandleEvent(ctx context.Context, eventType string, payload []byte, opts webhook.Options) (*webhook.Result, error)
}

var (
	webhookService EventHandler
	webhookSecret  string
)

// InitializeWebhookController wires the event router from configuration.
// Must run after the database and cache are set up.
func InitializeWebhookController() {
	appID, _ := strconv.ParseInt(env.GetEnv("GITHUB_APP_ID", "0"), 10, 64)
	broker, err := githubapp.NewBroker(githubapp.BrokerConfig{
		AppID:          appID,
		PrivateKeyPEM:  env.GetEnv("GITHUB_PRIVATE_KEY", ""),
		PrivateKeyPath: env.GetEnv("GITHUB_PRIVATE_KEY_PATH", ""),
	})
	if err != nil {
		log.Fatalf("webhook controller: %v", err)
	}
	if env.GetEnv("TOKEN_CACHE", "false") == "true" {
		broker.EnableTokenCache()
	}

	githubTimeout := parseDurationEnv("GITHUB_TIMEOUT", 10*time.Second)
	reviewTimeout := parseDurationEnv("REVIEW_TIMEOUT", 120*time.Second)

	var diffs webhook.DiffFetcher
	switch env.GetEnv("DIFF_SOURCE", "api") {
	case "clone":
		diffs = gitdiff.NewFetcher()
	default:
		diffs = githubapp.NewDiffFetcher(githubTimeout)
	}

	var engine reviewengine.Engine
	switch env.GetEnv("REVIEW_ENGINE", "agent") {
	case "openai":
		engine = reviewengine.NewOpenAIClient(
			env.GetEnv("OPENAI_API_KEY", ""),
			env.GetEnv("OPENAI_MODEL", ""),
			reviewTimeout,
		)
	default:
		engine = reviewengine.NewAgentClient(
			env.GetEnv("REVIEW_ENGINE_URL", "http://localhost:8000"),
			env.GetEnv("REVIEW_ENGINE_APP", "agents"),
			reviewTimeout,
		)
	}

	repos := repository.GetGlobalRepositories()
	webhookSecret = env.GetEnv("GITHUB_WEBHOOK_SECRET", "")
	webhookService = webhook.NewService(
		repos,
		broker,
		diffs,
		engine,
		githubapp.NewCommentPublisher(githubTimeout),
		quota.NewGate(repos.Account),
		webhook.Config{GitHubTimeout: githubTimeout, ReviewTimeout: reviewTimeout},
	)
}

// HandleWebhook is the inbound event endpoint. Application-level outcomes
// always answer 200 so the delivery system does not treat them as failures;
// only unparseable payloads and bad signatures are rejected.
func HandleWebhook(c *fiber.Ctx) error {
	eventType := c.Get("X-GitHub-Event")
	body := c.Body()

	if webhookSecret != "" {
		if !githubapp.VerifyWebhookSignature(body, c.Get("X-Hub-Signature-256"), webhookSecret) {
			log.Warnf("[Webhook] signature verification failed for event %s", eventType)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid webhook signature",
			})
		}
	}

	opts := webhook.Options{TokenOverride: c.Get("X-GitHub-Token")}
	result, err := webhookService.HandleEvent(c.Context(), eventType, body, opts)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid payload",
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if raw := env.GetEnv(key, ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return def
}
