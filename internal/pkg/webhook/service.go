package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/reviewloop/reviewloop/app/models"
	"github.com/reviewloop/reviewloop/app/repository"
	"github.com/reviewloop/reviewloop/internal/pkg/quota"
	"github.com/reviewloop/reviewloop/internal/pkg/reviewengine"
)

// CommentHeader prefixes every comment the app posts.
const CommentHeader = "### AI Code Review\n\n"

// PR actions that trigger a review. Everything else is acknowledged without
// side effects.
var reviewableActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// TokenBroker issues installation-scoped access tokens.
type TokenBroker interface {
	InstallationToken(ctx context.Context, installationID int64) (string, error)
}

// DiffFetcher retrieves the unified diff for a PR.
type DiffFetcher interface {
	FetchDiff(ctx context.Context, token, repoFullName string, prNumber int) (string, error)
}

// CommentPublisher posts a comment on the originating PR.
type CommentPublisher interface {
	PostComment(ctx context.Context, token, repoFullName string, prNumber int, body string) error
}

// UsageGate is the two-phase quota check/commit.
type UsageGate interface {
	CheckAndReserve(accountID uint) (quota.Decision, error)
	Commit(accountID uint) error
}

// Config bounds the outbound calls made while processing one event.
type Config struct {
	GitHubTimeout time.Duration
	ReviewTimeout time.Duration
}

// Service is the webhook event router. It classifies incoming events, drives
// the components in sequence and is the single place that decides terminal
// statuses and writes the audit log. Components never write audit rows
// themselves.
type Service struct {
	installations repository.InstallationRepository
	accounts      repository.AccountRepository
	repos         repository.RepoRepository
	reviewLogs    repository.ReviewLogRepository

	broker    TokenBroker
	diffs     DiffFetcher
	engine    reviewengine.Engine
	publisher CommentPublisher
	gate      UsageGate

	cfg Config
}

// NewService wires the event router.
func NewService(
	repos *repository.Repositories,
	broker TokenBroker,
	diffs DiffFetcher,
	engine reviewengine.Engine,
	publisher CommentPublisher,
	gate UsageGate,
	cfg Config,
) *Service {
	if cfg.GitHubTimeout <= 0 {
		cfg.GitHubTimeout = 10 * time.Second
	}
	if cfg.ReviewTimeout <= 0 {
		cfg.ReviewTimeout = 120 * time.Second
	}
	return &Service{
		installations: repos.Installation,
		accounts:      repos.Account,
		repos:         repos.Repo,
		reviewLogs:    repos.ReviewLog,
		broker:        broker,
		diffs:         diffs,
		engine:        engine,
		publisher:     publisher,
		gate:          gate,
		cfg:           cfg,
	}
}

// HandleEvent routes one delivery. The returned error is non-nil only for
// unparseable payloads; every application-level outcome, including internal
// failures, comes back as a Result so the HTTP layer can answer 200 and the
// provider does not retry-storm.
func (s *Service) HandleEvent(ctx context.Context, eventType string, payload []byte, opts Options) (*Result, error) {
	switch eventType {
	case EventInstallation:
		var p installationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("parse installation payload: %w", err)
		}
		return s.handleInstallation(p), nil

	case EventInstallationRepositories:
		var p installationReposPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("parse installation_repositories payload: %w", err)
		}
		return s.handleInstallationRepositories(p), nil

	case EventPullRequest:
		var p pullRequestPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("parse pull_request payload: %w", err)
		}
		return s.handlePullRequest(ctx, p, opts), nil

	default:
		log.Infof("[Webhook] ignored event type: %s", eventType)
		return &Result{Status: StatusIgnoredEvent, Event: eventType}, nil
	}
}

// handleInstallation upserts the installation record. Login and type are
// refreshed even when the installation already exists; only the provider id
// is immutable. A "deleted" action removes the record.
func (s *Service) handleInstallation(p installationPayload) *Result {
	if p.Action == "deleted" {
		// Tracked repo rows reference the installation and must go first.
		if inst, err := s.installations.GetByInstallationID(p.Installation.ID); err == nil {
			if err := s.repos.DeleteByInstallationID(inst.ID); err != nil {
				log.Errorf("[Webhook] delete repositories for installation %d: %v", p.Installation.ID, err)
				return &Result{Status: StatusError, Event: EventInstallation, Message: "installation delete failed"}
			}
		}
		if err := s.installations.Delete(p.Installation.ID); err != nil {
			log.Errorf("[Webhook] delete installation %d: %v", p.Installation.ID, err)
			return &Result{Status: StatusError, Event: EventInstallation, Message: "installation delete failed"}
		}
		return &Result{Status: StatusInstallationReceived, Event: EventInstallation, Message: "installation removed"}
	}

	inst, err := s.installations.Upsert(p.Installation.ID, p.Installation.Account.Login, p.Installation.Account.Type)
	if err != nil {
		log.Errorf("[Webhook] upsert installation %d: %v", p.Installation.ID, err)
		return &Result{Status: StatusError, Event: EventInstallation, Message: "installation upsert failed"}
	}

	for _, repo := range p.Repositories {
		if _, err := s.repos.Upsert(inst.ID, repo.FullName, true); err != nil {
			log.Warnf("[Webhook] upsert repository %s: %v", repo.FullName, err)
		}
	}

	log.Infof("[Webhook] app installed for account=%s, installation_id=%d",
		p.Installation.Account.Login, p.Installation.ID)
	return &Result{Status: StatusInstallationReceived, Event: EventInstallation}
}

// handleInstallationRepositories tracks repos added to or removed from an
// existing installation. Removed repos are deactivated, not deleted, so the
// opt-out survives a re-add.
func (s *Service) handleInstallationRepositories(p installationReposPayload) *Result {
	inst, err := s.installations.GetByInstallationID(p.Installation.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Status: StatusInstallationNotFound, Event: EventInstallationRepositories}
		}
		log.Errorf("[Webhook] lookup installation %d: %v", p.Installation.ID, err)
		return &Result{Status: StatusError, Event: EventInstallationRepositories, Message: "installation lookup failed"}
	}

	for _, repo := range p.RepositoriesAdded {
		if _, err := s.repos.Upsert(inst.ID, repo.FullName, true); err != nil {
			log.Warnf("[Webhook] add repository %s: %v", repo.FullName, err)
		}
	}
	for _, repo := range p.RepositoriesRemoved {
		if err := s.repos.SetActive(inst.ID, repo.FullName, false); err != nil {
			log.Warnf("[Webhook] deactivate repository %s: %v", repo.FullName, err)
		}
	}

	return &Result{Status: StatusInstallationReceived, Event: EventInstallationRepositories}
}

// handlePullRequest is the review pipeline: resolve installation, account and
// plan, consult the usage gate, fetch the diff, dispatch the review, publish
// the verdict and only then commit usage. Usage is never incremented before a
// successful publication, so failures undercharge rather than overcharge.
func (s *Service) handlePullRequest(ctx context.Context, p pullRequestPayload, opts Options) *Result {
	repoFullName := p.Repository.FullName
	prNumber := p.PullRequest.Number

	if !reviewableActions[p.Action] {
		log.Infof("[Webhook] ignored PR action: %s", p.Action)
		return &Result{
			Status:   fmt.Sprintf("ignored_action: %s", p.Action),
			Event:    EventPullRequest,
			Repo:     repoFullName,
			PRNumber: prNumber,
		}
	}

	log.Infof("[Webhook] PR #%d %s -> %s (%s), installation_id=%d",
		prNumber, p.PullRequest.Head.Ref, p.PullRequest.Base.Ref, repoFullName, p.Installation.ID)

	// Resolve installation before any token work; a missing record must not
	// cost a credential exchange.
	inst, err := s.installations.GetByInstallationID(p.Installation.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Status: StatusInstallationNotFound, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber}
		}
		log.Errorf("[Webhook] lookup installation %d: %v", p.Installation.ID, err)
		return &Result{Status: StatusError, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber, Message: "installation lookup failed"}
	}

	accountID, linked := inst.LinkedAccountID()
	if !linked {
		return &Result{Status: StatusUserNotLinked, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber}
	}

	account, err := s.accounts.GetWithPlan(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Status: StatusUserNotLinked, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber}
		}
		log.Errorf("[Webhook] load account %d: %v", accountID, err)
		return &Result{Status: StatusError, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber, Message: "account lookup failed"}
	}

	if account.Plan == nil {
		s.record(account.ID, &inst.ID, repoFullName, prNumber, models.REVIEW_STATUS_SKIPPED, nil, "no plan assigned")
		return &Result{Status: StatusPlanNotFound, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber}
	}

	// Per-repo opt-out; an unknown repo is reviewable by default.
	if repo, err := s.repos.GetByName(inst.ID, repoFullName); err == nil && !repo.Active {
		s.record(account.ID, &inst.ID, repoFullName, prNumber, models.REVIEW_STATUS_SKIPPED, nil, "repository disabled")
		return &Result{Status: StatusRepoDisabled, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber}
	}

	decision, err := s.gate.CheckAndReserve(account.ID)
	if err != nil {
		log.Errorf("[Webhook] quota check for account %d: %v", account.ID, err)
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, "quota check failed")
	}

	if !decision.Allowed {
		return s.publishLimitNotice(ctx, p, inst, account, decision, opts)
	}

	token, res := s.installationToken(ctx, p.Installation.ID, opts)
	if res != nil {
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, res.Message)
	}

	ghCtx, cancel := context.WithTimeout(ctx, s.cfg.GitHubTimeout)
	diff, err := s.diffs.FetchDiff(ghCtx, token, repoFullName, prNumber)
	cancel()
	if err != nil {
		log.Errorf("[Webhook] fetch diff for %s#%d: %v", repoFullName, prNumber, err)
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, "diff fetch failed")
	}

	if strings.TrimSpace(diff) == "" {
		log.Infof("[Webhook] empty diff for %s#%d, nothing to review", repoFullName, prNumber)
		s.record(account.ID, &inst.ID, repoFullName, prNumber, models.REVIEW_STATUS_SKIPPED, nil, "empty diff")
		return &Result{Status: StatusSkipped, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber, Message: "no changes detected in PR diff"}
	}

	reviewCtx, cancel := context.WithTimeout(ctx, s.cfg.ReviewTimeout)
	verdict, err := s.engine.Review(reviewCtx, diff, prNumber)
	cancel()
	if err != nil {
		log.Errorf("[Webhook] review dispatch for %s#%d: %v", repoFullName, prNumber, err)
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, "review engine failed")
	}
	if verdict == nil {
		// Engine produced nothing usable. The next PR update retries
		// organically, so this is a skip, not a failure.
		s.record(account.ID, &inst.ID, repoFullName, prNumber, models.REVIEW_STATUS_SKIPPED, nil, "review engine returned no verdict")
		return &Result{Status: StatusSkipped, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber, Message: "review unavailable"}
	}

	ghCtx, cancel = context.WithTimeout(ctx, s.cfg.GitHubTimeout)
	err = s.publisher.PostComment(ghCtx, token, repoFullName, prNumber, CommentHeader+verdict.Text)
	cancel()
	if err != nil {
		log.Errorf("[Webhook] post comment for %s#%d: %v", repoFullName, prNumber, err)
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, "comment post failed")
	}

	var tokens *int
	if verdict.TokensUsed > 0 {
		t := verdict.TokensUsed
		tokens = &t
	}

	// Commit after publication. A failed commit undercharges the account;
	// that is the intended bias.
	if err := s.gate.Commit(account.ID); err != nil && !errors.Is(err, quota.ErrQuotaExceeded) {
		log.Warnf("[Webhook] usage commit for account %d failed (review already published): %v", account.ID, err)
	}

	s.record(account.ID, &inst.ID, repoFullName, prNumber, models.REVIEW_STATUS_SUCCESS, tokens, "")
	return &Result{Status: StatusSuccess, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber, Message: "review posted successfully"}
}

// publishLimitNotice posts the quota-exceeded comment without touching the
// usage counter.
func (s *Service) publishLimitNotice(ctx context.Context, p pullRequestPayload, inst *models.Installation, account *models.Account, decision quota.Decision, opts Options) *Result {
	repoFullName := p.Repository.FullName
	prNumber := p.PullRequest.Number

	limit := 0
	if decision.Limit != nil {
		limit = *decision.Limit
	}
	notice := fmt.Sprintf(
		"%sYour monthly review limit has been reached (%d/%d). Upgrade your plan to keep getting automatic reviews on new pull requests.",
		CommentHeader, decision.Used, limit)

	token, res := s.installationToken(ctx, p.Installation.ID, opts)
	if res != nil {
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, res.Message)
	}

	ghCtx, cancel := context.WithTimeout(ctx, s.cfg.GitHubTimeout)
	err := s.publisher.PostComment(ghCtx, token, repoFullName, prNumber, notice)
	cancel()
	if err != nil {
		log.Errorf("[Webhook] post limit notice for %s#%d: %v", repoFullName, prNumber, err)
		return s.fail(account.ID, inst.ID, repoFullName, prNumber, "limit notice post failed")
	}

	s.record(account.ID, &inst.ID, repoFullName, prNumber, models.REVIEW_STATUS_LIMIT_REACHED, nil, "")
	return &Result{Status: StatusLimitReached, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber}
}

// installationToken resolves the token for this event, honoring a
// per-request override.
func (s *Service) installationToken(ctx context.Context, installationID int64, opts Options) (string, *Result) {
	if opts.TokenOverride != "" {
		return opts.TokenOverride, nil
	}
	ghCtx, cancel := context.WithTimeout(ctx, s.cfg.GitHubTimeout)
	defer cancel()
	token, err := s.broker.InstallationToken(ghCtx, installationID)
	if err != nil {
		log.Errorf("[Webhook] installation token for %d: %v", installationID, err)
		return "", &Result{Status: StatusError, Message: "token exchange failed"}
	}
	return token, nil
}

// fail records an error outcome in the audit log and returns the error
// status.
func (s *Service) fail(accountID, instID uint, repoFullName string, prNumber int, msg string) *Result {
	s.record(accountID, &instID, repoFullName, prNumber, models.REVIEW_STATUS_ERROR, nil, msg)
	return &Result{Status: StatusError, Event: EventPullRequest, Repo: repoFullName, PRNumber: prNumber, Message: msg}
}

// record appends one audit row. Audit failures are logged and swallowed; the
// event outcome already happened and must be reported either way.
func (s *Service) record(accountID uint, installationID *uint, repoFullName string, prNumber int, status string, tokens *int, errMsg string) {
	entry := &models.ReviewLog{
		AccountID:      accountID,
		InstallationID: installationID,
		RepoFullName:   repoFullName,
		PRNumber:       prNumber,
		Status:         status,
		TokensUsed:     tokens,
		ErrorMessage:   errMsg,
	}
	if err := s.reviewLogs.Create(entry); err != nil {
		log.Errorf("[Webhook] write review log for account %d: %v", accountID, err)
	}
}
