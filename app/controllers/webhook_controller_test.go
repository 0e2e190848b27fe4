package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewloop/reviewloop/internal/pkg/webhook"
)

type fakeEventHandler struct {
	result    *webhook.Result
	err       error
	eventType string
	opts      webhook.Options
}

func (f *fakeEventHandler) HandleEvent(ctx context.Context, eventType string, payload []byte, opts webhook.Options) (*webhook.Result, error) {
	f.eventType = eventType
	f.opts = opts
	return f.result, f.err
}

func newWebhookTestApp(handler EventHandler, secret string) *fiber.App {
	webhookService = handler
	webhookSecret = secret

	app := fiber.New()
	app.Post("/webhook", HandleWebhook)
	return app
}

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhookSuccess(t *testing.T) {
	handler := &fakeEventHandler{result: &webhook.Result{Status: webhook.StatusSuccess}}
	app := newWebhookTestApp(handler, "")

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"action":"opened"}`))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "pull_request", handler.eventType)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"status":"success"`)
}

func TestHandleWebhookSignature(t *testing.T) {
	const secret = "hook-secret"
	const payload = `{"action":"opened"}`

	handler := &fakeEventHandler{result: &webhook.Result{Status: webhook.StatusSuccess}}
	app := newWebhookTestApp(handler, secret)

	t.Run("valid signature accepted", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		req.Header.Set("X-GitHub-Event", "pull_request")
		req.Header.Set("X-Hub-Signature-256", sign(payload, secret))

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		req.Header.Set("X-GitHub-Event", "pull_request")
		req.Header.Set("X-Hub-Signature-256", sign(payload, "some other secret"))

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhook", strings.NewReader(payload))
		req.Header.Set("X-GitHub-Event", "pull_request")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHandleWebhookBadPayload(t *testing.T) {
	handler := &fakeEventHandler{err: errors.New("parse pull_request payload")}
	app := newWebhookTestApp(handler, "")

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("not json"))
	req.Header.Set("X-GitHub-Event", "pull_request")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleWebhookTokenOverrideForwarded(t *testing.T) {
	handler := &fakeEventHandler{result: &webhook.Result{Status: webhook.StatusSuccess}}
	app := newWebhookTestApp(handler, "")

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{}`))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-GitHub-Token", "ghs_caller")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ghs_caller", handler.opts.TokenOverride)
}
