package githubapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CommentPublisher posts review results back to the originating PR as a
// single top-level issue comment. Posting is not idempotent; the event router
// calls it at most once per processing attempt.
type CommentPublisher struct {
	baseURL string
	client  *http.Client
}

// NewCommentPublisher creates an API-backed comment publisher.
func NewCommentPublisher(timeout time.Duration) *CommentPublisher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CommentPublisher{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL sets a custom API base URL (for testing).
func (p *CommentPublisher) SetBaseURL(url string) {
	p.baseURL = url
}

// PostComment creates an issue comment on the PR. Appears as the app's bot
// identity when posted with an installation token.
func (p *CommentPublisher) PostComment(ctx context.Context, token, repoFullName string, prNumber int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", p.baseURL, repoFullName, prNumber)

	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &TransportError{Op: "post comment", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return newAPIError("post comment", resp.StatusCode, respBody)
	}

	return nil
}
