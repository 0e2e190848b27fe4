package githubapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DiffFetcher retrieves the unified diff of a pull request through the
// GitHub API. An empty or whitespace-only diff is a valid outcome and is
// returned as-is; distinguishing "nothing to review" from a transport error
// is the caller's job via the error return.
type DiffFetcher struct {
	baseURL string
	client  *http.Client
}

// NewDiffFetcher creates an API-backed diff fetcher.
func NewDiffFetcher(timeout time.Duration) *DiffFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &DiffFetcher{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL sets a custom API base URL (for testing).
func (f *DiffFetcher) SetBaseURL(url string) {
	f.baseURL = url
}

// FetchDiff requests the unified-diff representation of the PR, not the JSON
// file list, so the review input matches what a human reviewer reads.
func (f *DiffFetcher) FetchDiff(ctx context.Context, token, repoFullName string, prNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/pulls/%d", f.baseURL, repoFullName, prNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3.diff")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "fetch diff", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "read diff body", Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", newAPIError("fetch diff", resp.StatusCode, body)
	}

	return string(body), nil
}
