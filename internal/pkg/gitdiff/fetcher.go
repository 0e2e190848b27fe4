package gitdiff

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Fetcher produces a PR diff by cloning the repository instead of calling
// the API diff endpoint. Selected with DIFF_SOURCE=clone; useful when the
// API diff is unavailable (e.g. very large PRs get a 406).
type Fetcher struct {
	hostURL string
}

// NewFetcher creates a clone-based diff fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{hostURL: "https://github.com"}
}

// SetHostURL sets a custom git host (for testing).
func (f *Fetcher) SetHostURL(url string) {
	f.hostURL = url
}

// FetchDiff clones the repo in memory, fetches the PR head ref and renders
// the patch from the default branch head to the PR head.
func (f *Fetcher) FetchDiff(ctx context.Context, token, repoFullName string, prNumber int) (string, error) {
	auth := &githttp.BasicAuth{Username: "x-access-token", Password: token}
	url := fmt.Sprintf("%s/%s.git", f.hostURL, repoFullName)

	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
		URL:        url,
		Auth:       auth,
		NoCheckout: true,
	})
	if err != nil {
		return "", fmt.Errorf("clone %s: %w", repoFullName, err)
	}

	prRef := plumbing.ReferenceName(fmt.Sprintf("refs/pull/%d/head", prNumber))
	localRef := plumbing.ReferenceName(fmt.Sprintf("refs/remotes/origin/pr-%d", prNumber))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		Auth:     auth,
		RefSpecs: []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", prRef, localRef))},
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return "", fmt.Errorf("fetch pr ref %d: %w", prNumber, err)
	}

	headRef, err := repo.Reference(localRef, true)
	if err != nil {
		return "", fmt.Errorf("resolve pr ref %d: %w", prNumber, err)
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return "", fmt.Errorf("resolve pr head commit: %w", err)
	}

	baseRef, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}
	baseCommit, err := repo.CommitObject(baseRef.Hash())
	if err != nil {
		return "", fmt.Errorf("resolve base commit: %w", err)
	}

	patch, err := baseCommit.PatchContext(ctx, headCommit)
	if err != nil {
		return "", fmt.Errorf("compute patch: %w", err)
	}

	return patch.String(), nil
}
