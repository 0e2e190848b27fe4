package reviewengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Verdict is the final textual review produced by an engine, plus token
// accounting when the engine reports it.
type Verdict struct {
	Text       string
	TokensUsed int
}

// Engine submits a diff for review and returns the final verdict. A nil
// Verdict with a nil error means the engine produced no usable output; the
// caller treats that as "review unavailable", not as a failure. Transport and
// session failures are returned as errors.
type Engine interface {
	Review(ctx context.Context, diff string, prNumber int) (*Verdict, error)
}

// newSessionID builds a fresh, globally unique conversation identifier.
// Session ids are never reused across PRs or retries so engine-side context
// cannot bleed between reviews.
func newSessionID(prNumber int) string {
	u := uuid.New()
	return fmt.Sprintf("pr_%d_%x", prNumber, u[0:4])
}

// reviewPrompt wraps the diff in the instruction the engine receives.
func reviewPrompt(diff string) string {
	return "Review this code diff:\n\n" + diff
}
