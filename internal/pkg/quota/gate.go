package quota

import "errors"

// ErrQuotaExceeded is returned by Commit when the conditional increment found
// the account already at its limit. This is a defined outcome, not a failure.
var ErrQuotaExceeded = errors.New("monthly review quota exceeded")

// Store is the persistence contract the gate needs. The account repository
// satisfies it; tests substitute fakes.
type Store interface {
	// UsageForAccount returns the current counter and the plan limit
	// (nil = unlimited).
	UsageForAccount(accountID uint) (used int, limit *int, err error)
	// IncrementUsageWithinLimit atomically increments the counter only while
	// it is below the limit, reporting whether a row was written.
	IncrementUsageWithinLimit(accountID uint) (bool, error)
}

// Decision is the outcome of the check phase.
type Decision struct {
	Allowed bool
	Used    int
	Limit   *int // nil = unlimited
}

// Gate enforces the per-account monthly review quota in two phases: a pure
// read check before any work is done, and a commit after the review has been
// published. A denied request never increments usage; a request that fails
// between check and commit simply never commits, biasing errors toward
// undercharging the account.
type Gate struct {
	store Store
}

// NewGate creates a usage gate over the given store.
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// CheckAndReserve reads the account's usage against its plan. A limit of N
// permits exactly N reviews per period: used >= limit denies.
func (g *Gate) CheckAndReserve(accountID uint) (Decision, error) {
	used, limit, err := g.store.UsageForAccount(accountID)
	if err != nil {
		return Decision{}, err
	}
	if limit == nil {
		return Decision{Allowed: true, Used: used, Limit: nil}, nil
	}
	return Decision{Allowed: used < *limit, Used: used, Limit: limit}, nil
}

// Commit performs the atomic conditional increment. Returns ErrQuotaExceeded
// when a concurrent delivery consumed the last slot between check and commit.
func (g *Gate) Commit(accountID uint) error {
	ok, err := g.store.IncrementUsageWithinLimit(accountID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}
