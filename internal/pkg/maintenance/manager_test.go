package maintenance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reviewloop/reviewloop/app/repository"
)

type fakeAccounts struct {
	repository.AccountRepository

	mu           sync.Mutex
	calls        int
	lastNow      time.Time
	lastPeriod   time.Duration
	rolledResult int64
}

func (f *fakeAccounts) RolloverExpiredPeriods(now time.Time, periodLength time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastNow = now
	f.lastPeriod = periodLength
	return f.rolledResult, nil
}

func TestRunOnce(t *testing.T) {
	accounts := &fakeAccounts{rolledResult: 3}
	mgr := NewManager(accounts, time.Minute, 30*24*time.Hour)

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	mgr.RunOnce(now)

	assert.Equal(t, 1, accounts.calls)
	assert.Equal(t, now, accounts.lastNow)
	assert.Equal(t, 30*24*time.Hour, accounts.lastPeriod)
}

func TestStartStopIdempotent(t *testing.T) {
	accounts := &fakeAccounts{}
	mgr := NewManager(accounts, time.Hour, 0)

	mgr.Start()
	mgr.Start() // second start is a no-op
	mgr.Stop()
	mgr.Stop() // second stop is a no-op

	// restart after stop must work
	mgr.Start()
	mgr.Stop()
}

func TestWorkerTicks(t *testing.T) {
	accounts := &fakeAccounts{}
	mgr := NewManager(accounts, 10*time.Millisecond, time.Hour)

	mgr.Start()
	time.Sleep(60 * time.Millisecond)
	mgr.Stop()

	accounts.mu.Lock()
	defer accounts.mu.Unlock()
	assert.GreaterOrEqual(t, accounts.calls, 2)
}
