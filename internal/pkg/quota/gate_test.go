package quota

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	used  int
	limit *int
	err   error
}

func (s *fakeStore) UsageForAccount(accountID uint) (int, *int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, nil, s.err
	}
	return s.used, s.limit, nil
}

func (s *fakeStore) IncrementUsageWithinLimit(accountID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.limit != nil && s.used >= *s.limit {
		return false, nil
	}
	s.used++
	return true, nil
}

func intPtr(v int) *int { return &v }

func TestCheckAndReserve(t *testing.T) {
	tests := []struct {
		name    string
		used    int
		limit   *int
		allowed bool
	}{
		{"below limit", 3, intPtr(5), true},
		{"one slot left", 4, intPtr(5), true},
		{"at limit", 5, intPtr(5), false},
		{"over limit", 7, intPtr(5), false},
		{"zero limit", 0, intPtr(0), false},
		{"unlimited plan", 100000, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(&fakeStore{used: tt.used, limit: tt.limit})

			decision, err := gate.CheckAndReserve(1)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.used, decision.Used)
			assert.Equal(t, tt.limit, decision.Limit)
		})
	}
}

func TestCheckAndReserveStoreError(t *testing.T) {
	boom := errors.New("db down")
	gate := NewGate(&fakeStore{err: boom})

	_, err := gate.CheckAndReserve(1)
	assert.ErrorIs(t, err, boom)
}

func TestCommit(t *testing.T) {
	store := &fakeStore{used: 4, limit: intPtr(5)}
	gate := NewGate(store)

	require.NoError(t, gate.Commit(1))
	assert.Equal(t, 5, store.used)

	// last slot is gone now
	err := gate.Commit(1)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 5, store.used)
}

func TestCommitNeverExceedsLimitUnderConcurrency(t *testing.T) {
	store := &fakeStore{limit: intPtr(5)}
	gate := NewGate(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gate.Commit(1); err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, committed)
	assert.Equal(t, 5, store.used)
}
