package maintenance

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/reviewloop/reviewloop/app/repository"
)

const (
	defaultCheckInterval = 15 * time.Minute
	defaultPeriodLength  = 30 * 24 * time.Hour
)

// Manager runs the explicit billing-period rollover: accounts whose period
// has ended get their usage counter reset and the window advanced. Rollover
// is never a side effect of reading an account.
type Manager struct {
	accounts      repository.AccountRepository
	checkInterval time.Duration
	periodLength  time.Duration

	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewManager creates a rollover manager.
func NewManager(accounts repository.AccountRepository, checkInterval, periodLength time.Duration) *Manager {
	if checkInterval <= 0 {
		checkInterval = defaultCheckInterval
	}
	if periodLength <= 0 {
		periodLength = defaultPeriodLength
	}
	return &Manager{
		accounts:      accounts,
		checkInterval: checkInterval,
		periodLength:  periodLength,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the background rollover worker.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Maintenance] starting billing-period rollover worker")

	m.ticker = time.NewTicker(m.checkInterval)
	m.wg.Add(1)
	go m.rolloverWorker()
}

// Stop halts the worker and waits for it to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.ticker.Stop()
	close(m.stopCh)
	m.wg.Wait()
	log.Info("[Maintenance] rollover worker stopped")
}

func (m *Manager) rolloverWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ticker.C:
			m.RunOnce(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

// RunOnce performs a single rollover pass. Exposed for tests and for manual
// invocation.
func (m *Manager) RunOnce(now time.Time) {
	rolled, err := m.accounts.RolloverExpiredPeriods(now, m.periodLength)
	if err != nil {
		log.Errorf("[Maintenance] period rollover failed: %v", err)
		return
	}
	if rolled > 0 {
		log.Infof("[Maintenance] rolled over billing period for %d accounts", rolled)
	}
}
