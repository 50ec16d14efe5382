/*
scheduler.go - Automated lease release scheduler

PURPOSE:
  Periodically puts rented properties back on the market once every paid
  booking on them has ended. Recording a payment marks a property rented;
  nothing else would ever make it active again.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - "Today" comes from the billing calculator, so a pinned reference date
    applies here too
  - The release itself is one store transaction; re-running is harmless

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewLeaseScheduler(store, calc)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - store/sqlite/bookings.go: ReleaseEndedLeases
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/store/sqlite"
)

// LeaseScheduler releases properties whose paid stays are over.
type LeaseScheduler struct {
	Store         *sqlite.Store
	Calculator    *billing.Calculator
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLeaseScheduler creates a new scheduler.
func NewLeaseScheduler(store *sqlite.Store, calc *billing.Calculator) *LeaseScheduler {
	return &LeaseScheduler{
		Store:         store,
		Calculator:    calc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ls *LeaseScheduler) Start() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if ls.ticker != nil {
		return
	}

	ls.ticker = time.NewTicker(ls.CheckInterval)
	ls.stop = make(chan struct{})
	ls.wg.Add(1)

	go ls.run(ls.ticker, ls.stop)

	log.Printf("[Scheduler] Started with check interval: %v", ls.CheckInterval)
}

// Stop stops the scheduler and waits for a running check to finish.
func (ls *LeaseScheduler) Stop() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.ticker != nil {
		ls.ticker.Stop()
		close(ls.stop)
		ls.wg.Wait()
		ls.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (ls *LeaseScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ls.wg.Done()

	// Run immediately on start
	ls.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			ls.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow releases ended leases as of the calculator's today and returns
// the released property IDs.
func (ls *LeaseScheduler) RunNow(ctx context.Context) []string {
	today := ls.Calculator.Today()

	released, err := ls.Store.ReleaseEndedLeases(ctx, today)
	if err != nil {
		log.Printf("[Scheduler] Error releasing leases as of %s: %v", today, err)
		return nil
	}
	if len(released) > 0 {
		log.Printf("[Scheduler] Released %d properties as of %s", len(released), today)
	}
	return released
}
