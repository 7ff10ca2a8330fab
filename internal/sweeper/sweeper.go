package sweeper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/npezzotti/go-docroom/internal/stats"
	"github.com/robfig/cron/v3"
)

const roomsSweptMetric = "RoomsSwept"

// RoomDeleter is the part of the room repository the sweeper needs.
type RoomDeleter interface {
	DeleteRoomsOlderThan(cutoff time.Time) (int64, error)
}

// Sweeper periodically deletes rooms whose content has not been saved
// within the staleness window. It never touches live room membership.
type Sweeper struct {
	repo     RoomDeleter
	window   time.Duration
	schedule string
	cron     *cron.Cron
	log      *log.Logger
	stats    stats.StatsProvider
	now      func() time.Time

	mu      sync.Mutex
	started bool
}

func NewSweeper(repo RoomDeleter, window time.Duration, schedule string, logger *log.Logger, su stats.StatsProvider) *Sweeper {
	su.RegisterCounter(roomsSweptMetric)

	return &Sweeper{
		repo:     repo,
		window:   window,
		schedule: schedule,
		cron:     cron.New(),
		log:      logger,
		stats:    su,
		now:      time.Now,
	}
}

// Start schedules the sweep. Calling it more than once is a no-op.
func (sw *Sweeper) Start() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.started {
		return nil
	}

	_, err := sw.cron.AddFunc(sw.schedule, func() {
		// errors are already logged, the next tick retries
		sw.Sweep()
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", sw.schedule, err)
	}

	sw.cron.Start()
	sw.started = true
	sw.log.Printf("room sweeper started, schedule %q, window %s", sw.schedule, sw.window)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or for
// ctx to be done.
func (sw *Sweeper) Stop(ctx context.Context) error {
	sw.mu.Lock()
	if !sw.started {
		sw.mu.Unlock()
		return nil
	}
	sw.started = false
	sw.mu.Unlock()

	done := sw.cron.Stop()
	select {
	case <-done.Done():
		sw.log.Println("room sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep deletes every room last updated strictly before now minus the
// staleness window and returns how many were removed.
func (sw *Sweeper) Sweep() (int64, error) {
	cutoff := sw.now().Add(-sw.window)

	n, err := sw.repo.DeleteRoomsOlderThan(cutoff)
	if err != nil {
		sw.log.Printf("sweep rooms older than %s: %v", cutoff.Format(time.RFC3339), err)
		return 0, fmt.Errorf("sweep rooms: %w", err)
	}

	if n > 0 {
		sw.stats.Add(roomsSweptMetric, int(n))
	}
	sw.log.Printf("swept %d rooms not updated since %s", n, cutoff.Format(time.RFC3339))

	return n, nil
}
