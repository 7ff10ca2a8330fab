package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npezzotti/go-docroom/internal/database"
	"github.com/npezzotti/go-docroom/internal/stats"
	"github.com/npezzotti/go-docroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestSweeper(t *testing.T, repo RoomDeleter, su *stats.MockStatsUpdater, schedule string) *Sweeper {
	su.On("RegisterCounter", roomsSweptMetric).Return().Once()
	return NewSweeper(repo, 48*time.Hour, schedule, testutil.TestLogger(t), su)
}

func TestSweep(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-48 * time.Hour)

	tcases := []struct {
		name      string
		deleted   int64
		repoErr   error
		expectErr bool
	}{
		{
			name:    "deletes stale rooms",
			deleted: 3,
		},
		{
			name:    "nothing to delete",
			deleted: 0,
		},
		{
			name:      "storage failure",
			repoErr:   errors.New("connection refused"),
			expectErr: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &database.MockRoomRepository{}
			su := &stats.MockStatsUpdater{}
			defer repo.AssertExpectations(t)
			defer su.AssertExpectations(t)

			repo.On("DeleteRoomsOlderThan", mock.MatchedBy(func(c time.Time) bool {
				return c.Equal(cutoff)
			})).Return(tc.deleted, tc.repoErr).Once()
			if tc.deleted > 0 {
				su.On("Add", roomsSweptMetric, int(tc.deleted)).Return().Once()
			}

			sw := newTestSweeper(t, repo, su, "@every 1h")
			sw.now = func() time.Time { return now }

			n, err := sw.Sweep()
			if tc.expectErr {
				assert.ErrorIs(t, err, tc.repoErr)
				assert.Equal(t, int64(0), n)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.deleted, n)
		})
	}
}

func TestSweep_boundary(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rooms := map[string]time.Time{
		"stale":    now.Add(-49 * time.Hour),
		"boundary": now.Add(-48 * time.Hour),
		"fresh":    now.Add(-47 * time.Hour),
	}

	repo := &database.MockRoomRepository{}
	su := &stats.MockStatsUpdater{}
	su.On("Add", roomsSweptMetric, 1).Return().Once()

	var remaining []string
	repo.On("DeleteRoomsOlderThan", mock.Anything).Return(int64(1), nil).Run(func(args mock.Arguments) {
		cutoff := args.Get(0).(time.Time)
		for id, updated := range rooms {
			if !updated.Before(cutoff) {
				remaining = append(remaining, id)
			}
		}
	}).Once()

	sw := newTestSweeper(t, repo, su, "@every 1h")
	sw.now = func() time.Time { return now }

	_, err := sw.Sweep()
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"boundary", "fresh"}, remaining, "expected only rooms strictly older than the window to go")
}

func TestStartStop(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		sw := newTestSweeper(t, &database.MockRoomRepository{}, &stats.MockStatsUpdater{}, "not a schedule")
		assert.Error(t, sw.Start())
	})

	t.Run("runs on schedule", func(t *testing.T) {
		repo := &database.MockRoomRepository{}
		su := &stats.MockStatsUpdater{}

		ran := make(chan struct{}, 10)
		repo.On("DeleteRoomsOlderThan", mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
			ran <- struct{}{}
		})

		sw := newTestSweeper(t, repo, su, "@every 1s")
		assert.NoError(t, sw.Start())
		assert.NoError(t, sw.Start(), "expected second start to be a no-op")

		select {
		case <-ran:
		case <-time.After(3 * time.Second):
			t.Fatal("expected a scheduled sweep")
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, sw.Stop(ctx))
		assert.NoError(t, sw.Stop(ctx), "expected second stop to be a no-op")
	})

	t.Run("stop without start", func(t *testing.T) {
		sw := newTestSweeper(t, &database.MockRoomRepository{}, &stats.MockStatsUpdater{}, "@every 1h")
		assert.NoError(t, sw.Stop(context.Background()))
	})
}
