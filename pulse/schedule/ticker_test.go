package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sharanvkt/insane-dashboard-v2/internal/util"
)

func TestNewTicker_RejectsBadCadence(t *testing.T) {
	e := newEnv(t)
	_, err := NewTicker(e.dispatcher, e.store, TickerConfig{Cadence: "whenever"}, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scheduler cadence")
}

func TestTicker_FireRunsTick(t *testing.T) {
	e := newEnv(t)
	e.addDomain("d1", util.Ptr("X"))
	u := e.schedule("d1", KindOnce, baseTime.Add(-time.Minute), nil, map[string]string{"content1": "Y"})

	ticker, err := NewTicker(e.dispatcher, e.store, DefaultTickerConfig(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	ticker.clock = func() time.Time { return baseTime }

	assert.True(t, ticker.Fire())
	assert.Equal(t, StatusCompleted, e.get(u.ID).Status)

	stats := ticker.Stats()
	assert.Equal(t, int64(1), stats.TicksSinceStart)
	assert.Equal(t, 1, stats.LastReport.Completed)
	assert.True(t, stats.LastTickAt.Equal(baseTime))
	assert.Equal(t, "@every 5m", stats.Cadence)
}

func TestTicker_SkipsOverlappingFire(t *testing.T) {
	e := newEnv(t)
	ticker, err := NewTicker(e.dispatcher, e.store, TickerConfig{Cadence: "@every 1h"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	ticker.running.Store(true)
	assert.False(t, ticker.Fire())
	assert.Equal(t, int64(1), ticker.Stats().SkippedOverlaps)
	assert.Equal(t, int64(0), ticker.Stats().TicksSinceStart)
}

func TestTicker_StartStop(t *testing.T) {
	e := newEnv(t)
	ticker, err := NewTickerWithContext(context.Background(), e.dispatcher, e.store, TickerConfig{Cadence: "@every 1h"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	ticker.Start()
	done := make(chan struct{})
	go func() {
		ticker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ticker did not stop")
	}
}
