package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

// TickerConfig contains configuration for the scheduler ticker
type TickerConfig struct {
	Cadence string // standard cron spec or descriptor, e.g. "@every 5m"
}

// DefaultTickerConfig returns the deployment default of one tick every five minutes
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{Cadence: "@every 5m"}
}

// TickerStats is a snapshot of ticker activity.
type TickerStats struct {
	Cadence         string     `json:"cadence"`
	LastTickAt      time.Time  `json:"lastTickAt"`
	TicksSinceStart int64      `json:"ticksSinceStart"`
	SkippedOverlaps int64      `json:"skippedOverlaps"`
	LastReport      TickReport `json:"lastReport"`
}

// Ticker invokes Dispatcher.Tick on a cron cadence.
// Each fire is an independent batch. A fire that arrives while the previous
// tick is still running is skipped, so one process never overlaps itself.
type Ticker struct {
	dispatcher *Dispatcher
	store      *Store
	cadence    string
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	running    atomic.Bool
	clock      func() time.Time
	logger     *zap.SugaredLogger
	pulseLog   *zap.SugaredLogger // Logger with Pulse symbol pre-attached

	mu              sync.Mutex
	lastTickAt      time.Time
	ticksSinceStart int64
	skipped         int64
	lastReport      TickReport
}

// NewTicker creates a ticker driving dispatcher. store is used to log when
// the next record falls due and may be nil.
func NewTicker(dispatcher *Dispatcher, store *Store, cfg TickerConfig, log *zap.SugaredLogger) (*Ticker, error) {
	return NewTickerWithContext(context.Background(), dispatcher, store, cfg, log)
}

// NewTickerWithContext creates a ticker with a parent context
func NewTickerWithContext(ctx context.Context, dispatcher *Dispatcher, store *Store, cfg TickerConfig, log *zap.SugaredLogger) (*Ticker, error) {
	if cfg.Cadence == "" {
		cfg = DefaultTickerConfig()
	}
	if log == nil {
		log = logger.ComponentLogger("pulse")
	}
	if _, err := cron.ParseStandard(cfg.Cadence); err != nil {
		return nil, errors.Wrapf(err, "invalid scheduler cadence %q", cfg.Cadence)
	}

	tickerCtx, cancel := context.WithCancel(ctx)
	t := &Ticker{
		dispatcher: dispatcher,
		store:      store,
		cadence:    cfg.Cadence,
		ctx:        tickerCtx,
		cancel:     cancel,
		clock:      time.Now,
		logger:     log,
		pulseLog:   logger.AddPulseSymbol(log),
	}

	t.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{log})))
	if _, err := t.cron.AddFunc(cfg.Cadence, func() { t.Fire() }); err != nil {
		cancel()
		return nil, errors.Wrapf(err, "failed to register cadence %q", cfg.Cadence)
	}
	return t, nil
}

// Start begins the cron loop
func (t *Ticker) Start() {
	t.cron.Start()
	t.pulseLog.Infow("Pulse ticker started", "cadence", t.cadence)
}

// Stop gracefully stops the ticker, waiting for a running tick to finish
// its current record.
func (t *Ticker) Stop() {
	t.cancel()
	<-t.cron.Stop().Done()
	t.pulseLog.Infow("Pulse ticker stopped")
}

// Fire runs one tick now unless one is already running. It reports whether
// a tick ran.
func (t *Ticker) Fire() bool {
	if !t.running.CompareAndSwap(false, true) {
		t.mu.Lock()
		t.skipped++
		t.mu.Unlock()
		t.pulseLog.Warnw("Previous tick still running, skipping this one")
		return false
	}
	defer t.running.Store(false)

	now := t.clock().UTC()
	report := t.dispatcher.Tick(t.ctx, now)

	t.mu.Lock()
	t.lastTickAt = now
	t.ticksSinceStart++
	t.lastReport = report
	t.mu.Unlock()

	t.logNext(now)
	return true
}

// Stats returns a snapshot of ticker activity.
func (t *Ticker) Stats() TickerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TickerStats{
		Cadence:         t.cadence,
		LastTickAt:      t.lastTickAt,
		TicksSinceStart: t.ticksSinceStart,
		SkippedOverlaps: t.skipped,
		LastReport:      t.lastReport,
	}
}

// logNext logs time until the next pending record
func (t *Ticker) logNext(now time.Time) {
	if t.store == nil {
		return
	}
	next, err := t.store.NextDue(t.ctx)
	if err != nil {
		t.pulseLog.Warnw("Failed to get next scheduled update", logger.FieldError, err)
		return
	}
	if next == nil {
		t.logger.Debugw("Pulse - no scheduled updates pending")
		return
	}

	until := next.Sub(now)
	if until < 0 {
		until = 0
	}
	t.logger.Debugw("Pulse - next scheduled update",
		logger.FieldNextRun, next.Format(time.RFC3339),
		"in", until.Round(time.Second).String())
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, logger.FieldError, err)...)
}
