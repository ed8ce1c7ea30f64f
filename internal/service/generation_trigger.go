package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TriggerState is the lifecycle of the lazy generation trigger.
type TriggerState int

const (
	TriggerIdle TriggerState = iota
	TriggerDebouncing
	TriggerRunning
)

func (s TriggerState) String() string {
	switch s {
	case TriggerDebouncing:
		return "debouncing"
	case TriggerRunning:
		return "running"
	default:
		return "idle"
	}
}

// GenerationFunc fills lessons for a window.
type GenerationFunc func(ctx context.Context, from, to time.Time) error

// GenerationTrigger collapses bursts of calendar navigation into one generator run and
// refuses to start a second run while one is in flight. Notifications that arrive during
// a run are dropped rather than queued; the next navigation catches up.
type GenerationTrigger struct {
	mu       sync.Mutex
	state    TriggerState
	seq      uint64
	timer    *time.Timer
	from     time.Time
	to       time.Time
	debounce time.Duration
	timeout  time.Duration

	run     GenerationFunc
	ctx     context.Context
	metrics *MetricsService
	logger  *zap.Logger
}

// GenerationTriggerConfig tunes debounce and per-run timeout.
type GenerationTriggerConfig struct {
	Debounce   time.Duration
	RunTimeout time.Duration
}

// NewGenerationTrigger builds an idle trigger. Runs use ctx as their parent context.
func NewGenerationTrigger(ctx context.Context, run GenerationFunc, metrics *MetricsService, logger *zap.Logger, cfg GenerationTriggerConfig) *GenerationTrigger {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = time.Minute
	}
	return &GenerationTrigger{
		debounce: cfg.Debounce,
		timeout:  cfg.RunTimeout,
		run:      run,
		ctx:      ctx,
		metrics:  metrics,
		logger:   logger,
	}
}

// Notify requests generation for [from, to). Windows notified during one debounce period are merged.
// It reports whether the notification was accepted.
func (t *GenerationTrigger) Notify(from, to time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TriggerRunning:
		t.metrics.RecordTriggerDropped()
		t.logger.Debug("generation in flight, dropping trigger", zap.Time("from", from), zap.Time("to", to))
		return false
	case TriggerIdle:
		t.from, t.to = from, to
		t.state = TriggerDebouncing
	case TriggerDebouncing:
		if from.Before(t.from) {
			t.from = from
		}
		if to.After(t.to) {
			t.to = to
		}
		if t.timer != nil {
			t.timer.Stop()
		}
	}
	t.seq++
	seq := t.seq
	t.timer = time.AfterFunc(t.debounce, func() { t.fire(seq) })
	return true
}

// State returns the current trigger state.
func (t *GenerationTrigger) State() TriggerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stop cancels a pending debounce. A run already in flight finishes normally.
func (t *GenerationTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.state == TriggerDebouncing {
		t.state = TriggerIdle
	}
	t.seq++
}

func (t *GenerationTrigger) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || t.state != TriggerDebouncing {
		t.mu.Unlock()
		return
	}
	t.state = TriggerRunning
	t.timer = nil
	from, to := t.from, t.to
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.state = TriggerIdle
		t.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()
	if err := t.run(ctx, from, to); err != nil {
		t.logger.Warn("lazy generation failed", zap.Time("from", from), zap.Time("to", to), zap.Error(err))
	}
}
