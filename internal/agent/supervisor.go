// internal/agent/supervisor.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/digitaltitann/soltrader/internal/activity"
	"github.com/digitaltitann/soltrader/internal/tools"
)

const (
	DefaultBackoffBase      = 10 * time.Second
	DefaultBackoffMax       = 120 * time.Second
	DefaultFailureThreshold = 5
	DefaultCooldown         = 5 * time.Minute

	manualQueueSize = 8
)

// ErrQueueFull is returned by Submit when manual requests are backed up.
var ErrQueueFull = errors.New("manual request queue is full")

// Cycler runs one decision cycle.
type Cycler interface {
	RunCycle(ctx context.Context, seed string) (Outcome, error)
}

// SupervisorConfig wires a Supervisor.
type SupervisorConfig struct {
	Loop     Cycler
	Activity tools.Recorder
	Logger   *zap.Logger

	// Interval is the pause after a cycle that did not end with wait.
	Interval         time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	FailureThreshold int
	Cooldown         time.Duration

	// Sleep overrides the context-aware timer used for backoff waits.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Supervisor runs cycles forever. Failed cycles back off exponentially;
// a run of consecutive failures triggers a long cool-down.
type Supervisor struct {
	loop      Cycler
	activity  tools.Recorder
	logger    *zap.Logger
	interval  time.Duration
	threshold int
	cooldown  time.Duration
	backoff   *backoff.ExponentialBackOff
	sleep     func(ctx context.Context, d time.Duration) error
	manual    chan string

	failures int
}

func NewSupervisor(cfg *SupervisorConfig) *Supervisor {
	base := cfg.BackoffBase
	if base <= 0 {
		base = DefaultBackoffBase
	}
	maxInterval := cfg.BackoffMax
	if maxInterval <= 0 {
		maxInterval = DefaultBackoffMax
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxInterval,
	}
	b.Reset()

	return &Supervisor{
		loop:      cfg.Loop,
		activity:  cfg.Activity,
		logger:    logger.Named("supervisor"),
		interval:  cfg.Interval,
		threshold: threshold,
		cooldown:  cooldown,
		backoff:   b,
		sleep:     sleep,
		manual:    make(chan string, manualQueueSize),
	}
}

// Submit queues an operator buy request for mint. It is picked up before
// the next cycle or during the idle pause between cycles.
func (s *Supervisor) Submit(mint string) error {
	select {
	case s.manual <- mint:
		s.logger.Info("📥 Manual buy queued", zap.String("mint", mint))
		return nil
	default:
		return ErrQueueFull
	}
}

// Run blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("🚀 Trading agent starting")
	seed := ""

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("Trading agent stopping")
			return err
		}
		if seed == "" {
			seed = s.nextSeed()
		}

		out, err := s.runCycle(ctx, seed)
		seed = ""
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if err := s.onFailure(ctx, err); err != nil {
				return err
			}
			continue
		}

		s.failures = 0
		s.backoff.Reset()

		if out.Reason != ReasonWait && s.interval > 0 {
			mint, err := s.idle(ctx, s.interval)
			if err != nil {
				return err
			}
			if mint != "" {
				seed = ManualBuySeed(mint)
			}
		}
	}
}

// Failures returns the current consecutive failure count.
func (s *Supervisor) Failures() int {
	return s.failures
}

func (s *Supervisor) nextSeed() string {
	select {
	case mint := <-s.manual:
		s.logger.Info("Running manual buy cycle", zap.String("mint", mint))
		return ManualBuySeed(mint)
	default:
		return DefaultSeed
	}
}

func (s *Supervisor) runCycle(ctx context.Context, seed string) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return s.loop.RunCycle(ctx, seed)
}

func (s *Supervisor) onFailure(ctx context.Context, cause error) error {
	s.failures++
	wait := s.backoff.NextBackOff()
	s.logger.Error("Cycle failed",
		zap.Error(cause),
		zap.Int("consecutive_failures", s.failures),
		zap.Duration("retry_in", wait))
	if s.activity != nil {
		s.activity.Add(activity.KindError, fmt.Sprintf("Agent cycle error (%d): %v", s.failures, cause), nil)
	}

	if err := s.sleep(ctx, wait); err != nil {
		return err
	}

	if s.failures >= s.threshold {
		s.logger.Error("Too many consecutive failures, cooling down",
			zap.Int("failures", s.failures),
			zap.Duration("cooldown", s.cooldown))
		if err := s.sleep(ctx, s.cooldown); err != nil {
			return err
		}
		s.failures = 0
		s.backoff.Reset()
	}
	return nil
}

// idle waits d between cycles and returns early with a manual request.
func (s *Supervisor) idle(ctx context.Context, d time.Duration) (string, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case mint := <-s.manual:
		return mint, nil
	case <-timer.C:
		return "", nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
