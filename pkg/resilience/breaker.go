package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Breaker.Do while the breaker refuses calls.
var ErrOpen = errors.New("circuit open")

// BreakerState is the current phase of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// BreakerConfig controls when a Breaker trips and when it probes again.
// Zero values fall back to defaults.
type BreakerConfig struct {
	FailureThreshold int
	CooldownPeriod   time.Duration
}

func (cfg BreakerConfig) withDefaults() BreakerConfig {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 30 * time.Second
	}
	return cfg
}

// Breaker trips after a run of consecutive failures and rejects calls until
// the cooldown passes, then lets a single probe through.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed Breaker named for its upstream.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		name:   name,
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "breaker", "upstream", name),
	}
}

// Do runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cfg.CooldownPeriod {
			return fmt.Errorf("%w: %s", ErrOpen, b.name)
		}
		b.state = BreakerHalfOpen
		b.probing = true
		b.logger.Info("probing upstream after cooldown")
		return nil
	default: // half-open
		if b.probing {
			return fmt.Errorf("%w: %s (probe in flight)", ErrOpen, b.name)
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen {
		b.probing = false
	}
	if err == nil {
		if b.state != BreakerClosed {
			b.logger.Info("upstream recovered")
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		b.logger.Warn("circuit opened", "consecutive_failures", b.failures)
	}
}

// State reports the breaker's current phase.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time view of the breaker for health reporting.
type Snapshot struct {
	Upstream string       `json:"upstream"`
	State    BreakerState `json:"-"`
	StateStr string       `json:"state"`
	Failures int          `json:"consecutive_failures"`
}

// Snapshot returns the breaker's state for health and status endpoints.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Upstream: b.name,
		State:    b.state,
		StateStr: b.state.String(),
		Failures: b.failures,
	}
}
