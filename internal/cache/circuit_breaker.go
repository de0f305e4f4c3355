package cache

import (
	"errors"
	"sync"
	"time"
)

type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int `json:"max_failures"`
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `json:"timeout"`
	// HalfOpenMaxCalls successful probes close it again. At most this many
	// probes are in flight at once.
	HalfOpenMaxCalls int `json:"half_open_max_calls"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker guards the redis level. While open, calls fail fast with
// ErrCircuitBreakerOpen instead of waiting on a dead connection.
type CircuitBreaker struct {
	mu     sync.Mutex
	config CircuitBreakerConfig
	now    func() time.Time

	state     CircuitBreakerState
	failures  int
	probes    int
	successes int
	openedAt  time.Time
	trips     int64
	rejected  int64

	onStateChange func(from, to CircuitBreakerState)
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	cfg := *config
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}
	if cfg.HalfOpenMaxCalls < 1 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &CircuitBreaker{config: cfg, now: time.Now}
}

// OnStateChange registers a callback run, under the breaker's lock, on
// every transition. It must not call back into the breaker.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to CircuitBreakerState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn unless the breaker is open. A cache miss is an answer
// from redis, so it counts as success.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, ok := cb.acquire()
	if !ok {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	cb.release(probe, err == nil || errors.Is(err, ErrCacheMiss))
	return err
}

func (cb *CircuitBreaker) acquire() (probe bool, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitBreakerOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.transition(CircuitBreakerHalfOpen)
	}

	switch cb.state {
	case CircuitBreakerClosed:
		return false, true
	case CircuitBreakerHalfOpen:
		if cb.probes+cb.successes >= cb.config.HalfOpenMaxCalls {
			cb.rejected++
			return false, false
		}
		cb.probes++
		return true, true
	default:
		cb.rejected++
		return false, false
	}
}

func (cb *CircuitBreaker) release(probe, succeeded bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probes--
	}

	if !succeeded {
		cb.failures++
		if cb.state == CircuitBreakerHalfOpen || cb.failures >= cb.config.MaxFailures {
			cb.transition(CircuitBreakerOpen)
		}
		return
	}

	switch cb.state {
	case CircuitBreakerClosed:
		cb.failures = 0
	case CircuitBreakerHalfOpen:
		if probe {
			cb.successes++
		}
		if cb.successes >= cb.config.HalfOpenMaxCalls {
			cb.transition(CircuitBreakerClosed)
		}
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	from := cb.state
	if from == to {
		if to == CircuitBreakerOpen {
			cb.openedAt = cb.now()
		}
		return
	}

	cb.state = to
	cb.successes = 0
	switch to {
	case CircuitBreakerOpen:
		cb.openedAt = cb.now()
		cb.trips++
	case CircuitBreakerClosed:
		cb.failures = 0
	}

	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := map[string]interface{}{
		"state":           cb.state.String(),
		"failure_count":   cb.failures,
		"trips":           cb.trips,
		"rejected":        cb.rejected,
		"max_failures":    cb.config.MaxFailures,
		"timeout_seconds": cb.config.Timeout.Seconds(),
	}
	if !cb.openedAt.IsZero() {
		stats["last_opened"] = cb.openedAt.Unix()
	}
	return stats
}
