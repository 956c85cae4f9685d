package youtube

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chanfeed/internal/errs"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal state where calls are allowed.
	CircuitClosed CircuitState = iota
	// CircuitOpen is the state where calls fail fast.
	CircuitOpen
	// CircuitHalfOpen lets a single probe call through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Circuit breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// ErrCircuitOpen is returned without contacting the API while an endpoint's
// circuit is open. It is a transient network error.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open: %w", errs.ErrTransientNetwork)

// BreakerConfig configures circuit breaking per endpoint.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transient failures that
	// opens the circuit. Default: 5
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before a probe.
	// Default: 30 seconds
	RecoveryTimeout time.Duration
}

type circuit struct {
	state             CircuitState
	consecutiveErrors int
	lastStateChange   time.Time
	probing           bool
}

// CircuitBreaker tracks consecutive transient failures per endpoint and
// fails fast once an endpoint looks down. Quota and client errors never
// count as failures.
type CircuitBreaker struct {
	mu       sync.Mutex
	circuits map[string]*circuit
	cfg      BreakerConfig
	now      func() time.Time
}

// NewCircuitBreaker creates a breaker. Zero config fields select defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultRecoveryTimeout
	}
	return &CircuitBreaker{
		circuits: make(map[string]*circuit),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Allow reports whether a call to endpoint may proceed.
func (cb *CircuitBreaker) Allow(endpoint string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(endpoint)
	switch c.state {
	case CircuitOpen:
		if cb.now().Sub(c.lastStateChange) < cb.cfg.RecoveryTimeout {
			return ErrCircuitOpen
		}
		c.state = CircuitHalfOpen
		c.lastStateChange = cb.now()
		c.probing = true
		return nil
	case CircuitHalfOpen:
		if c.probing {
			return ErrCircuitOpen
		}
		c.probing = true
	}
	return nil
}

// Record feeds the outcome of a call into the endpoint's circuit. Only
// transient failures count against it; anything else proves the endpoint
// is reachable.
func (cb *CircuitBreaker) Record(endpoint string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(endpoint)
	if errors.Is(err, context.Canceled) {
		c.probing = false
		return
	}
	if !countsAsFailure(err) {
		c.consecutiveErrors = 0
		c.probing = false
		if c.state != CircuitClosed {
			c.state = CircuitClosed
			c.lastStateChange = cb.now()
		}
		return
	}

	c.consecutiveErrors++
	c.probing = false
	if c.state == CircuitHalfOpen || c.consecutiveErrors >= cb.cfg.FailureThreshold {
		c.state = CircuitOpen
		c.lastStateChange = cb.now()
	}
}

// State returns the current state of endpoint's circuit.
func (cb *CircuitBreaker) State(endpoint string) CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[endpoint]
	if !ok {
		return CircuitClosed
	}
	if c.state == CircuitOpen && cb.now().Sub(c.lastStateChange) >= cb.cfg.RecoveryTimeout {
		return CircuitHalfOpen
	}
	return c.state
}

// get must be called with mu held.
func (cb *CircuitBreaker) get(endpoint string) *circuit {
	c, ok := cb.circuits[endpoint]
	if !ok {
		c = &circuit{state: CircuitClosed, lastStateChange: cb.now()}
		cb.circuits[endpoint] = c
	}
	return c
}

func countsAsFailure(err error) bool {
	return err != nil && isRetryable(err)
}
