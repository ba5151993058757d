// Package circuitbreaker guards calls to an unreliable downstream service.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/packing-audit/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are blocked
	StateOpen State = "open"
	// StateHalfOpen means a single probe request is allowed through
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a circuit breaker
type Config struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Cooldown is how long the circuit stays open before a probe is allowed
	Cooldown time.Duration
	// IsFailure decides whether an error counts against the circuit.
	// Nil means every non-nil error counts.
	IsFailure func(error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:        name,
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

// CircuitBreaker opens after consecutive failures and probes with one call
// once the cooldown elapses.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	isFailure   func(error) bool
	now         func() time.Time

	mu               sync.Mutex
	state            State
	consecutiveFails int
	probing          bool
	lastStateChange  time.Time
	lastFailureTime  time.Time
	totalCalls       int
	totalFailures    int
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	maxFailures := config.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 1
	}
	isFailure := config.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{
		name:            config.Name,
		maxFailures:     maxFailures,
		cooldown:        config.Cooldown,
		isFailure:       isFailure,
		now:             time.Now,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// Execute runs fn unless the circuit is open. A cancelled context is not
// counted as a downstream failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(ctx, err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.probing = true
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.name,
			"state":          StateHalfOpen,
		}).Info("Circuit breaker transitioning to half-open")
		return nil

	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil

	default:
		return nil
	}
}

func (cb *CircuitBreaker) afterRequest(ctx context.Context, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	cb.probing = false

	if err != nil && ctx.Err() != nil {
		// caller gave up; say nothing about downstream health
		if cb.state == StateHalfOpen {
			cb.setState(StateOpen)
		}
		return
	}

	if cb.isFailure(err) {
		cb.onFailure()
		return
	}
	cb.onSuccess()
}

func (cb *CircuitBreaker) onSuccess() {
	cb.consecutiveFails = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.name,
			"state":          StateClosed,
		}).Info("Circuit breaker closed after successful probe")
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.totalFailures++
	cb.consecutiveFails++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFails >= cb.maxFailures {
			cb.setState(StateOpen)
			logging.WithFields(map[string]interface{}{
				"circuitBreaker":   cb.name,
				"state":            StateOpen,
				"consecutiveFails": cb.consecutiveFails,
			}).Warn("Circuit breaker opened due to failures")
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.name,
			"state":          StateOpen,
		}).Warn("Circuit breaker reopened after failed probe")
	}
}

func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = cb.now()
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats represents circuit breaker statistics
type Stats struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	TotalCalls       int       `json:"total_calls"`
	TotalFailures    int       `json:"total_failures"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	LastFailureTime  time.Time `json:"last_failure_time"`
	LastStateChange  time.Time `json:"last_state_change"`
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() *Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return &Stats{
		Name:             cb.name,
		State:            cb.state,
		TotalCalls:       cb.totalCalls,
		TotalFailures:    cb.totalFailures,
		ConsecutiveFails: cb.consecutiveFails,
		LastFailureTime:  cb.lastFailureTime,
		LastStateChange:  cb.lastStateChange,
	}
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.consecutiveFails = 0
	cb.probing = false

	logging.WithField("circuitBreaker", cb.name).Info("Circuit breaker manually reset")
}
