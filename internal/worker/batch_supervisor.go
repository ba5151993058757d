// Package worker runs background maintenance loops of the packing audit backend.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/packing-audit/internal/logging"
)

// StaleJobReaper finalizes batch jobs that have been running too long
type StaleJobReaper interface {
	FailStale(ctx context.Context, maxAge time.Duration) ([]string, error)
}

// BatchSupervisor periodically fails RUNNING batch jobs that never finished
// so a lost worker cannot block future triggers forever.
type BatchSupervisor struct {
	reaper         StaleJobReaper
	interval       time.Duration
	maxRunDuration time.Duration
	logger         *logging.Logger

	running   bool
	mu        sync.RWMutex
	stopCh    chan struct{}
	doneCh    chan struct{}
	lastSweep time.Time
	reaped    int
}

// BatchSupervisorConfig holds configuration for a batch supervisor
type BatchSupervisorConfig struct {
	Reaper         StaleJobReaper
	Interval       time.Duration
	MaxRunDuration time.Duration
	Logger         *logging.Logger
}

// NewBatchSupervisor creates a batch supervisor
func NewBatchSupervisor(cfg *BatchSupervisorConfig) (*BatchSupervisor, error) {
	if cfg.Reaper == nil {
		return nil, fmt.Errorf("reaper cannot be nil")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	if cfg.MaxRunDuration <= 0 {
		return nil, fmt.Errorf("max run duration must be positive, got %v", cfg.MaxRunDuration)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &BatchSupervisor{
		reaper:         cfg.Reaper,
		interval:       interval,
		maxRunDuration: cfg.MaxRunDuration,
		logger:         logger.WithField("component", "batch_supervisor"),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}, nil
}

// Start sweeps once and then keeps sweeping every interval until stopped
func (s *BatchSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("batch supervisor is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"interval":       s.interval.String(),
		"maxRunDuration": s.maxRunDuration.String(),
	}).Info("Starting batch supervisor")

	go s.loop(ctx)
	return nil
}

// Stop signals the loop and waits for it to exit
func (s *BatchSupervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("batch supervisor is not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.Info("Batch supervisor stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Batch supervisor stop timed out")
		return ctx.Err()
	}
}

func (s *BatchSupervisor) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *BatchSupervisor) sweepAndLog(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		// keep sweeping on the next tick
		s.logger.WithError(err).Error("Batch supervisor sweep failed")
		return
	}
	if n > 0 {
		s.logger.WithField("jobs", n).Warn("Failed stale batch jobs")
	}
}

// Sweep fails every job running longer than the max run duration and
// reports how many it finalized.
func (s *BatchSupervisor) Sweep(ctx context.Context) (int, error) {
	ids, err := s.reaper.FailStale(ctx, s.maxRunDuration)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale batch jobs: %w", err)
	}

	s.mu.Lock()
	s.lastSweep = time.Now()
	s.reaped += len(ids)
	s.mu.Unlock()

	for _, id := range ids {
		s.logger.WithField("batchJobId", id).Warn("Batch job timed out")
	}
	return len(ids), nil
}

// SupervisorStatus reports the supervisor's progress
type SupervisorStatus struct {
	Running   bool      `json:"running"`
	LastSweep time.Time `json:"last_sweep"`
	Reaped    int       `json:"reaped"`
}

// Status returns a snapshot of the supervisor state
func (s *BatchSupervisor) Status() SupervisorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SupervisorStatus{Running: s.running, LastSweep: s.lastSweep, Reaped: s.reaped}
}
