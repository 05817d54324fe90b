package lifecycle

import (
	"context"
	"sync"
	"time"

	"collage-sync/internal/apperr"

	"github.com/rs/zerolog"
)

// SweepStatus is the state of the periodic sweep
type SweepStatus struct {
	Running          bool        `json:"running"`
	Enabled          bool        `json:"enabled"`
	LastRun          time.Time   `json:"last_run,omitempty"`
	LastRunDuration  string      `json:"last_run_duration,omitempty"`
	LastResult       SweepResult `json:"last_result"`
	LastError        string      `json:"last_error,omitempty"`
	NextScheduledRun time.Time   `json:"next_scheduled_run,omitempty"`
}

// Sweeper runs CleanupAllExpiredCollages on a fixed interval
type Sweeper struct {
	reconciler *Reconciler
	interval   time.Duration
	timeout    time.Duration
	log        zerolog.Logger

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
	status   SweepStatus
}

// NewSweeper creates a stopped sweeper
func NewSweeper(reconciler *Reconciler, interval, timeout time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		reconciler: reconciler,
		interval:   interval,
		timeout:    timeout,
		log:        logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start runs a sweep immediately and then every interval
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.stopChan != nil {
		s.mu.Unlock()
		return
	}
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.status.Enabled = true
	s.status.NextScheduledRun = time.Now().Add(s.interval)
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.interval).Msg("Sweeper started")

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				s.status.NextScheduledRun = time.Now().Add(s.interval)
				s.mu.Unlock()
				s.sweep()
			case <-stop:
				s.log.Info().Msg("Sweeper stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-progress sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.stopChan == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.stopChan = nil
	s.status.Enabled = false
	s.mu.Unlock()

	<-done
}

// Status returns a snapshot of the sweeper state
func (s *Sweeper) Status() SweepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunNow sweeps synchronously. It fails with Conflict while another sweep runs.
func (s *Sweeper) RunNow(ctx context.Context) (*SweepResult, error) {
	return s.run(ctx)
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.run(ctx); err != nil && !apperr.Is(err, apperr.Conflict) {
		s.log.Error().Err(err).Msg("Sweep failed")
	}
}

func (s *Sweeper) run(ctx context.Context) (*SweepResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, apperr.New(apperr.Conflict, "sweep", "sweep already running")
	}
	s.running = true
	s.status.Running = true
	s.mu.Unlock()

	start := time.Now()
	result, err := s.reconciler.CleanupAllExpiredCollages(ctx)
	duration := time.Since(start)

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.status.LastRun = start
	s.status.LastRunDuration = duration.Round(time.Millisecond).String()
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastResult = *result
	}
	s.mu.Unlock()

	if err == nil && (result.Succeeded > 0 || result.Failed > 0) {
		s.log.Info().
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Dur("duration", duration).
			Msg("Sweep completed")
	}
	return result, err
}
