// Package workers provides background job processors for the storefront
// sync service.
package workers

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront-sync-service/internal/session"
)

// DefaultReapInterval is the default interval between idle-session sweeps.
const DefaultReapInterval = 5 * time.Minute

// SessionReaperWorker periodically evicts idle session controllers. Guest
// snapshots stay in Redis with their own TTL, so eviction only reclaims
// memory and event subscriptions.
type SessionReaperWorker struct {
	manager  *session.Manager
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.Mutex
	running  bool
	lastRun  time.Time
	stats    ReaperStats
	logger   *logrus.Entry
}

// ReaperStats tracks eviction statistics.
type ReaperStats struct {
	SessionsEvicted  int64     `json:"sessionsEvicted"`
	SessionsResident int       `json:"sessionsResident"`
	LastRunAt        time.Time `json:"lastRunAt,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
}

// NewSessionReaperWorker creates a new session reaper.
func NewSessionReaperWorker(manager *session.Manager, interval time.Duration, logger *logrus.Logger) *SessionReaperWorker {
	if interval == 0 {
		interval = DefaultReapInterval
	}

	return &SessionReaperWorker{
		manager:  manager,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		logger:   logger.WithField("component", "workers.reaper"),
	}
}

// Start begins the eviction loop.
func (w *SessionReaperWorker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run()
	w.logger.WithField("interval", w.interval.String()).Info("session reaper started")
}

// Stop stops the eviction loop and waits for it to exit.
func (w *SessionReaperWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	<-w.doneChan
	w.logger.Info("session reaper stopped")
}

// ForceRun triggers an immediate sweep.
func (w *SessionReaperWorker) ForceRun() int {
	return w.sweep()
}

// IsRunning returns whether the worker is running.
func (w *SessionReaperWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns the current eviction statistics.
func (w *SessionReaperWorker) Stats() ReaperStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// run is the main eviction loop.
func (w *SessionReaperWorker) run() {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep runs one eviction pass and updates the stats.
func (w *SessionReaperWorker) sweep() int {
	start := time.Now()
	evicted := w.manager.EvictIdle()
	duration := time.Since(start)

	w.mu.Lock()
	w.lastRun = start
	w.stats.SessionsEvicted += int64(evicted)
	w.stats.SessionsResident = w.manager.Len()
	w.stats.LastRunAt = start
	w.stats.LastRunDuration = duration.String()
	w.mu.Unlock()

	return evicted
}

// WorkerStatus contains the current status of the worker.
type WorkerStatus struct {
	Running  bool        `json:"running"`
	Interval string      `json:"interval"`
	LastRun  time.Time   `json:"lastRun,omitempty"`
	Stats    ReaperStats `json:"stats"`
}

// Status returns the current status of the worker.
func (w *SessionReaperWorker) Status() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := WorkerStatus{
		Running:  w.running,
		Interval: w.interval.String(),
		Stats:    w.stats,
	}
	if !w.lastRun.IsZero() {
		status.LastRun = w.lastRun
	}
	return status
}
