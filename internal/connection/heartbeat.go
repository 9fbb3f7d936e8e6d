package connection

import (
	"log/slog"
	"sync"
	"time"
)

// monitor owns the single repeating liveness timer for one Manager. At most
// one timer runs at a time: Start always cancels a prior one first, so ticks
// never overlap or double-fire against a dead channel.
type monitor struct {
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{} // nil when not running
}

func newMonitor(interval time.Duration, logger *slog.Logger) *monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &monitor{interval: interval, logger: logger}
}

// Start begins the repeating probe. Idempotent: any running timer is
// cancelled before the new one is armed.
func (m *monitor) Start(tick func()) {
	m.mu.Lock()
	if m.stop != nil {
		close(m.stop)
	}
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	m.logger.Debug("heartbeat started", "interval", m.interval)

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

// Stop cancels the probe timer. Safe to call when not running, and safe to
// call repeatedly.
func (m *monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
		m.logger.Debug("heartbeat stopped")
	}
}

// Running reports whether a probe timer is armed.
func (m *monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop != nil
}
