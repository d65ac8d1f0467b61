package stream

import (
	"log/slog"
	"time"
)

// Monitor emits a ping action at a fixed interval while the connection is
// up. It performs no liveness detection of its own: a pong (or its absence)
// changes nothing, and dead connections are detected by the transport's own
// closed/error signaling.
//
// Start and Stop must be called with the Client's event mutex held.
type Monitor struct {
	interval time.Duration
	fire     func()
	log      *slog.Logger

	running bool
	stop    chan struct{}
}

// NewMonitor creates a stopped Monitor that invokes fire on every tick.
func NewMonitor(interval time.Duration, fire func(), log *slog.Logger) *Monitor {
	return &Monitor{
		interval: interval,
		fire:     fire,
		log:      log.With(slog.String("component", "heartbeat")),
	}
}

// Start begins the ping timer. If the monitor is already running it restarts
// cleanly from a full interval.
func (m *Monitor) Start() {
	m.Stop()

	stop := make(chan struct{})
	m.stop = stop
	m.running = true

	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.fire()
			}
		}
	}()

	m.log.Debug("heartbeat started", slog.Duration("interval", m.interval))
}

// Stop cancels the ping timer. It is a no-op when not running.
func (m *Monitor) Stop() {
	if !m.running {
		return
	}
	close(m.stop)
	m.running = false
	m.log.Debug("heartbeat stopped")
}

// Running reports whether the timer is live.
func (m *Monitor) Running() bool {
	return m.running
}
