// Package notify alerts operators about stream health through Telegram and
// Discord. Alerts fire when the subscription stream enters the error state
// and again when it recovers, so a dashboard left unattended still surfaces a
// dead pricing feed.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/carmandale/trade-strategies-sub001/internal/stream"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// sendTimeout bounds one delivery round across all senders.
const sendTimeout = 15 * time.Second

// StreamAlerter turns connection state transitions into operator alerts. It
// remembers whether the last alert was an error so recovery is reported once,
// and repeated error transitions while already alerted stay silent.
type StreamAlerter struct {
	senders []Sender
	lastErr func() string
	logger  *slog.Logger

	mu      sync.Mutex
	alerted bool
}

// NewStreamAlerter creates a StreamAlerter. lastErr supplies the client's
// most recent error message when an alert fires; it may be nil.
func NewStreamAlerter(senders []Sender, lastErr func() string, logger *slog.Logger) *StreamAlerter {
	return &StreamAlerter{
		senders: senders,
		lastErr: lastErr,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// OnStateChange is wired as the stream client's state observer. It must not
// block the caller, so delivery happens on a fresh goroutine.
func (a *StreamAlerter) OnStateChange(state stream.ConnState) {
	if len(a.senders) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch state {
	case stream.StateError:
		if a.alerted {
			return
		}
		a.alerted = true

		detail := ""
		if a.lastErr != nil {
			detail = a.lastErr()
		}
		if detail == "" {
			detail = "no further detail"
		}
		go a.dispatch("Strategy stream down", detail)

	case stream.StateConnected:
		if !a.alerted {
			return
		}
		a.alerted = false
		go a.dispatch("Strategy stream recovered", "live pricing restored")
	}
}

// dispatch sends one alert to every sender. A single sender failure does not
// prevent delivery to the remaining senders.
func (a *StreamAlerter) dispatch(title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	var failed []string
	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			a.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		a.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(failed) > 0 {
		a.logger.WarnContext(ctx, "alert delivery incomplete",
			slog.String("failures", strings.Join(failed, "; ")),
		)
	}
}
