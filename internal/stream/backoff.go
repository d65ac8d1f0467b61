package stream

import "time"

// DelayPolicy computes the wait before a reconnect attempt. attempt is
// 1-based: the first automatic reconnect after a drop passes 1.
type DelayPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay waits the same duration before every reconnect attempt.
type FixedDelay time.Duration

// NextDelay implements DelayPolicy.
func (d FixedDelay) NextDelay(int) time.Duration {
	return time.Duration(d)
}

// ExponentialBackoff doubles the base delay per attempt, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// NextDelay implements DelayPolicy.
func (b ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}
