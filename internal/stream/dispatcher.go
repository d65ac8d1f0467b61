package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Dispatcher serializes outbound actions and either sends them immediately or
// queues them until the transport opens. The queue is strictly FIFO and
// unbounded; while anything is queued, new actions join the queue even if the
// socket is already up, so nothing overtakes the pending backlog.
//
// Dispatcher is not safe for concurrent use on its own; the Client serializes
// all access under its event mutex.
type Dispatcher struct {
	transport Transport
	log       *slog.Logger
	queue     []OutboundAction
}

// NewDispatcher creates a Dispatcher writing through the given transport.
func NewDispatcher(transport Transport, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		log:       log.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch sends the action now when the transport is open and the queue is
// empty, otherwise appends it to the queue. The queue check matters: the
// socket can come up before the open event is processed and the backlog
// flushed, and an action issued in that window must not jump ahead of it.
// A failed immediate send re-queues the action for the next flush rather
// than dropping it.
func (d *Dispatcher) Dispatch(a OutboundAction) {
	if !d.transport.IsOpen() || len(d.queue) > 0 {
		d.queue = append(d.queue, a)
		d.log.Debug("queued action",
			slog.String("action", a.Action),
			slog.Int("queue_len", len(d.queue)),
		)
		return
	}

	if err := d.send(a); err != nil {
		d.log.Warn("send failed, queueing for retry",
			slog.String("action", a.Action),
			slog.String("error", err.Error()),
		)
		d.queue = append(d.queue, a)
	}
}

// Flush drains the queue in FIFO order. If a send fails mid-drain the failed
// action and everything behind it stay queued for the next flush.
func (d *Dispatcher) Flush() {
	for len(d.queue) > 0 {
		a := d.queue[0]
		if err := d.send(a); err != nil {
			d.log.Warn("flush interrupted",
				slog.String("action", a.Action),
				slog.Int("remaining", len(d.queue)),
				slog.String("error", err.Error()),
			)
			return
		}
		d.queue = d.queue[1:]
	}
}

// QueuedIDs returns the set of strategy ids referenced by queued subscribe
// or unsubscribe actions. The Client uses it to avoid re-announcing a
// subscription whose action is already waiting in the queue.
func (d *Dispatcher) QueuedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.queue))
	for _, a := range d.queue {
		switch a.Action {
		case ActionSubscribe:
			if a.StrategyParams != nil {
				ids[a.StrategyParams.ID()] = struct{}{}
			}
		case ActionUnsubscribe:
			ids[a.StrategyID] = struct{}{}
		}
	}
	return ids
}

// QueueLen reports the number of pending actions.
func (d *Dispatcher) QueueLen() int {
	return len(d.queue)
}

func (d *Dispatcher) send(a OutboundAction) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("stream: marshal action: %w", err)
	}
	return d.transport.Send(data)
}
