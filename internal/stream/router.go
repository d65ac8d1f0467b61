package stream

import (
	"encoding/json"
	"log/slog"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// Router parses raw inbound frames and dispatches them to the Registry or
// the error surface. Malformed frames are logged and dropped; nothing the
// server sends can unwind into the caller.
//
// Router is not safe for concurrent use on its own; the Client serializes
// all access under its event mutex.
type Router struct {
	registry *Registry
	log      *slog.Logger

	// onError receives server-reported error text (error / update_error).
	onError func(msg string)

	// onUpdate receives each accepted strategy update after it is cached.
	onUpdate func(id string, update domain.StrategyUpdate)
}

// NewRouter creates a Router feeding the given Registry and callbacks.
// Either callback may be nil.
func NewRouter(registry *Registry, onError func(string), onUpdate func(string, domain.StrategyUpdate), log *slog.Logger) *Router {
	return &Router{
		registry: registry,
		log:      log.With(slog.String("component", "router")),
		onError:  onError,
		onUpdate: onUpdate,
	}
}

// Route handles one raw frame.
func (r *Router) Route(raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.log.Warn("dropping unparseable frame", slog.String("error", err.Error()))
		return
	}

	switch msg.Type {
	case TypeStrategyUpdate:
		var update domain.StrategyUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			r.log.Warn("dropping malformed strategy update",
				slog.String("strategy_id", msg.StrategyID),
				slog.String("error", err.Error()),
			)
			return
		}
		update.StrategyID = msg.StrategyID
		r.registry.SetSnapshot(msg.StrategyID, update)
		if r.onUpdate != nil {
			r.onUpdate(msg.StrategyID, update)
		}

	case TypeSubscriptionConfirmed:
		r.registry.Confirm(msg.StrategyID)

	case TypeUnsubscriptionConfirmed:
		r.registry.Remove(msg.StrategyID)

	case TypeError, TypeUpdateError:
		if r.onError != nil {
			r.onError(msg.ErrorText())
		}

	case TypePong:
		// Informational only; the heartbeat monitor takes no action on pongs.

	default:
		r.log.Debug("dropping frame with unknown type", slog.String("type", msg.Type))
	}
}
