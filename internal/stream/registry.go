package stream

import (
	"log/slog"
	"sort"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

// SubStatus is the confirmation state of one tracked subscription.
type SubStatus int

const (
	// SubPending means the subscribe action was issued and no server
	// confirmation has arrived yet (or the previous confirmation was lost to
	// a disconnect).
	SubPending SubStatus = iota

	// SubConfirmed means the server acknowledged the subscription on the
	// current connection.
	SubConfirmed
)

// String returns the API name of the status.
func (s SubStatus) String() string {
	if s == SubConfirmed {
		return "confirmed"
	}
	return "pending"
}

// MarshalText implements encoding.TextMarshaler.
func (s SubStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type subscription struct {
	params domain.StrategyParams
	status SubStatus
}

// Registry tracks the caller's desired subscriptions and reconciles them with
// server confirmations. It owns the latest-snapshot map, keyed by
// subscription id so concurrent subscriptions never overwrite each other's
// cached update.
//
// Registry is not safe for concurrent use on its own; the Client serializes
// all access under its event mutex.
type Registry struct {
	dispatcher *Dispatcher
	log        *slog.Logger
	subs       map[string]*subscription
	snapshots  map[string]domain.StrategyUpdate
}

// NewRegistry creates an empty Registry issuing actions through the given
// Dispatcher.
func NewRegistry(dispatcher *Dispatcher, log *slog.Logger) *Registry {
	return &Registry{
		dispatcher: dispatcher,
		log:        log.With(slog.String("component", "registry")),
		subs:       make(map[string]*subscription),
		snapshots:  make(map[string]domain.StrategyUpdate),
	}
}

// Subscribe registers the caller's intent to stream the given strategy and
// issues the subscribe action. It returns the derived subscription id. A
// repeat subscribe for identical parameters is a no-op returning the same id.
func (r *Registry) Subscribe(params domain.StrategyParams) string {
	id := params.ID()
	if _, ok := r.subs[id]; ok {
		return id
	}

	r.subs[id] = &subscription{params: params, status: SubPending}
	r.dispatcher.Dispatch(SubscribeAction(params))

	r.log.Debug("subscription requested",
		slog.String("strategy_id", id),
		slog.String("symbol", params.Symbol),
		slog.String("type", string(params.StrategyType)),
	)
	return id
}

// Unsubscribe issues the unsubscribe action for a tracked subscription. The
// entry stays in the registry until the server confirms, so an in-flight
// unsubscribe is never lost track of. Unknown ids are ignored.
func (r *Registry) Unsubscribe(id string) {
	if _, ok := r.subs[id]; !ok {
		return
	}
	r.dispatcher.Dispatch(UnsubscribeAction(id))
	r.log.Debug("unsubscription requested", slog.String("strategy_id", id))
}

// Confirm marks a subscription confirmed on server acknowledgement.
func (r *Registry) Confirm(id string) {
	sub, ok := r.subs[id]
	if !ok {
		r.log.Debug("confirmation for unknown subscription", slog.String("strategy_id", id))
		return
	}
	sub.status = SubConfirmed
}

// Remove drops a subscription and its cached snapshot once the server
// confirms the unsubscribe.
func (r *Registry) Remove(id string) {
	delete(r.subs, id)
	delete(r.snapshots, id)
}

// SetSnapshot caches the latest update for a tracked subscription. Updates
// for unknown ids are dropped.
func (r *Registry) SetSnapshot(id string, update domain.StrategyUpdate) {
	if _, ok := r.subs[id]; !ok {
		r.log.Debug("update for unknown subscription", slog.String("strategy_id", id))
		return
	}
	r.snapshots[id] = update
}

// Snapshot returns the cached latest update for a subscription.
func (r *Registry) Snapshot(id string) (domain.StrategyUpdate, bool) {
	u, ok := r.snapshots[id]
	return u, ok
}

// Status returns the confirmation state of a subscription.
func (r *Registry) Status(id string) (SubStatus, bool) {
	sub, ok := r.subs[id]
	if !ok {
		return 0, false
	}
	return sub.status, true
}

// Params returns the parameters of a tracked subscription.
func (r *Registry) Params(id string) (domain.StrategyParams, bool) {
	sub, ok := r.subs[id]
	if !ok {
		return domain.StrategyParams{}, false
	}
	return sub.params, true
}

// IDs returns all tracked subscription ids in stable (sorted) order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DowngradeConfirmed reverts every confirmed subscription to pending. Called
// on connection loss: server-side subscription state does not survive a
// disconnect, but the caller's intent to be subscribed does.
func (r *Registry) DowngradeConfirmed() {
	for _, sub := range r.subs {
		if sub.status == SubConfirmed {
			sub.status = SubPending
		}
	}
}

// Reannounce re-issues subscribe actions for every tracked subscription,
// skipping ids in the skip set (those already covered by a queued action).
// Called after each successful open, since the server has no memory of
// subscriptions made on earlier connections.
func (r *Registry) Reannounce(skip map[string]struct{}) {
	for _, id := range r.IDs() {
		if _, queued := skip[id]; queued {
			continue
		}
		sub := r.subs[id]
		sub.status = SubPending
		r.dispatcher.Dispatch(SubscribeAction(sub.params))
	}
}
