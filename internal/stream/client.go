// Package stream implements the real-time strategy subscription client: a
// resilient WebSocket client that multiplexes logical strategy subscriptions
// over one connection, keeps it alive with heartbeats, reconnects with a
// bounded retry budget, and guarantees that actions issued while disconnected
// are delivered in order once the connection is up.
package stream

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

const (
	defaultReconnectDelay    = 5 * time.Second
	defaultMaxReconnects     = 5
	defaultHeartbeatInterval = 30 * time.Second
)

// UpdateHandler observes every accepted strategy update. It is invoked
// outside the client's internal lock and must not block for long; it may
// call back into the Client.
type UpdateHandler func(id string, update domain.StrategyUpdate)

// Options configure one Client instance. All fields are fixed for the
// client's lifetime.
type Options struct {
	// URL is the pricing server's WebSocket endpoint.
	URL string

	// AutoReconnect enables automatic reconnection after a connection drop.
	AutoReconnect bool

	// ReconnectDelay is the fixed wait before each reconnect attempt. Used
	// by the default delay policy; ignored when Delay is set.
	ReconnectDelay time.Duration

	// MaxReconnectAttempts bounds consecutive automatic reconnects. Once
	// exhausted the client enters StateError until Connect is called again.
	MaxReconnectAttempts int

	// HeartbeatInterval is the period between ping actions while connected.
	HeartbeatInterval time.Duration

	// Debug enables per-frame debug logging.
	Debug bool

	// Delay overrides the reconnect delay policy. Defaults to
	// FixedDelay(ReconnectDelay).
	Delay DelayPolicy

	// Transport overrides the transport implementation. Defaults to the
	// gorilla WebSocket transport. Tests substitute a scripted fake here.
	Transport TransportFactory

	// OnUpdate, when set, observes every accepted strategy update.
	OnUpdate UpdateHandler

	// OnStateChange, when set, observes every connection state transition.
	// Invoked outside the client lock, so it may call back in.
	OnStateChange func(state ConnState)

	// Logger receives structured client logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// SubscriptionInfo is the externally visible view of one tracked
// subscription.
type SubscriptionInfo struct {
	ID     string                `json:"strategy_id"`
	Params domain.StrategyParams `json:"params"`
	Status SubStatus             `json:"status"`
}

type pendingUpdate struct {
	id     string
	update domain.StrategyUpdate
}

// Client is the connection lifecycle manager and public facade. It owns the
// reconnect policy, the observable connection state, and the single mutex
// under which every transport event, timer callback, and public call runs,
// so no two of them ever interleave.
type Client struct {
	opts  Options
	log   *slog.Logger
	delay DelayPolicy

	mu             sync.Mutex
	state          ConnState
	lastErr        string
	attempts       int
	reconnectTimer *time.Timer
	transport      Transport
	dispatcher     *Dispatcher
	registry       *Registry
	heartbeat      *Monitor
	router         *Router
	pendingUpdates []pendingUpdate
}

// NewClient builds a Client from the given options. The client starts
// disconnected; call Connect to open the stream.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = defaultMaxReconnects
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}

	log := opts.Logger.With(slog.String("component", "stream"))

	c := &Client{
		opts:  opts,
		log:   log,
		delay: opts.Delay,
		state: StateDisconnected,
	}
	if c.delay == nil {
		c.delay = FixedDelay(opts.ReconnectDelay)
	}

	factory := opts.Transport
	if factory == nil {
		factory = NewWSTransport
	}
	c.transport = factory(TransportEvents{
		OnOpened:  c.handleOpened,
		OnMessage: c.handleMessage,
		OnError:   c.handleError,
		OnClosed:  c.handleClosed,
	})

	c.dispatcher = NewDispatcher(c.transport, log)
	c.registry = NewRegistry(c.dispatcher, log)
	c.heartbeat = NewMonitor(opts.HeartbeatInterval, c.sendPing, log)
	c.router = NewRouter(c.registry, c.setServerError, c.collectUpdate, log)

	return c
}

// Connect opens the stream. It is a no-op while connecting or connected.
// Calling Connect after the retry budget was exhausted resets the budget and
// starts over.
func (c *Client) Connect() {
	c.mu.Lock()

	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}

	prev := c.state
	c.cancelReconnectLocked()
	c.state = StateConnecting
	c.lastErr = ""
	c.attempts = 0
	c.transport.Open(c.opts.URL)
	c.mu.Unlock()

	c.notifyState(prev, StateConnecting)
}

// Disconnect tears the stream down: it cancels the reconnect timer, stops
// the heartbeat, closes the transport, reverts confirmed subscriptions to
// pending, and resets the retry budget. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()

	prev := c.state
	c.cancelReconnectLocked()
	c.heartbeat.Stop()
	c.state = StateDisconnected
	c.attempts = 0
	c.registry.DowngradeConfirmed()
	_ = c.transport.Close()
	c.mu.Unlock()

	c.notifyState(prev, StateDisconnected)
}

// Subscribe requests live pricing for the given strategy and returns its
// subscription id. While disconnected the subscribe action is queued and
// delivered on the next successful open.
func (c *Client) Subscribe(params domain.StrategyParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Subscribe(params), nil
}

// Unsubscribe requests teardown of a subscription. The subscription remains
// tracked until the server confirms.
func (c *Client) Unsubscribe(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.registry.Status(id); !ok {
		return fmt.Errorf("stream: unsubscribe %s: %w", id, domain.ErrNotFound)
	}
	c.registry.Unsubscribe(id)
	return nil
}

// Status returns the current connection state.
func (c *Client) Status() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last surfaced error message, empty when none.
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastUpdate returns the latest cached update for a subscription.
func (c *Client) LastUpdate(id string) (domain.StrategyUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Snapshot(id)
}

// Subscriptions returns all tracked subscriptions in stable order.
func (c *Client) Subscriptions() []SubscriptionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.registry.IDs()
	infos := make([]SubscriptionInfo, 0, len(ids))
	for _, id := range ids {
		params, _ := c.registry.Params(id)
		status, _ := c.registry.Status(id)
		infos = append(infos, SubscriptionInfo{ID: id, Params: params, Status: status})
	}
	return infos
}

// ActiveSubscriptions returns the tracked subscription ids in stable order.
func (c *Client) ActiveSubscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.IDs()
}

// --------------------------------------------------------------------------
// Transport event and timer handlers
// --------------------------------------------------------------------------

func (c *Client) handleOpened() {
	c.mu.Lock()

	if c.state != StateConnecting {
		// Disconnected (or never connecting) while the dial was in flight.
		c.mu.Unlock()
		return
	}

	c.state = StateConnected
	c.lastErr = ""
	c.attempts = 0

	// Actions queued while disconnected go out first, in FIFO order. Their
	// ids are excluded from the re-announce pass so a subscription is not
	// sent twice on the same open.
	skip := c.dispatcher.QueuedIDs()
	c.dispatcher.Flush()
	c.heartbeat.Start()
	c.registry.Reannounce(skip)

	c.mu.Unlock()

	c.log.Info("stream connected", slog.String("url", c.opts.URL))
	c.notifyState(StateConnecting, StateConnected)
}

func (c *Client) handleClosed(code int, reason string) {
	c.mu.Lock()

	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}

	prev := c.state
	c.heartbeat.Stop()
	c.registry.DowngradeConfirmed()

	switch {
	case !c.opts.AutoReconnect:
		c.state = StateDisconnected

	case c.attempts < c.opts.MaxReconnectAttempts:
		c.attempts++
		c.state = StateConnecting
		delay := c.delay.NextDelay(c.attempts)
		c.reconnectTimer = time.AfterFunc(delay, c.reconnectNow)
		c.log.Info("stream closed, reconnecting",
			slog.Int("code", code),
			slog.String("reason", reason),
			slog.Int("attempt", c.attempts),
			slog.Int("max_attempts", c.opts.MaxReconnectAttempts),
			slog.Duration("delay", delay),
		)

	default:
		c.state = StateError
		c.lastErr = fmt.Sprintf("connection lost; gave up after %d reconnect attempts", c.opts.MaxReconnectAttempts)
		c.log.Error("stream reconnect budget exhausted",
			slog.Int("code", code),
			slog.String("reason", reason),
			slog.Int("attempts", c.attempts),
		)
	}

	next := c.state
	c.mu.Unlock()

	c.notifyState(prev, next)
}

func (c *Client) handleError(err error) {
	c.mu.Lock()

	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}

	prev := c.state
	c.lastErr = err.Error()
	c.state = StateError
	c.log.Warn("stream transport error", slog.String("error", err.Error()))
	c.mu.Unlock()

	c.notifyState(prev, StateError)
}

func (c *Client) handleMessage(raw []byte) {
	c.mu.Lock()
	if c.opts.Debug {
		c.log.Debug("frame received", slog.Int("bytes", len(raw)))
	}
	c.router.Route(raw)
	updates := c.pendingUpdates
	c.pendingUpdates = nil
	c.mu.Unlock()

	// Observer callbacks run outside the lock so they may call back in.
	if c.opts.OnUpdate != nil {
		for _, u := range updates {
			c.opts.OnUpdate(u.id, u.update)
		}
	}
}

// reconnectNow fires when the reconnect delay elapses.
func (c *Client) reconnectNow() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconnectTimer = nil
	if c.state != StateConnecting {
		// Disconnected (or manually reconnected) before the timer fired.
		return
	}
	c.transport.Open(c.opts.URL)
}

// sendPing is the heartbeat tick. The state check keeps a late tick from
// queueing pings after the connection dropped.
func (c *Client) sendPing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		return
	}
	c.dispatcher.Dispatch(PingAction())
}

// setServerError records a server-reported error without touching the
// connection state. Called by the router under the client lock.
func (c *Client) setServerError(msg string) {
	c.lastErr = msg
	c.log.Warn("server reported error", slog.String("message", msg))
}

// collectUpdate buffers an accepted update for delivery to the OnUpdate
// observer after the lock is released. Called by the router under the lock.
func (c *Client) collectUpdate(id string, update domain.StrategyUpdate) {
	if c.opts.OnUpdate == nil {
		return
	}
	c.pendingUpdates = append(c.pendingUpdates, pendingUpdate{id: id, update: update})
}

// notifyState invokes the state observer for a real transition. Called with
// the lock released.
func (c *Client) notifyState(prev, next ConnState) {
	if prev != next && c.opts.OnStateChange != nil {
		c.opts.OnStateChange(next)
	}
}

// cancelReconnectLocked stops a pending reconnect timer. Caller holds c.mu.
func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}
