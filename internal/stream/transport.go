package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// handshakeTimeout bounds the WebSocket dial, including the TCP connect
	// and the upgrade handshake.
	handshakeTimeout = 15 * time.Second
)

// TransportEvents are the callbacks a Transport fires as the connection
// changes. All events are delivered asynchronously with respect to the
// Transport method that triggered them; a Transport never invokes a callback
// from inside Open, Send, or Close.
type TransportEvents struct {
	OnOpened  func()
	OnMessage func(data []byte)
	OnError   func(err error)
	OnClosed  func(code int, reason string)
}

// Transport owns the single underlying duplex connection and is the only
// component that performs network I/O. Open is a no-op while a connection is
// open or being opened; Close is idempotent and suppresses all further
// events until the next Open.
type Transport interface {
	Open(url string)
	Send(data []byte) error
	Close() error
	IsOpen() bool
}

// TransportFactory builds a Transport wired to the given event callbacks.
// The Client uses it so tests can substitute a scripted transport.
type TransportFactory func(events TransportEvents) Transport

// wsTransport implements Transport over a gorilla WebSocket connection.
type wsTransport struct {
	events TransportEvents

	mu      sync.Mutex
	conn    *websocket.Conn
	opening bool
	muted   bool // set by Close; cleared by Open
}

// NewWSTransport returns the production Transport backed by
// github.com/gorilla/websocket.
func NewWSTransport(events TransportEvents) Transport {
	return &wsTransport{events: events}
}

// Open starts dialing the endpoint. It returns immediately; the outcome is
// reported through OnOpened or OnError followed by OnClosed.
func (t *wsTransport) Open(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil || t.opening {
		return
	}
	t.opening = true
	t.muted = false

	go t.dial(url)
}

// Send writes one text frame. It fails when the connection is not open.
func (t *wsTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("stream: transport not open")
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("stream: write: %w", err)
	}
	return nil
}

// Close tears the connection down. After Close returns, no further events
// fire until the next Open.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.muted = true
	t.opening = false

	if t.conn == nil {
		return nil
	}

	conn := t.conn
	t.conn = nil

	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	return conn.Close()
}

// IsOpen reports whether a connection is currently established.
func (t *wsTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *wsTransport) dial(url string) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.Dial(url, nil)

	t.mu.Lock()
	if t.muted {
		// Closed while dialing: discard the connection silently.
		t.opening = false
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	t.opening = false

	if err != nil {
		t.mu.Unlock()
		t.emitError(fmt.Errorf("stream: dial %s: %w", url, err))
		t.emitClosed(websocket.CloseAbnormalClosure, "dial failed")
		return
	}

	t.conn = conn
	t.mu.Unlock()

	go t.readPump(conn)

	if t.events.OnOpened != nil {
		t.events.OnOpened()
	}
}

// readPump reads frames until the connection fails or is closed, forwarding
// each frame to OnMessage and the terminal error to OnClosed.
func (t *wsTransport) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if t.conn == conn {
				t.conn = nil
			}
			t.mu.Unlock()

			code := websocket.CloseAbnormalClosure
			reason := err.Error()
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
				reason = ce.Text
			}
			t.emitClosed(code, reason)
			return
		}

		t.mu.Lock()
		muted := t.muted
		t.mu.Unlock()
		if muted {
			return
		}

		if t.events.OnMessage != nil {
			t.events.OnMessage(data)
		}
	}
}

func (t *wsTransport) emitError(err error) {
	t.mu.Lock()
	muted := t.muted
	t.mu.Unlock()
	if muted || t.events.OnError == nil {
		return
	}
	t.events.OnError(err)
}

func (t *wsTransport) emitClosed(code int, reason string) {
	t.mu.Lock()
	muted := t.muted
	t.mu.Unlock()
	if muted || t.events.OnClosed == nil {
		return
	}
	t.events.OnClosed(code, reason)
}
