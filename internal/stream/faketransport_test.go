package stream

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a scripted Transport. Tests drive connection events
// explicitly through the fire* helpers, or set failDial to make every Open
// report an asynchronous dial failure.
type fakeTransport struct {
	mu        sync.Mutex
	events    TransportEvents
	open      bool
	openCalls int
	sent      [][]byte
	failDial  bool
	failSend  bool
}

// factory is passed as Options.Transport so the test keeps a handle on the
// transport the client builds.
func (f *fakeTransport) factory(events TransportEvents) Transport {
	f.events = events
	return f
}

func (f *fakeTransport) Open(url string) {
	f.mu.Lock()
	f.openCalls++
	fail := f.failDial
	f.mu.Unlock()

	if fail {
		// Events must be asynchronous with respect to Open.
		go func() {
			f.events.OnError(errors.New("dial refused"))
			f.events.OnClosed(websocket.CloseAbnormalClosure, "dial failed")
		}()
	}
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open || f.failSend {
		return errors.New("transport not open")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// markOpen flips the socket open without delivering the opened event,
// mimicking the window between the dial completing and the event callback
// running.
func (f *fakeTransport) markOpen() {
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
}

func (f *fakeTransport) fireOpened() {
	f.markOpen()
	f.events.OnOpened()
}

func (f *fakeTransport) fireClosed(code int, reason string) {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	f.events.OnClosed(code, reason)
}

func (f *fakeTransport) fireMessage(raw string) {
	f.events.OnMessage([]byte(raw))
}

func (f *fakeTransport) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCalls
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// sentActions decodes every frame written so far.
func (f *fakeTransport) sentActions(t *testing.T) []OutboundAction {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	actions := make([]OutboundAction, 0, len(f.sent))
	for _, frame := range f.sent {
		var a OutboundAction
		require.NoError(t, json.Unmarshal(frame, &a))
		actions = append(actions, a)
	}
	return actions
}

// pingCount counts ping frames written so far.
func (f *fakeTransport) pingCount(t *testing.T) int {
	t.Helper()
	n := 0
	for _, a := range f.sentActions(t) {
		if a.Action == ActionPing {
			n++
		}
	}
	return n
}
