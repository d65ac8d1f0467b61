package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcherQueuesWhileClosed(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, testLogger())

	d.Dispatch(SubscribeAction(ironCondorParams("SPY")))
	d.Dispatch(PingAction())

	require.Zero(t, ft.sentCount())
	require.Equal(t, 2, d.QueueLen())
}

func TestDispatcherSendsImmediatelyWhenOpen(t *testing.T) {
	ft := &fakeTransport{open: true}
	d := NewDispatcher(ft, testLogger())

	d.Dispatch(PingAction())

	require.Equal(t, 1, ft.sentCount())
	require.Zero(t, d.QueueLen())
}

func TestDispatcherFlushPreservesOrder(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, testLogger())

	a := ironCondorParams("SPY")
	b := bullCallParams("QQQ")
	d.Dispatch(SubscribeAction(a))
	d.Dispatch(SubscribeAction(b))
	d.Dispatch(UnsubscribeAction(a.ID()))

	ft.open = true
	d.Flush()

	actions := ft.sentActions(t)
	require.Len(t, actions, 3)
	require.Equal(t, "SPY", actions[0].StrategyParams.Symbol)
	require.Equal(t, "QQQ", actions[1].StrategyParams.Symbol)
	require.Equal(t, a.ID(), actions[2].StrategyID)
	require.Zero(t, d.QueueLen())
}

func TestDispatcherQueuesBehindBacklogWhenOpen(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, testLogger())

	a := ironCondorParams("SPY")
	d.Dispatch(UnsubscribeAction(a.ID()))

	// Socket comes up with the backlog still queued; the new action must
	// wait behind it rather than going out first.
	ft.markOpen()
	d.Dispatch(SubscribeAction(a))

	require.Zero(t, ft.sentCount())
	require.Equal(t, 2, d.QueueLen())

	d.Flush()

	actions := ft.sentActions(t)
	require.Len(t, actions, 2)
	require.Equal(t, ActionUnsubscribe, actions[0].Action)
	require.Equal(t, ActionSubscribe, actions[1].Action)
	require.Zero(t, d.QueueLen())
}

func TestDispatcherFlushStopsOnSendFailure(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, testLogger())

	d.Dispatch(SubscribeAction(ironCondorParams("SPY")))
	d.Dispatch(SubscribeAction(bullCallParams("QQQ")))

	ft.open = true
	ft.failSend = true
	d.Flush()

	// The failed action and everything behind it stay queued.
	require.Equal(t, 2, d.QueueLen())
	require.Zero(t, ft.sentCount())

	ft.failSend = false
	d.Flush()
	require.Zero(t, d.QueueLen())
	require.Equal(t, 2, ft.sentCount())
}

func TestDispatcherQueuedIDs(t *testing.T) {
	ft := &fakeTransport{}
	d := NewDispatcher(ft, testLogger())

	a := ironCondorParams("SPY")
	d.Dispatch(SubscribeAction(a))
	d.Dispatch(UnsubscribeAction("other-id"))
	d.Dispatch(PingAction())

	ids := d.QueuedIDs()
	require.Len(t, ids, 2)
	require.Contains(t, ids, a.ID())
	require.Contains(t, ids, "other-id")
}
