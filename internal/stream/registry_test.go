package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
)

func newTestRegistry() (*Registry, *fakeTransport) {
	ft := &fakeTransport{open: true}
	d := NewDispatcher(ft, testLogger())
	return NewRegistry(d, testLogger()), ft
}

func TestRegistrySubscribeIsIdempotent(t *testing.T) {
	r, ft := newTestRegistry()

	params := ironCondorParams("SPY")
	id1 := r.Subscribe(params)
	id2 := r.Subscribe(params)

	require.Equal(t, id1, id2)
	require.Equal(t, 1, ft.sentCount(), "repeat subscribe must not re-send")

	status, ok := r.Status(id1)
	require.True(t, ok)
	require.Equal(t, SubPending, status)
}

func TestRegistryConfirmAndDowngrade(t *testing.T) {
	r, _ := newTestRegistry()

	id := r.Subscribe(ironCondorParams("SPY"))
	r.Confirm(id)

	status, _ := r.Status(id)
	require.Equal(t, SubConfirmed, status)

	r.DowngradeConfirmed()
	status, _ = r.Status(id)
	require.Equal(t, SubPending, status)

	// The entry itself survives the downgrade.
	require.Equal(t, []string{id}, r.IDs())
}

func TestRegistryConfirmUnknownIDIsIgnored(t *testing.T) {
	r, _ := newTestRegistry()
	r.Confirm("nope")
	require.Empty(t, r.IDs())
}

func TestRegistryRemoveDropsSnapshot(t *testing.T) {
	r, _ := newTestRegistry()

	id := r.Subscribe(ironCondorParams("SPY"))
	r.SetSnapshot(id, domain.StrategyUpdate{Symbol: "SPY", Timestamp: time.Now()})

	_, ok := r.Snapshot(id)
	require.True(t, ok)

	r.Remove(id)
	_, ok = r.Snapshot(id)
	require.False(t, ok)
	require.Empty(t, r.IDs())
}

func TestRegistrySnapshotsKeyedByID(t *testing.T) {
	r, _ := newTestRegistry()

	idA := r.Subscribe(ironCondorParams("SPY"))
	idB := r.Subscribe(bullCallParams("QQQ"))

	r.SetSnapshot(idA, domain.StrategyUpdate{Symbol: "SPY", NetPrice: 1.0})
	r.SetSnapshot(idB, domain.StrategyUpdate{Symbol: "QQQ", NetPrice: 2.0})

	a, _ := r.Snapshot(idA)
	b, _ := r.Snapshot(idB)
	require.Equal(t, "SPY", a.Symbol)
	require.Equal(t, "QQQ", b.Symbol)
}

func TestRegistrySnapshotForUnknownIDDropped(t *testing.T) {
	r, _ := newTestRegistry()
	r.SetSnapshot("ghost", domain.StrategyUpdate{Symbol: "SPY"})
	_, ok := r.Snapshot("ghost")
	require.False(t, ok)
}

func TestRegistryReannounceSkipsQueuedIDs(t *testing.T) {
	ft := &fakeTransport{} // closed: subscribes will queue
	d := NewDispatcher(ft, testLogger())
	r := NewRegistry(d, testLogger())

	idA := r.Subscribe(ironCondorParams("SPY"))
	idB := r.Subscribe(bullCallParams("QQQ"))
	r.Confirm(idB) // pretend B was confirmed on an earlier connection

	skip := map[string]struct{}{idA: {}}

	ft.open = true
	d.Flush()
	r.Reannounce(skip)

	actions := ft.sentActions(t)
	// Flushed A and B, then re-announced only B.
	require.Len(t, actions, 3)
	require.Equal(t, "QQQ", actions[2].StrategyParams.Symbol)

	status, _ := r.Status(idB)
	require.Equal(t, SubPending, status, "re-announce resets confirmation")
}
