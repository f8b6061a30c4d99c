package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"opcflux/internal/domain"
	"opcflux/internal/ports"

	"github.com/stretchr/testify/require"
)

// fakeTransport is a scriptable ports.Transport for bridge tests.
type fakeTransport struct {
	mu sync.Mutex

	connectErr    error
	subscribeErrs map[string]error // node id -> error on CreateSubscription

	connects    int
	disconnects int
	closes      int
	browses     []string
	browseNexts int

	pages     map[string][]ports.BrowsePage // node id -> pages (first via Browse, rest via BrowseNext)
	pageIndex map[string]int

	nextSubID uint32
	handles   []*fakeHandle
	onFail    func(uint32)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		subscribeErrs: make(map[string]error),
		pages:         make(map[string][]ports.BrowsePage),
		pageIndex:     make(map[string]int),
	}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeTransport) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) Browse(_ context.Context, nodeID string) (ports.BrowsePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.browses = append(f.browses, nodeID)
	pages, ok := f.pages[nodeID]
	if !ok || len(pages) == 0 {
		return ports.BrowsePage{}, nil
	}
	f.pageIndex[nodeID] = 1
	return pages[0], nil
}

func (f *fakeTransport) BrowseNext(_ context.Context, continuation []byte) (ports.BrowsePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.browseNexts++
	nodeID := string(continuation)
	idx := f.pageIndex[nodeID]
	pages := f.pages[nodeID]
	if idx >= len(pages) {
		return ports.BrowsePage{}, errors.New("no more pages")
	}
	f.pageIndex[nodeID] = idx + 1
	return pages[idx], nil
}

func (f *fakeTransport) CreateSubscription(_ context.Context, _ time.Duration, onValue ports.ValueChangeHandler) (ports.SubscriptionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSubID++
	h := &fakeHandle{id: f.nextSubID, owner: f, onValue: onValue}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeTransport) SetTransferFailureHandler(fn func(uint32)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFail = fn
}

func (f *fakeTransport) fireTransferFailure(id uint32) {
	f.mu.Lock()
	fn := f.onFail
	f.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

type fakeHandle struct {
	id      uint32
	owner   *fakeTransport
	onValue ports.ValueChangeHandler
	nodeID  string
}

func (h *fakeHandle) ID() uint32 { return h.id }

func (h *fakeHandle) MonitorValue(_ context.Context, nodeID string) error {
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	h.nodeID = nodeID
	if err := h.owner.subscribeErrs[nodeID]; err != nil {
		return err
	}
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	points []*domain.DataPoint
	err    error
}

func (s *captureSink) Publish(p *domain.DataPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.points = append(s.points, p)
	return nil
}

func newTestBridge(t *fakeTransport, subs ...ports.SubscriptionConfig) (*Bridge, *captureSink) {
	sink := &captureSink{}
	b := New(Config{Subscriptions: subs}, func() (ports.Transport, error) { return t, nil }, sink, nil)
	return b, sink
}

func TestStartWithNoSubscriptions(t *testing.T) {
	ft := newFakeTransport()
	b, _ := newTestBridge(ft)

	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, StatusConnected, b.Status())
	require.Equal(t, 1, ft.connects)
	require.Empty(t, ft.handles)
	require.Equal(t, 0, b.SubscriptionCount())
}

func TestStartCreatesOneSubscriptionPerNode(t *testing.T) {
	ft := newFakeTransport()
	b, _ := newTestBridge(ft,
		ports.SubscriptionConfig{NodeID: "ns=2;s=a"},
		ports.SubscriptionConfig{NodeID: "ns=2;s=b"},
		ports.SubscriptionConfig{NodeID: "ns=2;s=c"},
	)

	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, StatusConnected, b.Status())
	require.Len(t, ft.handles, 3)
	require.Equal(t, 3, b.SubscriptionCount())
}

func TestStartConnectFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.connectErr = errors.New("refused")
	b, _ := newTestBridge(ft, ports.SubscriptionConfig{NodeID: "ns=2;s=a"})

	err := b.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, b.Status())
	require.Empty(t, ft.handles, "no subscriptions should be attempted after a failed connect")
}

func TestStartSubscribeFailureSetsError(t *testing.T) {
	ft := newFakeTransport()
	ft.subscribeErrs["ns=2;s=bad"] = errors.New("monitored item rejected")
	b, _ := newTestBridge(ft,
		ports.SubscriptionConfig{NodeID: "ns=2;s=a"},
		ports.SubscriptionConfig{NodeID: "ns=2;s=bad"},
		ports.SubscriptionConfig{NodeID: "ns=2;s=b"},
	)

	err := b.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, b.Status())
}

func TestStartFactoryFailureLeavesStatus(t *testing.T) {
	want := errors.New("no transport")
	b := New(Config{}, func() (ports.Transport, error) { return nil, want }, &captureSink{}, nil)

	err := b.Start(context.Background())
	require.ErrorIs(t, err, want)
	require.Equal(t, StatusDisconnected, b.Status())
}

func TestStopThenStartReusesClient(t *testing.T) {
	ft := newFakeTransport()
	b, _ := newTestBridge(ft, ports.SubscriptionConfig{NodeID: "ns=2;s=a"})

	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, StatusDisconnected, b.Status())

	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, StatusConnected, b.Status())
	require.Equal(t, 2, ft.connects)
	require.Equal(t, 1, ft.disconnects)
}

func TestCloseClearsRecords(t *testing.T) {
	ft := newFakeTransport()
	b, _ := newTestBridge(ft, ports.SubscriptionConfig{NodeID: "ns=2;s=a"})

	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, 1, b.SubscriptionCount())

	require.NoError(t, b.Close(context.Background()))
	require.Equal(t, StatusDisconnected, b.Status())
	require.Equal(t, 0, b.SubscriptionCount())
	require.Equal(t, 1, ft.closes)

	// A later Start rebuilds everything through the factory.
	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, StatusConnected, b.Status())
	require.Equal(t, 1, b.SubscriptionCount())
}

func TestStartAgainReconnectsAndResubscribes(t *testing.T) {
	ft := newFakeTransport()
	b, _ := newTestBridge(ft, ports.SubscriptionConfig{NodeID: "ns=2;s=a"})

	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	require.Equal(t, 2, ft.connects)
	require.Len(t, ft.handles, 2)
	require.Equal(t, StatusConnected, b.Status())
}

func TestStopWithoutStart(t *testing.T) {
	ft := newFakeTransport()
	b, _ := newTestBridge(ft)

	require.NoError(t, b.Stop(context.Background()))
	require.Equal(t, StatusDisconnected, b.Status())
	require.Equal(t, 0, ft.disconnects)
}

func TestValueChangesFlowToSink(t *testing.T) {
	ft := newFakeTransport()
	b, sink := newTestBridge(ft, ports.SubscriptionConfig{NodeID: "ns=2;s=a"})

	require.NoError(t, b.Start(context.Background()))
	require.Len(t, ft.handles, 1)

	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ft.handles[0].onValue("ns=2;s=a", int32(42), ts)
	ft.handles[0].onValue("ns=2;s=a", int32(43), ts.Add(time.Second))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.points, 2)
	require.Equal(t, "ns=2;s=a", sink.points[0].NodeID)
	require.Equal(t, int32(42), sink.points[0].Value)
	require.Equal(t, ts, sink.points[0].Timestamp)
	require.Equal(t, uint64(1), sink.points[0].Seq)
	require.Equal(t, uint64(2), sink.points[1].Seq)
}
