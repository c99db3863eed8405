package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memHealth struct {
	ids      []int64
	inserted map[int64][]string
	failures int
	marked   map[int64]string
}

func (m *memHealth) ListProviderIDs(context.Context) ([]int64, error) { return m.ids, nil }

func (m *memHealth) InsertHealth(_ context.Context, providerID int64, status string, _ time.Duration, _ *string) error {
	if m.inserted == nil {
		m.inserted = map[int64][]string{}
	}
	m.inserted[providerID] = append(m.inserted[providerID], status)
	return nil
}

func (m *memHealth) RecentHealthFailures(context.Context, int64) (int, error) { return m.failures, nil }

func (m *memHealth) SetProviderHealth(_ context.Context, providerID int64, status string) error {
	if m.marked == nil {
		m.marked = map[int64]string{}
	}
	m.marked[providerID] = status
	return nil
}

func TestHealthMonitorRecordsChecks(t *testing.T) {
	good := &fakeProvider{name: "good"}
	bad := &fakeProvider{name: "bad", health: errors.New("unauthorized")}
	router := newTestRouter(map[string]*fakeProvider{"a": good, "b": bad}, fakeConfig(1, "a"), fakeConfig(2, "b"))
	store := &memHealth{ids: []int64{1, 2}, failures: 1}

	monitor := &HealthMonitor{Router: router, Store: store}
	monitor.RunOnce(context.Background())

	assert.Equal(t, []string{healthOK}, store.inserted[1])
	assert.Equal(t, []string{healthError}, store.inserted[2])
	assert.Empty(t, store.marked)
}

func TestHealthMonitorMarksUnhealthy(t *testing.T) {
	bad := &fakeProvider{name: "bad", health: errors.New("timeout")}
	router := newTestRouter(map[string]*fakeProvider{"b": bad}, fakeConfig(2, "b"))
	store := &memHealth{ids: []int64{2}, failures: unhealthyAfter}

	monitor := &HealthMonitor{Router: router, Store: store}
	monitor.RunOnce(context.Background())

	require.Contains(t, store.marked, int64(2))
	assert.Equal(t, healthUnhealthy, store.marked[2])
}

func TestHealthMonitorRunStopsWithContext(t *testing.T) {
	router := newTestRouter(nil)
	monitor := &HealthMonitor{Router: router, Store: &memHealth{}, Interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
