package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itsatony/soundscape/hub/internal/repository"
	"github.com/itsatony/soundscape/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var (
	errMissingIndex = errors.New("the query requires an index")
	base            = time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
)

func classificationDoc(syncID, label string, spl float64, offset time.Duration) repository.Document {
	return repository.Document{Data: map[string]interface{}{
		"label":    label,
		"score":    0.8,
		"spl":      spl,
		"device":   "pi-01",
		"syncId":   syncID,
		"syncTime": base.Add(offset),
	}}
}

func batDoc(species string, offset time.Duration) repository.Document {
	return repository.Document{Data: map[string]interface{}{
		"species":       species,
		"detectionProb": 0.9,
		"lowFreq":       40000.0,
		"highFreq":      52000.0,
		"detectionTime": base.Add(offset),
	}}
}

func healthDoc(offset time.Duration, temp float64) repository.Document {
	return repository.Document{Data: map[string]interface{}{
		"cpuTemp":    temp,
		"recordedAt": base.Add(offset),
	}}
}

func startMonitor(t *testing.T, store repository.DocumentStore) *Monitor {
	t.Helper()
	m := NewMonitor(store, DefaultStreams())
	m.Start(context.Background())
	t.Cleanup(m.Close)
	return m
}

func TestMonitor_DeliversSnapshots(t *testing.T) {
	store := memory.NewStore()
	store.Put("classifications",
		classificationDoc("s1", "Bird", 45.2, 0),
		classificationDoc("s2", "Wind", 50.0, time.Second),
	)
	store.Put("batDetections", batDoc("Pipistrellus", 0))
	store.Put("deviceStatus", healthDoc(0, 51), healthDoc(time.Minute, 55))

	m := startMonitor(t, store)

	require.Eventually(t, func() bool {
		s := m.Snapshot()
		return len(s.Classifications) == 2 && len(s.BatDetections) == 1 && s.Health != nil
	}, waitFor, tick)

	s := m.Snapshot()
	assert.True(t, s.Connected)
	assert.Equal(t, "Wind", s.Classifications[0].Label, "newest first")
	require.NotNil(t, s.Health.CPUTemp)
	assert.Equal(t, 55.0, *s.Health.CPUTemp)
	assert.Empty(t, s.Degraded)
}

func TestMonitor_SnapshotReplacesWindow(t *testing.T) {
	store := memory.NewStore()
	m := startMonitor(t, store)

	for i := 0; i < 120; i++ {
		store.Put("classifications", classificationDoc(fmt.Sprintf("s%d", i), "Bird", 40, time.Duration(i)*time.Second))
	}

	require.Eventually(t, func() bool {
		s := m.Snapshot()
		return len(s.Classifications) == 100 && s.Classifications[0].SyncID == "s119"
	}, waitFor, tick)
}

func TestMonitor_FallbackOnAsyncError(t *testing.T) {
	store := memory.NewStore()
	store.FailOrderedQueries("classifications", errMissingIndex)
	store.Put("classifications", classificationDoc("s1", "Bird", 45.2, 0))

	m := startMonitor(t, store)

	require.Eventually(t, func() bool {
		return len(m.Snapshot().Classifications) == 1
	}, waitFor, tick)

	s := m.Snapshot()
	assert.True(t, s.Connected)
	assert.Equal(t, []string{StreamClassifications}, s.Degraded)

	store.Put("classifications", classificationDoc("s2", "Wind", 50, time.Second))
	require.Eventually(t, func() bool {
		return len(m.Snapshot().Classifications) == 2
	}, waitFor, tick)
}

func TestMonitor_FallbackOnSyncError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := repository.NewMockDocumentStore(ctrl)

	streams := DefaultStreams()
	var fallbackCalls atomic.Int32
	delivered := make(chan struct{})

	probed := make(chan struct{})
	store.EXPECT().Get(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, repository.Query) ([]repository.Document, error) {
			close(probed)
			return nil, nil
		})
	store.EXPECT().
		Listen(gomock.Any(), streams.Classifications, gomock.Any()).
		Return(nil, errMissingIndex).
		Times(1)
	store.EXPECT().
		Listen(gomock.Any(), streams.Classifications.Unordered(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ repository.Query, l repository.Listener) (repository.Unsubscribe, error) {
			fallbackCalls.Add(1)
			go func() {
				l.OnSnapshot([]repository.Document{classificationDoc("s1", "Bird", 40, 0)})
				close(delivered)
			}()
			return func() {}, nil
		}).
		Times(1)
	store.EXPECT().
		Listen(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(func() {}, nil).
		Times(2)

	m := startMonitor(t, store)
	<-delivered
	<-probed

	assert.Equal(t, int32(1), fallbackCalls.Load())
	s := m.Snapshot()
	assert.True(t, s.Connected)
	assert.Len(t, s.Classifications, 1)
}

func TestMonitor_FallbackErrorIsNotEscalated(t *testing.T) {
	store := memory.NewStore()
	store.FailListen("batDetections", errMissingIndex)
	store.Put("classifications", classificationDoc("s1", "Bird", 45.2, 0))

	m := startMonitor(t, store)

	require.Eventually(t, func() bool {
		return len(m.Snapshot().Classifications) == 1
	}, waitFor, tick)

	s := m.Snapshot()
	assert.Empty(t, s.BatDetections)
	assert.Contains(t, s.Degraded, StreamBatDetections)
}

func TestMonitor_ConnectedOnHandledError(t *testing.T) {
	store := memory.NewStore()
	store.FailListen("classifications", errMissingIndex)

	m := startMonitor(t, store)

	assert.True(t, m.Connected())
	assert.Empty(t, m.Snapshot().Classifications)
}

func TestMonitor_ConnectedIsMonotonic(t *testing.T) {
	store := memory.NewStore()
	m := startMonitor(t, store)

	require.Eventually(t, m.Connected, waitFor, tick)
	for i := 0; i < 5; i++ {
		store.Put("classifications", classificationDoc(fmt.Sprint(i), "Bird", 40, time.Duration(i)*time.Second))
		assert.True(t, m.Connected())
	}
}

func TestMonitor_NoUpdatesAfterClose(t *testing.T) {
	store := memory.NewStore()
	m := NewMonitor(store, DefaultStreams())
	m.Start(context.Background())

	store.Put("classifications", classificationDoc("s1", "Bird", 45.2, 0))
	require.Eventually(t, func() bool {
		return len(m.Snapshot().Classifications) == 1
	}, waitFor, tick)

	m.Close()
	m.Close()
	before := m.Snapshot()

	store.Put("classifications", classificationDoc("s2", "Wind", 50, time.Second))
	m.applyClassifications([]repository.Document{classificationDoc("s3", "Rain", 60, 2*time.Second)})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before.Classifications, m.Snapshot().Classifications)
	assert.Equal(t, before.UpdatedAt, m.Snapshot().UpdatedAt)
}

func TestMonitor_StartAfterCloseIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := repository.NewMockDocumentStore(ctrl)

	m := NewMonitor(store, DefaultStreams())
	m.Close()
	m.Start(context.Background())

	assert.False(t, m.Connected())
}

func TestMonitor_OnUpdate(t *testing.T) {
	store := memory.NewStore()
	m := NewMonitor(store, DefaultStreams())

	var mu sync.Mutex
	seen := map[string]int{}
	m.OnUpdate("test", func(stream string) {
		mu.Lock()
		seen[stream]++
		mu.Unlock()
	})
	m.Start(context.Background())
	t.Cleanup(m.Close)

	store.Put("batDetections", batDoc("Myotis", 0))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[StreamClassifications] > 0 && seen[StreamBatDetections] > 0 && seen[StreamDeviceStatus] > 0
	}, waitFor, tick)
}

func TestMonitor_UpdateListenersAcceptEmittedArguments(t *testing.T) {
	m := NewMonitor(memory.NewStore(), DefaultStreams())

	var mu sync.Mutex
	var seen []string
	m.OnUpdate("test", func(stream string) {
		mu.Lock()
		seen = append(seen, stream)
		mu.Unlock()
	})

	streams := []string{StreamClassifications, StreamBatDetections, StreamDeviceStatus}
	for _, stream := range streams {
		require.NoError(t, m.events.Emit(stream+".updated", stream), stream)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(streams)
	}, waitFor, tick)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, streams, seen)
}

func TestMonitor_ProbeErrorLeavesStateUntouched(t *testing.T) {
	store := memory.NewStore()
	store.FailGet(errors.New("permission denied"))
	store.Put("classifications", classificationDoc("s1", "Bird", 45.2, 0))

	m := startMonitor(t, store)

	require.Eventually(t, func() bool {
		return len(m.Snapshot().Classifications) == 1
	}, waitFor, tick)
	assert.Empty(t, m.Snapshot().Degraded)
}

func TestMonitor_ProbeReadsBoundedWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := repository.NewMockDocumentStore(ctrl)
	probed := make(chan repository.Query, 1)

	store.EXPECT().Listen(gomock.Any(), gomock.Any(), gomock.Any()).Return(func() {}, nil).Times(3)
	store.EXPECT().Get(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q repository.Query) ([]repository.Document, error) {
			probed <- q
			return []repository.Document{classificationDoc("s1", "Bird", 40, 0)}, nil
		})

	startMonitor(t, store)

	select {
	case q := <-probed:
		assert.Equal(t, "classifications", q.Collection)
		assert.Equal(t, 5, q.Limit)
		assert.False(t, q.Ordered())
	case <-time.After(waitFor):
		t.Fatal("probe did not run")
	}
}

func TestLatestSnapshot(t *testing.T) {
	early := base
	late := base.Add(time.Minute)

	assert.Nil(t, latestSnapshot(nil))

	got := latestSnapshot(repository.DecodeDeviceHealth([]repository.Document{
		{ID: "a", Data: map[string]interface{}{"recordedAt": early}},
		{ID: "b", Data: map[string]interface{}{}},
		{ID: "c", Data: map[string]interface{}{"recordedAt": late}},
	}))
	require.NotNil(t, got)
	assert.Equal(t, "c", got.ID)
}
