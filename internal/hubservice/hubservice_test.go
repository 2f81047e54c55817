package hubservice

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/itsatony/soundscape/hub/internal/live"
	"github.com/itsatony/soundscape/hub/internal/models"
	"github.com/itsatony/soundscape/hub/internal/repository"
	"github.com/itsatony/soundscape/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var base = time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

func seed(store *memory.Store) {
	for i, label := range []string{"Bird", "Wind", "Rain", "Insect", "Speech"} {
		store.Put("classifications", repository.Document{Data: map[string]interface{}{
			"label": label, "score": 0.9, "spl": 45.2, "syncId": "s1",
			"syncTime": base.Add(time.Duration(i) * time.Millisecond),
		}})
	}
	store.Put("classifications", repository.Document{Data: map[string]interface{}{
		"label": "Bird", "score": 0.7, "spl": 50.0, "syncId": "s2", "syncTime": base.Add(time.Second),
	}})
	store.Put("batDetections", repository.Document{Data: map[string]interface{}{
		"species": "Pipistrellus", "detectionProb": 0.8, "syncId": "b1",
		"audioPath": "/bat_audio/b1.wav", "detectionTime": base,
	}})
	store.Put("deviceStatus", repository.Document{Data: map[string]interface{}{
		"cpuTemp": 48.0, "recordedAt": base,
	}})
}

func newService(t *testing.T, cache repository.ViewCache, clips repository.ClipStore) (*HubService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	seed(store)
	monitor := live.NewMonitor(store, live.DefaultStreams())
	svc := New(store, monitor, cache, clips, nil, Options{})
	svc.now = func() time.Time { return base.Add(time.Minute) }
	return svc, store
}

func waitForView(t *testing.T, svc *HubService) {
	t.Helper()
	require.Eventually(t, func() bool {
		v := svc.BuildView()
		return v.Summary.Classifications == 6 && v.Summary.BatDetections == 1 && !v.Device.Waiting
	}, 2*time.Second, 5*time.Millisecond)
}

func TestValidate(t *testing.T) {
	svc := New(nil, nil, nil, nil, nil, Options{})
	assert.Error(t, svc.Validate())
	assert.Error(t, svc.Start(context.Background()))
}

func TestBuildView(t *testing.T) {
	ctrl := gomock.NewController(t)
	clips := repository.NewMockClipStore(ctrl)
	clips.EXPECT().Exists("b1.wav").Return(true).AnyTimes()

	svc, _ := newService(t, nil, clips)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	waitForView(t, svc)

	v := svc.BuildView()
	assert.True(t, v.Connected)
	require.Len(t, v.SPL.Points, 2)
	assert.InDelta(t, 47.6, v.SPL.Stats.Avg, 1e-9)
	assert.Equal(t, "Bird", v.Labels[0].Label)
	assert.Equal(t, 2, v.Labels[0].Count)
	require.Len(t, v.Detections, 1)
	assert.Equal(t, "/api/v1/clips/b1.wav", v.Detections[0].AudioURL)
	assert.Len(t, v.Classifications, 6)
	assert.False(t, v.Device.Stale)
	assert.Len(t, v.Stats, 4)
}

func TestClipURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	clips := repository.NewMockClipStore(ctrl)
	svc := New(memory.NewStore(), nil, nil, clips, nil, Options{ClipBaseURL: "/clips"})

	clips.EXPECT().Exists("abc.wav").Return(true)
	assert.Equal(t, "/clips/abc.wav", svc.clipURL(models.BatDetectionEvent{SyncID: "abc"}))

	clips.EXPECT().Exists("gone.wav").Return(false)
	assert.Empty(t, svc.clipURL(models.BatDetectionEvent{AudioPath: "/bat_audio/gone.wav"}))

	assert.Empty(t, svc.clipURL(models.BatDetectionEvent{}))

	svc.Clips = nil
	assert.Empty(t, svc.clipURL(models.BatDetectionEvent{SyncID: "abc"}))
}

func TestPublish_SavesToCacheAndBroadcasts(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := repository.NewMockViewCache(ctrl)
	saved := make(chan []byte, 16)
	cache.EXPECT().Save(gomock.Any(), gomock.Any(), defaultCacheTTL).
		DoAndReturn(func(_ context.Context, view []byte, _ time.Duration) error {
			select {
			case saved <- view:
			default:
			}
			return nil
		}).AnyTimes()
	cache.EXPECT().Close().Return(nil)

	svc, store := newService(t, cache, nil)
	_, updates := svc.Subscribe()
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	select {
	case data := <-saved:
		var v View
		require.NoError(t, json.Unmarshal(data, &v))
		assert.True(t, v.Connected)
	case <-time.After(2 * time.Second):
		t.Fatal("view was not cached")
	}

	select {
	case data, ok := <-updates:
		require.True(t, ok)
		assert.Contains(t, string(data), `"stats"`)
	case <-time.After(2 * time.Second):
		t.Fatal("view was not broadcast")
	}

	store.Put("classifications", repository.Document{Data: map[string]interface{}{
		"label": "Owl", "score": 0.5, "syncId": "s3", "syncTime": base.Add(2 * time.Second),
	}})
	require.Eventually(t, func() bool {
		return svc.Monitoring.Counts()["view.published"] > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClose_ClosesSubscribers(t *testing.T) {
	svc, _ := newService(t, nil, nil)
	_, updates := svc.Subscribe()
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.Close(context.Background()))

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestCachedView(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := repository.NewMockViewCache(ctrl)
	svc := New(memory.NewStore(), nil, cache, nil, nil, Options{})

	cache.EXPECT().Latest(gomock.Any()).Return([]byte(`{"connected":true}`), nil)
	data, err := svc.CachedView(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"connected":true}`, string(data))

	cache.EXPECT().Latest(gomock.Any()).Return(nil, repository.ErrNotFound)
	_, err = svc.CachedView(context.Background())
	assert.True(t, errors.IsNotFound(err))

	svc.Cache = nil
	_, err = svc.CachedView(context.Background())
	require.Error(t, err)
	apiErr, ok := err.(*errors.APIError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeUnavailable, apiErr.Type)
}
