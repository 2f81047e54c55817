package server

import (
	"context"
	"testing"
	"time"

	"github.com/itsatony/soundscape/hub/internal/config"
	"github.com/itsatony/soundscape/hub/internal/monitoring"
	"github.com/itsatony/soundscape/hub/internal/repository"
	"github.com/itsatony/soundscape/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Subscriptions: config.SubscriptionsConfig{
			Classifications: config.StreamConfig{Collection: "classifications", OrderField: "syncTime", Limit: 100},
			BatDetections:   config.StreamConfig{Collection: "batDetections", Limit: 50},
			DeviceStatus:    config.StreamConfig{Collection: "deviceStatus", OrderField: "recordedAt", Limit: 1},
		},
		Clips: config.ClipsConfig{BaseURL: "/api/v1/clips"},
	}
}

func TestStreamsFromConfig(t *testing.T) {
	streams := streamsFromConfig(memoryConfig().Subscriptions)

	assert.Equal(t, repository.Query{
		Collection: "classifications",
		OrderBy:    "syncTime",
		Direction:  repository.Descending,
		Limit:      100,
	}, streams.Classifications)
	assert.False(t, streams.BatDetections.Ordered())
	assert.Equal(t, 50, streams.BatDetections.Limit)
	assert.Equal(t, "recordedAt", streams.DeviceStatus.OrderBy)
}

func TestOpenStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, memoryConfig())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	cfg := memoryConfig()
	cfg.Store.Backend = "mongo"
	_, err = openStore(ctx, cfg)
	assert.Error(t, err)
}

func TestOpenOptionalBackends(t *testing.T) {
	assert.Nil(t, openCache(context.Background(), config.RedisConfig{}))
	assert.Nil(t, openClips(config.ClipsConfig{}))
	assert.Nil(t, openClips(config.ClipsConfig{Dir: "/does/not/exist"}))
	assert.NotNil(t, openClips(config.ClipsConfig{Dir: t.TempDir()}))
}

func TestInitializeHubServiceWithDemoData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := memoryConfig()
	cfg.Store.Demo = true
	cfg.Store.DemoInterval = time.Hour

	svc, err := initializeHubService(ctx, cfg, monitoring.NewService(monitoring.Config{}))
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))
	defer svc.Close(context.Background())

	// the demo writes one sample right away
	assert.Eventually(t, func() bool {
		return svc.Stats().Summary.Classifications == 5
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCleanupEventsAreRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := monitoring.NewService(monitoring.Config{})
	svc, err := initializeHubService(ctx, memoryConfig(), mon)
	require.NoError(t, err)

	s := &Server{config: memoryConfig(), hubservice: svc, monitoring: mon}
	s.setupCleanupHandlers()
	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Close(context.Background()))

	// store, monitor and publisher; no cache is configured
	assert.Eventually(t, func() bool {
		return mon.Counts()["resource_released"] == 3
	}, 2*time.Second, 5*time.Millisecond)

	released, err := mon.GetEventMetrics("resource_released", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released["resource=monitor"])
}
