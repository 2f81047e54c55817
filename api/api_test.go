package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/itsatony/soundscape/hub/internal/config"
	"github.com/itsatony/soundscape/hub/internal/hubservice"
	"github.com/itsatony/soundscape/hub/internal/live"
	"github.com/itsatony/soundscape/hub/internal/repository"
	"github.com/itsatony/soundscape/hub/internal/repository/files"
	"github.com/itsatony/soundscape/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const token = "test-token"

var base = time.Now().Add(-time.Minute).UTC()

func classification(syncID, label string, spl float64, offset time.Duration) repository.Document {
	return repository.Document{Data: map[string]interface{}{
		"label": label, "score": 0.8, "spl": spl, "device": "pi-01",
		"syncId": syncID, "syncTime": base.Add(offset),
	}}
}

type fixture struct {
	svc    *hubservice.HubService
	store  *memory.Store
	router *Router
}

func newFixture(t *testing.T, cache repository.ViewCache, clips repository.ClipStore) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.Put("classifications",
		classification("s1", "Bird", 40, 0),
		classification("s1", "Wind", 40, 0),
		classification("s2", "Bird", 50, time.Second),
	)
	store.Put("batDetections", repository.Document{ID: "bat-1", Data: map[string]interface{}{
		"species": "Nyctalus noctula", "commonName": "Noctule", "detectionProb": 0.9,
		"syncId": "s2", "audioPath": "/bat_audio/s2.wav", "detectionTime": base,
	}})
	store.Put("deviceStatus", repository.Document{Data: map[string]interface{}{
		"cpuTemp": 52.0, "recordedAt": base,
	}})

	svc := hubservice.New(store, live.NewMonitor(store, live.DefaultStreams()), cache, clips, nil, hubservice.Options{})
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	require.Eventually(t, func() bool {
		return svc.Stats().Summary.Classifications == 3 && svc.Monitor.Connected()
	}, 2*time.Second, 5*time.Millisecond)

	return &fixture{
		svc:   svc,
		store: store,
		router: NewRouter(svc, config.ServerConfig{
			APIToken:       token,
			AllowedOrigins: []string{"*"},
		}),
	}
}

func (f *fixture) get(t *testing.T, path string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorized {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestPublicRoutes(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/v1/health", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status    string `json:"status"`
		Connected bool   `json:"connected"`
	}
	decode(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Connected)

	rec = f.get(t, "/api/v1/metrics", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/api/v1/swagger.json", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/dashboard/labels")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t, nil, nil)

	for _, path := range []string{"/api/v1/dashboard", "/api/v1/dashboard/spl", "/api/v1/clips/s2"} {
		rec := f.get(t, path, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := f.get(t, "/api/v1/dashboard/stats?access_token="+token, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/v1/dashboard", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var view hubservice.View
	decode(t, rec, &view)

	assert.True(t, view.Connected)
	assert.Equal(t, 3, view.Summary.Classifications)
	assert.Equal(t, 1, view.Summary.BatDetections)
	assert.Equal(t, 2, view.Summary.UniqueLabels)
	assert.InDelta(t, 130.0/3, view.Summary.AvgSPL, 1e-9)
	require.Len(t, view.SPL.Points, 2)
	require.NotEmpty(t, view.Labels)
	assert.Equal(t, "Bird", view.Labels[0].Label)
	require.Len(t, view.Detections, 1)
	assert.Equal(t, "Noctule", view.Detections[0].CommonName)
	assert.Empty(t, view.Detections[0].AudioURL, "no clip store configured")
	assert.Len(t, view.Classifications, 3)
	assert.False(t, view.Device.Waiting)
}

func TestDashboardParts(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.get(t, "/api/v1/dashboard/labels?top=1", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var labels []map[string]interface{}
	decode(t, rec, &labels)
	require.Len(t, labels, 1)
	assert.Equal(t, "Bird", labels[0]["label"])

	rec = f.get(t, "/api/v1/dashboard/classifications?limit=2", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]interface{}
	decode(t, rec, &rows)
	assert.Len(t, rows, 2)

	for _, path := range []string{"/dashboard/stats", "/dashboard/spl", "/dashboard/detections", "/dashboard/device"} {
		rec = f.get(t, "/api/v1"+path, true)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestDashboardRejectsBadParameters(t *testing.T) {
	f := newFixture(t, nil, nil)

	for _, path := range []string{
		"/api/v1/dashboard/labels?top=0",
		"/api/v1/dashboard/labels?top=51",
		"/api/v1/dashboard/labels?top=many",
		"/api/v1/dashboard/detections?limit=51",
		"/api/v1/dashboard/classifications?limit=0",
		"/api/v1/dashboard/classifications?limit=101",
	} {
		rec := f.get(t, path, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		var body struct {
			Type      string `json:"type"`
			RequestID string `json:"request_id"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "validation", body.Type, path)
		assert.NotEmpty(t, body.RequestID, path)
	}
}

func TestCachedView(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.get(t, "/api/v1/dashboard/cached", true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ctrl := gomock.NewController(t)
	cache := repository.NewMockViewCache(ctrl)
	cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	cache.EXPECT().Close().Return(nil).AnyTimes()
	gomock.InOrder(
		cache.EXPECT().Latest(gomock.Any()).Return(nil, repository.ErrNotFound),
		cache.EXPECT().Latest(gomock.Any()).Return([]byte(`{"connected":true}`), nil),
	)

	f = newFixture(t, cache, nil)
	rec = f.get(t, "/api/v1/dashboard/cached", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.get(t, "/api/v1/dashboard/cached", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"connected":true}`, rec.Body.String())
}

func TestClips(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.get(t, "/api/v1/clips/s2", true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s2.wav"), []byte("RIFF"), 0o644))
	clips, err := files.NewClipRepository(files.ClipConfig{BasePath: dir})
	require.NoError(t, err)

	f = newFixture(t, nil, clips)
	rec = f.get(t, "/api/v1/clips/s2", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "RIFF", rec.Body.String())

	rec = f.get(t, "/api/v1/clips/missing", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.get(t, "/api/v1/clips/..", true)
	assert.NotEqual(t, http.StatusOK, rec.Code)

	// the feed now links the stored clip
	var view hubservice.View
	decode(t, f.get(t, "/api/v1/dashboard", true), &view)
	require.Len(t, view.Detections, 1)
	assert.Equal(t, "/api/v1/clips/s2.wav", view.Detections[0].AudioURL)
}

func TestLiveStream(t *testing.T) {
	f := newFixture(t, nil, nil)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live?access_token=" + token

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/live", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	type summaryOnly struct {
		Summary struct {
			Classifications int `json:"classifications"`
		} `json:"summary"`
	}
	next := func() summaryOnly {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg summaryOnly
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, 3, next().Summary.Classifications)

	f.store.Put("classifications", classification("s3", "Rain", 60, 2*time.Second))
	for {
		if next().Summary.Classifications == 4 {
			break
		}
	}
}
