package memory

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
	"github.com/itsatony/soundscape/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

var demoLabels = []string{
	"Bird", "Wind", "Insect", "Rain", "Vehicle", "Speech", "Dog", "Frog", "Cricket", "Owl", "Silence", "Water",
}

var demoBats = []struct{ species, common string }{
	{"Pipistrellus pipistrellus", "Common pipistrelle"},
	{"Nyctalus noctula", "Noctule"},
	{"Myotis daubentonii", "Daubenton's bat"},
}

// Demo feeds a store with synthetic sensor traffic
type Demo struct {
	store    *Store
	device   string
	interval time.Duration
	rnd      *rand.Rand
	started  time.Time
	samples  int
}

// NewDemo creates a generator writing one audio sample per interval
func NewDemo(store *Store, interval time.Duration) *Demo {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Demo{
		store:    store,
		device:   "demo-pi",
		interval: interval,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		started:  time.Now(),
	}
}

// Run writes samples until ctx is cancelled
func (d *Demo) Run(ctx context.Context) {
	nuts.L.Infof("[Demo] Generating synthetic data every %s", d.interval)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Step(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.Step(now)
		}
	}
}

// Step writes one audio sample (five classification rows sharing a sync id),
// sometimes a bat detection, and a heartbeat every 30 samples
func (d *Demo) Step(now time.Time) {
	syncID := nuts.NID("sync", 12)
	spl := 35 + d.rnd.Float64()*30

	rows := make([]repository.Document, 0, 5)
	for _, i := range d.rnd.Perm(len(demoLabels))[:5] {
		rows = append(rows, repository.Document{Data: map[string]interface{}{
			"label":    demoLabels[i],
			"score":    d.rnd.Float64(),
			"spl":      spl,
			"device":   d.device,
			"syncId":   syncID,
			"syncTime": now,
		}})
	}
	d.store.Put(models.CollectionClassifications, rows...)

	if d.rnd.Intn(4) == 0 {
		bat := demoBats[d.rnd.Intn(len(demoBats))]
		low := 18000 + d.rnd.Float64()*30000
		d.store.Put(models.CollectionBatDetections, repository.Document{Data: map[string]interface{}{
			"species":       bat.species,
			"commonName":    bat.common,
			"detectionProb": 0.5 + d.rnd.Float64()/2,
			"lowFreq":       low,
			"highFreq":      low + 5000 + d.rnd.Float64()*15000,
			"durationMs":    2 + d.rnd.Float64()*10,
			"device":        d.device,
			"syncId":        syncID,
			"detectionTime": now,
		}})
	}

	if d.samples%30 == 0 {
		d.store.Put(models.CollectionDeviceStatus, d.heartbeat(now))
	}
	d.samples++
}

func (d *Demo) heartbeat(now time.Time) repository.Document {
	return repository.Document{
		ID: fmt.Sprintf("status-%d", now.Unix()),
		Data: map[string]interface{}{
			"uptimeSeconds":        now.Sub(d.started).Seconds(),
			"cpuTemp":              45 + d.rnd.Float64()*20,
			"cpuLoad1m":            d.rnd.Float64() * 2,
			"cpuLoad5m":            d.rnd.Float64() * 1.5,
			"cpuLoad15m":           d.rnd.Float64(),
			"memTotalMb":           8192.0,
			"memAvailableMb":       2048 + d.rnd.Float64()*4096,
			"diskTotalGb":          117.0,
			"diskUsedGb":           20 + d.rnd.Float64()*10,
			"internetConnected":    true,
			"internetLatencyMs":    15 + d.rnd.Float64()*30,
			"audiomothConnected":   true,
			"captureErrors1h":      int64(d.rnd.Intn(3)),
			"dbSizeMb":             120 + float64(d.samples)/100,
			"classificationsTotal": int64(d.samples * 5),
			"batDetectionsTotal":   int64(d.samples / 4),
			"unsyncedCount":        int64(0),
			"recordedAt":           now,
		},
	}
}
