package postgres

import (
	"fmt"
	"strings"

	"github.com/itsatony/soundscape/hub/internal/models"
	"github.com/itsatony/soundscape/hub/internal/repository"
)

type column struct {
	field string // document field name
	expr  string // SQL expression, cast to a driver-friendly type
}

type table struct {
	name    string
	columns []column
}

// edgeTables maps document collections onto the edge device's own schema
var edgeTables = map[string]table{
	models.CollectionClassifications: {
		name: "classifications",
		columns: []column{
			{"label", "label::text"},
			{"score", "score::float8"},
			{"spl", "spl::float8"},
			{"device", "device::text"},
			{"syncId", "sync_id::text"},
			{"syncTime", "sync_time"},
		},
	},
	models.CollectionBatDetections: {
		name: "bat_detections",
		columns: []column{
			{"species", "species::text"},
			{"commonName", "common_name::text"},
			{"detectionProb", "detection_prob::float8"},
			{"startTime", "start_time::float8"},
			{"endTime", "end_time::float8"},
			{"lowFreq", "low_freq::float8"},
			{"highFreq", "high_freq::float8"},
			{"durationMs", "duration_ms::float8"},
			{"device", "device::text"},
			{"syncId", "sync_id::text"},
			{"detectionTime", "detection_time"},
			{"audioPath", "audio_path::text"},
		},
	},
	models.CollectionDeviceStatus: {
		name: "device_health",
		columns: []column{
			{"uptimeSeconds", "uptime_seconds::float8"},
			{"cpuTemp", "cpu_temp::float8"},
			{"cpuLoad1m", "cpu_load_1m::float8"},
			{"cpuLoad5m", "cpu_load_5m::float8"},
			{"cpuLoad15m", "cpu_load_15m::float8"},
			{"memTotalMb", "mem_total_mb::float8"},
			{"memAvailableMb", "mem_available_mb::float8"},
			{"diskTotalGb", "disk_total_gb::float8"},
			{"diskUsedGb", "disk_used_gb::float8"},
			{"internetConnected", "internet_connected"},
			{"internetLatencyMs", "internet_latency_ms::float8"},
			{"audiomothConnected", "audiomoth_connected"},
			{"captureErrors1h", "capture_errors_1h::int8"},
			{"dbSizeMb", "db_size_mb::float8"},
			{"classificationsTotal", "classifications_total::int8"},
			{"batDetectionsTotal", "bat_detections_total::int8"},
			{"unsyncedCount", "unsynced_count::int8"},
			{"recordedAt", "recorded_at"},
		},
	},
}

func (t table) hasField(field string) bool {
	for _, c := range t.columns {
		if c.field == field {
			return true
		}
	}
	return false
}

// buildSelect renders q against the edge schema. The limit is the only
// bind parameter.
func buildSelect(q repository.Query) (string, error) {
	t, ok := edgeTables[q.Collection]
	if !ok {
		return "", fmt.Errorf("%w: %s", repository.ErrUnknownCollection, q.Collection)
	}
	if q.Ordered() && !t.hasField(q.OrderBy) {
		return "", fmt.Errorf("%w: %s.%s", repository.ErrUnknownField, q.Collection, q.OrderBy)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id::text AS "id"`)
	for _, c := range t.columns {
		fmt.Fprintf(&sb, `, %s AS "%s"`, c.expr, c.field)
	}
	fmt.Fprintf(&sb, " FROM %s", t.name)
	if q.Ordered() {
		dir := "ASC"
		if q.Direction == repository.Descending {
			dir = "DESC NULLS LAST"
		}
		fmt.Fprintf(&sb, ` ORDER BY "%s" %s`, q.OrderBy, dir)
	}
	sb.WriteString(" LIMIT $1")
	return sb.String(), nil
}
