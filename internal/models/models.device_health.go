// FilePath: internal/models/models.device_health.go
package models

import "time"

// DeviceHealthSnapshot is a heartbeat recorded by the edge health collector.
// Every host metric is nullable: the collector reports nil when a reading fails.
type DeviceHealthSnapshot struct {
	ID string `json:"id" firestore:"-"`

	// Raspberry Pi
	UptimeSeconds     *float64 `json:"uptime_seconds,omitempty" firestore:"uptimeSeconds"`
	CPUTemp           *float64 `json:"cpu_temp,omitempty" firestore:"cpuTemp"`
	CPULoad1m         *float64 `json:"cpu_load_1m,omitempty" firestore:"cpuLoad1m"`
	CPULoad5m         *float64 `json:"cpu_load_5m,omitempty" firestore:"cpuLoad5m"`
	CPULoad15m        *float64 `json:"cpu_load_15m,omitempty" firestore:"cpuLoad15m"`
	MemTotalMB        *float64 `json:"mem_total_mb,omitempty" firestore:"memTotalMb"`
	MemAvailableMB    *float64 `json:"mem_available_mb,omitempty" firestore:"memAvailableMb"`
	DiskTotalGB       *float64 `json:"disk_total_gb,omitempty" firestore:"diskTotalGb"`
	DiskUsedGB        *float64 `json:"disk_used_gb,omitempty" firestore:"diskUsedGb"`
	InternetConnected bool     `json:"internet_connected" firestore:"internetConnected"`
	InternetLatencyMs *float64 `json:"internet_latency_ms,omitempty" firestore:"internetLatencyMs"`

	// AudioMoth and local database
	AudiomothConnected   bool     `json:"audiomoth_connected" firestore:"audiomothConnected"`
	CaptureErrors1h      int      `json:"capture_errors_1h" firestore:"captureErrors1h"`
	DBSizeMB             *float64 `json:"db_size_mb,omitempty" firestore:"dbSizeMb"`
	ClassificationsTotal *int64   `json:"classifications_total,omitempty" firestore:"classificationsTotal"`
	BatDetectionsTotal   *int64   `json:"bat_detections_total,omitempty" firestore:"batDetectionsTotal"`
	UnsyncedCount        *int64   `json:"unsynced_count,omitempty" firestore:"unsyncedCount"`

	RecordedAt *time.Time `json:"recorded_at,omitempty" firestore:"recordedAt"`
}
