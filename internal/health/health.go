// Package health derives the device health panel from the latest heartbeat
package health

import (
	"fmt"
	"math"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
)

// StaleAfter is how old a heartbeat may get before the device is considered
// possibly offline
const StaleAfter = 3 * time.Minute

// Severity is a presentation-only band; nothing acts on it
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// Usage describes a memory or disk gauge
type Usage struct {
	Percent  string   `json:"percent"`
	Detail   string   `json:"detail"`
	Bar      float64  `json:"bar"` // 0..100
	Severity Severity `json:"severity"`
}

// Panel is the derived device health view. Waiting is set, and everything
// else left empty, until the first heartbeat arrives.
type Panel struct {
	Waiting    bool       `json:"waiting"`
	Stale      bool       `json:"stale"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	LastSeen   string     `json:"last_seen,omitempty"`

	Uptime          string   `json:"uptime,omitempty"`
	CPUTemp         string   `json:"cpu_temp,omitempty"`
	CPUTempSeverity Severity `json:"cpu_temp_severity,omitempty"`
	CPULoad         string   `json:"cpu_load,omitempty"`
	CPULoadDetail   string   `json:"cpu_load_detail,omitempty"`
	Memory          *Usage   `json:"memory,omitempty"`
	Disk            *Usage   `json:"disk,omitempty"`
	Internet        string   `json:"internet,omitempty"`
	InternetDetail  string   `json:"internet_detail,omitempty"`
	InternetUp      bool     `json:"internet_up"`

	AudioMoth             string   `json:"audiomoth,omitempty"`
	AudioMothDetail       string   `json:"audiomoth_detail,omitempty"`
	AudioMothUp           bool     `json:"audiomoth_up"`
	Database              string   `json:"database,omitempty"`
	DatabaseDetail        string   `json:"database_detail,omitempty"`
	CaptureErrors         string   `json:"capture_errors,omitempty"`
	CaptureErrorsSeverity Severity `json:"capture_errors_severity,omitempty"`
	CaptureErrorsDetail   string   `json:"capture_errors_detail,omitempty"`
}

// Derive computes the panel for snapshot s as seen at now. A nil snapshot
// yields a waiting panel.
func Derive(s *models.DeviceHealthSnapshot, now time.Time) Panel {
	if s == nil {
		return Panel{Waiting: true}
	}

	p := Panel{
		Stale:      IsStale(s.RecordedAt, now),
		RecordedAt: s.RecordedAt,
		LastSeen:   models.Placeholder,
		Uptime:     FormatUptime(s.UptimeSeconds),

		CPUTemp:         withUnit(s.CPUTemp, "%.1f", "°C"),
		CPUTempSeverity: TempSeverity(s.CPUTemp),
		CPULoad:         num(s.CPULoad1m, "%.2f"),
		CPULoadDetail:   fmt.Sprintf("5m %s · 15m %s", num(s.CPULoad5m, "%.2f"), num(s.CPULoad15m, "%.2f")),

		InternetUp:  s.InternetConnected,
		AudioMothUp: s.AudiomothConnected,

		Database:       withUnit(s.DBSizeMB, "%.1f", " MB"),
		DatabaseDetail: fmt.Sprintf("%d rows · %d unsynced", count(s.ClassificationsTotal), count(s.UnsyncedCount)),

		CaptureErrors:         fmt.Sprintf("%d", s.CaptureErrors1h),
		CaptureErrorsSeverity: ErrorSeverity(s.CaptureErrors1h),
		CaptureErrorsDetail:   fmt.Sprintf("%d bat detections total", count(s.BatDetectionsTotal)),
	}
	if s.RecordedAt != nil {
		p.LastSeen = s.RecordedAt.Format("15:04:05")
	}

	p.Memory = memoryUsage(s.MemTotalMB, s.MemAvailableMB)
	p.Disk = diskUsage(s.DiskTotalGB, s.DiskUsedGB)

	if s.InternetConnected {
		p.Internet = "Connected"
	} else {
		p.Internet = "Offline"
	}
	if s.InternetLatencyMs != nil {
		p.InternetDetail = fmt.Sprintf("%.0f ms latency", *s.InternetLatencyMs)
	}

	if s.AudiomothConnected {
		p.AudioMoth = "Capturing"
		p.AudioMothDetail = "Data received <5 min ago"
	} else {
		p.AudioMoth = "Inactive"
		p.AudioMothDetail = "No recent data"
	}
	return p
}

// IsStale reports whether a heartbeat recorded at recordedAt is older than
// StaleAfter. A heartbeat without a time is always stale.
func IsStale(recordedAt *time.Time, now time.Time) bool {
	if recordedAt == nil {
		return true
	}
	return now.Sub(*recordedAt) > StaleAfter
}

// FormatUptime renders seconds as its two coarsest non-zero units of days,
// hours and minutes ("2d 3h", "5h 12m", "12m")
func FormatUptime(seconds *float64) string {
	if seconds == nil || math.IsNaN(*seconds) || *seconds <= 0 {
		return models.Placeholder
	}

	total := int64(*seconds)
	parts := []struct {
		n    int64
		unit string
	}{
		{total / 86400, "d"},
		{total % 86400 / 3600, "h"},
		{total % 3600 / 60, "m"},
	}

	out := ""
	shown := 0
	for _, part := range parts {
		if part.n == 0 || shown == 2 {
			continue
		}
		if shown > 0 {
			out += " "
		}
		out += fmt.Sprintf("%d%s", part.n, part.unit)
		shown++
	}
	if out == "" {
		return "0m"
	}
	return out
}

// Percent renders used/total as a rounded percentage, or the placeholder
// when either side is missing or total is not positive
func Percent(used, total *float64) string {
	ratio, ok := ratio(used, total)
	if !ok {
		return models.Placeholder
	}
	return fmt.Sprintf("%.0f%%", math.Round(ratio*100))
}

// TempSeverity bands the CPU temperature in °C
func TempSeverity(celsius *float64) Severity {
	switch {
	case celsius == nil || math.IsNaN(*celsius):
		return SeverityUnknown
	case *celsius >= 70:
		return SeverityCritical
	case *celsius >= 60:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// ErrorSeverity bands the capture error count of the last hour
func ErrorSeverity(n int) Severity {
	switch {
	case n >= 5:
		return SeverityCritical
	case n > 0:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

// UsageSeverity bands a gauge percentage
func UsageSeverity(percent float64) Severity {
	switch {
	case percent >= 80:
		return SeverityCritical
	case percent >= 60:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}

func memoryUsage(total, available *float64) *Usage {
	var used *float64
	if total != nil && available != nil {
		u := *total - *available
		used = &u
	}
	u := gauge(used, total)
	if used != nil {
		u.Detail = fmt.Sprintf("%.1f / %.1f GB", *used/1024, *total/1024)
	}
	return u
}

func diskUsage(total, used *float64) *Usage {
	u := gauge(used, total)
	u.Detail = fmt.Sprintf("%s / %s GB", num(used, "%.0f"), num(total, "%.0f"))
	return u
}

func gauge(used, total *float64) *Usage {
	u := &Usage{
		Percent:  Percent(used, total),
		Detail:   models.Placeholder,
		Severity: SeverityUnknown,
	}
	if r, ok := ratio(used, total); ok {
		u.Bar = math.Max(0, math.Min(100, r*100))
		u.Severity = UsageSeverity(r * 100)
	}
	return u
}

func ratio(used, total *float64) (float64, bool) {
	if used == nil || total == nil || *total <= 0 || math.IsNaN(*used) || math.IsNaN(*total) {
		return 0, false
	}
	return *used / *total, true
}

func num(v *float64, format string) string {
	if v == nil {
		return models.Placeholder
	}
	return fmt.Sprintf(format, *v)
}

// withUnit keeps the unit on the placeholder so the cards stay aligned
func withUnit(v *float64, format, unit string) string {
	return num(v, format) + unit
}

func count(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
