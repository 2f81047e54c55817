// FilePath: internal/models/models.classification.go
package models

import "time"

// Collection names as written by the edge sync service
const (
	CollectionClassifications = "classifications"
	CollectionBatDetections   = "batDetections"
	CollectionDeviceStatus    = "deviceStatus"
)

// Placeholder stands in for a value that is missing or cannot be computed
const Placeholder = "—"

// ClassificationEvent is one sound-class result for one audio sample.
// Several rows (one per detected class) share a SyncID and therefore the same SPL.
type ClassificationEvent struct {
	ID       string     `json:"id" firestore:"-"`
	Label    string     `json:"label" firestore:"label"`
	Score    float64    `json:"score" firestore:"score"`
	SPL      *float64   `json:"spl,omitempty" firestore:"spl"`
	Device   string     `json:"device" firestore:"device"`
	SyncID   string     `json:"sync_id" firestore:"syncId"`
	SyncTime *time.Time `json:"sync_time,omitempty" firestore:"syncTime"`
}
