package models

import "time"

// BatDetectionEvent represents a single bat call found in a captured segment
type BatDetectionEvent struct {
	ID            string     `json:"id" firestore:"-"`
	Species       string     `json:"species" firestore:"species"`
	CommonName    string     `json:"common_name" firestore:"commonName"`
	DetectionProb float64    `json:"detection_prob" firestore:"detectionProb"`
	StartTime     float64    `json:"start_time" firestore:"startTime"` // seconds into the segment
	EndTime       float64    `json:"end_time" firestore:"endTime"`
	LowFreq       float64    `json:"low_freq" firestore:"lowFreq"` // Hz
	HighFreq      float64    `json:"high_freq" firestore:"highFreq"`
	DurationMs    *float64   `json:"duration_ms,omitempty" firestore:"durationMs"`
	Device        string     `json:"device" firestore:"device"`
	SyncID        string     `json:"sync_id" firestore:"syncId"`
	DetectionTime *time.Time `json:"detection_time,omitempty" firestore:"detectionTime"`
	AudioURL      string     `json:"audio_url,omitempty" firestore:"audioUrl"`
	AudioPath     string     `json:"-" firestore:"audioPath"` // clip path on the edge device
}
