package repository

import (
	"fmt"
	"reflect"
	"time"

	"github.com/itsatony/soundscape/hub/internal/models"
	"github.com/mitchellh/mapstructure"
	nuts "github.com/vaudience/go-nuts"
)

// Decode maps a document's fields onto out (a pointer to a struct with
// firestore tags). Fields that cannot be decoded keep their zero value; the
// returned error lists them but out is always usable.
func Decode(doc Document, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "firestore",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			epochMillisToTimeHook,
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(doc.Data); err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return nil
}

// epochMillisToTimeHook accepts numeric timestamps (unix milliseconds)
func epochMillisToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case float64:
		return time.UnixMilli(int64(v)), nil
	}
	return data, nil
}

// DecodeClassifications converts a snapshot into classification events
func DecodeClassifications(docs []Document) []models.ClassificationEvent {
	out := make([]models.ClassificationEvent, 0, len(docs))
	for _, doc := range docs {
		var ev models.ClassificationEvent
		if err := Decode(doc, &ev); err != nil {
			nuts.L.Warnf("[Decode] Malformed classification kept with defaults: %v", err)
		}
		ev.ID = doc.ID
		out = append(out, ev)
	}
	return out
}

// DecodeBatDetections converts a snapshot into bat detection events
func DecodeBatDetections(docs []Document) []models.BatDetectionEvent {
	out := make([]models.BatDetectionEvent, 0, len(docs))
	for _, doc := range docs {
		var ev models.BatDetectionEvent
		if err := Decode(doc, &ev); err != nil {
			nuts.L.Warnf("[Decode] Malformed bat detection kept with defaults: %v", err)
		}
		ev.ID = doc.ID
		out = append(out, ev)
	}
	return out
}

// DecodeDeviceHealth converts a snapshot into health snapshots
func DecodeDeviceHealth(docs []Document) []models.DeviceHealthSnapshot {
	out := make([]models.DeviceHealthSnapshot, 0, len(docs))
	for _, doc := range docs {
		var snap models.DeviceHealthSnapshot
		if err := Decode(doc, &snap); err != nil {
			nuts.L.Warnf("[Decode] Malformed health snapshot kept with defaults: %v", err)
		}
		snap.ID = doc.ID
		out = append(out, snap)
	}
	return out
}
