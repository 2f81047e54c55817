package resources

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/itsatony/soundscape/hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// ClipHandlers serves bat call recordings
type ClipHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Stream a bat call recording
// @Tags clips
// @Produce audio/wav
// @Param name path string true "Clip name (sync id, with or without .wav)"
// @Success 200 {file} binary
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 503 {object} errors.APIError
// @Router /clips/{name} [get]
// @Security BearerAuth
func (h *ClipHandlers) GetClip(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	name := mux.Vars(r)["name"]

	if h.hubservice.Clips == nil {
		respondWithError(w, errors.NewUnavailableError("clip storage is not configured", nil).WithRequestID(requestID))
		return
	}

	clip, err := h.hubservice.Clips.Get(r.Context(), name)
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to look up clip").WithRequestID(requestID))
		return
	}

	w.Header().Set("Content-Type", clip.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(clip.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := h.hubservice.Clips.Stream(r.Context(), clip, w); err != nil {
		// Headers are gone already
		nuts.L.Errorf("[API] Streaming clip %s failed: %v (request %s)", clip.Name, err, requestID)
		return
	}
	h.hubservice.Monitoring.RecordEvent("clip.served", nil)
}
