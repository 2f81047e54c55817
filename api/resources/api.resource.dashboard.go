package resources

import (
	"net/http"

	"github.com/gorilla/schema"
	"github.com/itsatony/soundscape/hub/internal/aggregate"
	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/itsatony/soundscape/hub/internal/hubservice"
	"github.com/itsatony/soundscape/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const (
	maxTopLabels     = 50
	maxTableRows     = 100
	defaultTableRows = aggregate.DefaultTableRows
)

// DashboardHandlers serves the derived dashboard views
type DashboardHandlers struct {
	hubservice *hubservice.HubService
	decoder    *schema.Decoder
}

// @Summary Get the full dashboard view
// @Description Stat cards, label distribution, SPL series, bat detection feed, recent classifications and device health
// @Tags dashboard
// @Produce json
// @Success 200 {object} hubservice.View
// @Router /dashboard [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.hubservice.BuildView())
}

// @Summary Get the stat cards
// @Tags dashboard
// @Produce json
// @Success 200 {object} hubservice.StatsView
// @Router /dashboard/stats [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.hubservice.Stats())
}

// @Summary Get the label distribution
// @Tags dashboard
// @Produce json
// @Param top query int false "Number of labels (1-50)" default(10)
// @Success 200 {array} aggregate.LabelCount
// @Failure 400 {object} errors.APIError
// @Router /dashboard/labels [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetLabels(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	filters := models.LabelFilters{Top: aggregate.DefaultTopLabels}
	if err := h.decoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}
	if filters.Top < 1 || filters.Top > maxTopLabels {
		respondWithError(w, errors.NewValidationError("top must be between 1 and 50", nil).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, h.hubservice.Labels(filters.Top))
}

// @Summary Get the SPL time series
// @Tags dashboard
// @Produce json
// @Success 200 {object} aggregate.SPLSeries
// @Router /dashboard/spl [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetSPL(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.hubservice.SPL())
}

// @Summary Get the bat detection feed
// @Tags dashboard
// @Produce json
// @Param limit query int false "Number of detections (1-50)" default(50)
// @Success 200 {array} aggregate.DetectionFeedItem
// @Failure 400 {object} errors.APIError
// @Router /dashboard/detections [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetDetections(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := h.limit(r, aggregate.MaxFeedItems, aggregate.MaxFeedItems)
	if apiErr != nil {
		respondWithError(w, apiErr)
		return
	}
	respondWithJSON(w, http.StatusOK, h.hubservice.Detections(limit))
}

// @Summary Get the most recent classifications
// @Tags dashboard
// @Produce json
// @Param limit query int false "Number of rows (1-100)" default(20)
// @Success 200 {array} aggregate.ClassificationRow
// @Failure 400 {object} errors.APIError
// @Router /dashboard/classifications [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetClassifications(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := h.limit(r, defaultTableRows, maxTableRows)
	if apiErr != nil {
		respondWithError(w, apiErr)
		return
	}
	respondWithJSON(w, http.StatusOK, h.hubservice.Classifications(limit))
}

// @Summary Get the device health panel
// @Tags dashboard
// @Produce json
// @Success 200 {object} health.Panel
// @Router /dashboard/device [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.hubservice.Device())
}

// @Summary Get the last cached dashboard view
// @Description Reads the view other hub instances published to the shared cache
// @Tags dashboard
// @Produce json
// @Success 200 {object} hubservice.View
// @Failure 404 {object} errors.APIError
// @Failure 503 {object} errors.APIError
// @Router /dashboard/cached [get]
// @Security BearerAuth
func (h *DashboardHandlers) GetCached(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	data, err := h.hubservice.CachedView(r.Context())
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to read cached view").WithRequestID(requestID))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *DashboardHandlers) limit(r *http.Request, def, max int) (int, *errors.APIError) {
	requestID := nuts.NID("req", 12)
	filters := models.LimitFilters{Limit: def}
	if err := h.decoder.Decode(&filters, r.URL.Query()); err != nil {
		return 0, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID)
	}
	if filters.Limit < 1 || filters.Limit > max {
		return 0, errors.NewValidationError("limit out of range", nil).
			WithDetails(map[string]int{"min": 1, "max": max}).
			WithRequestID(requestID)
	}
	return filters.Limit, nil
}
